package constants

import "errors"

// BizError 业务错误，Code与响应中的code一致
type BizError struct {
	Code int
	Msg  string
}

func (e *BizError) Error() string { return e.Msg }

// NewBizError 创建业务错误
func NewBizError(code int, msg string) *BizError {
	return &BizError{Code: code, Msg: msg}
}

// AsBizError 从错误链中取出业务错误
func AsBizError(err error) (*BizError, bool) {
	var be *BizError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// 业务错误
var (
	ErrBizUnauthorized = NewBizError(401, ErrUnauthorized)
	ErrBizAuthFailed   = NewBizError(401, ErrAuthFailed)
	ErrBizForbidden    = NewBizError(403, ErrInsufficientPermission)
	ErrBizDisabled     = NewBizError(403, ErrAccountDisabled)
	ErrBizCaptcha      = NewBizError(400, ErrCaptchaFailed)
	ErrBizUserNotFound = NewBizError(404, ErrUserNotFound)
	ErrBizEmailExists  = NewBizError(409, ErrEmailExists)
	ErrBizAgentInvalid = NewBizError(400, ErrAgentInvalid)
	ErrBizTooFrequent  = NewBizError(429, ErrOperationTooFrequent)

	ErrBizResetCodeInvalid  = NewBizError(400, ErrResetCodeInvalid)
	ErrBizResetPasswordSame = NewBizError(422, ErrResetPasswordSame)
	ErrBizResetTooMany      = NewBizError(429, ErrResetTooMany)

	ErrBizCompanyNotFound      = NewBizError(404, ErrCompanyNotFound)
	ErrBizCompanyNotActive     = NewBizError(400, ErrCompanyNotActive)
	ErrBizCompanyNameTaken     = NewBizError(409, ErrCompanyNameTaken)
	ErrBizCompanyPendingExists = NewBizError(409, ErrCompanyPendingExists)
	ErrBizCompanyNotPending    = NewBizError(400, ErrCompanyNotPending)
	ErrBizRejectionReason      = NewBizError(422, ErrRejectionReasonLength)
	ErrBizNotFollowed          = NewBizError(403, ErrCompanyNotFollowed)
	ErrBizForeignCompany       = NewBizError(403, ErrForeignCompany)
	ErrBizAdminEmailHasRole    = NewBizError(409, ErrAdminEmailHasRole)

	ErrBizAnnouncementNotFound     = NewBizError(404, ErrAnnouncementNotFound)
	ErrBizAnnouncementNotEditable  = NewBizError(400, ErrAnnouncementNotEditable)
	ErrBizAnnouncementNotDeletable = NewBizError(400, ErrAnnouncementNotDeletable)
	ErrBizAnnouncementPublished    = NewBizError(400, ErrAnnouncementPublished)
	ErrBizAnnouncementNotPublished = NewBizError(400, ErrAnnouncementNotPublished)
	ErrBizAnnouncementNotArchived  = NewBizError(400, ErrAnnouncementNotArchived)
	ErrBizAnnouncementNotScheduled = NewBizError(400, ErrAnnouncementNotScheduled)
	ErrBizAnnouncementTransition   = NewBizError(400, ErrAnnouncementTransition)
	ErrBizScheduleInPast           = NewBizError(422, ErrScheduleInPast)
	ErrBizWrongAnnouncementType    = NewBizError(400, ErrWrongAnnouncementType)
	ErrBizMaintenanceStarted       = NewBizError(400, ErrMaintenanceStarted)
	ErrBizMaintenanceNotStarted    = NewBizError(400, ErrMaintenanceNotStarted)
	ErrBizMaintenanceCompleted     = NewBizError(400, ErrMaintenanceCompleted)
	ErrBizIncidentResolved         = NewBizError(400, ErrIncidentResolved)
	ErrBizIncidentUnresolve        = NewBizError(422, ErrIncidentUnresolve)
	ErrBizAlertActionRevert        = NewBizError(422, ErrAlertActionRequiredRevert)

	ErrBizArticleNotFound      = NewBizError(404, ErrArticleNotFound)
	ErrBizArticleTitleTaken    = NewBizError(409, ErrArticleTitleTaken)
	ErrBizArticlePublished     = NewBizError(400, ErrArticlePublished)
	ErrBizArticleNotPublished  = NewBizError(400, ErrArticleNotPublished)
	ErrBizArticleDeletePublish = NewBizError(403, ErrArticleDeletePublish)
	ErrBizCategoryNotFound     = NewBizError(422, ErrCategoryNotFound)

	ErrBizTicketNotFound        = NewBizError(404, ErrTicketNotFound)
	ErrBizTicketCategoryInvalid = NewBizError(422, ErrTicketCategoryInvalid)
	ErrBizTicketCategoryExists  = NewBizError(409, ErrTicketCategoryExists)
	ErrBizTicketClosed          = NewBizError(400, ErrTicketClosed)
	ErrBizTicketNotEditable     = NewBizError(400, ErrTicketNotEditable)
	ErrBizTicketResolved        = NewBizError(400, ErrTicketAlreadyResolved)
	ErrBizTicketNotReopenable   = NewBizError(400, ErrTicketNotReopenable)
	ErrBizTicketDeleteNotClosed = NewBizError(400, ErrTicketDeleteNotClosed)
	ErrBizResponseNotFound      = NewBizError(404, ErrResponseNotFound)
	ErrBizResponseNotAuthor     = NewBizError(403, ErrResponseNotAuthor)
	ErrBizResponseEditExpired   = NewBizError(403, ErrResponseEditExpired)
)

// ValidationError 字段校验错误，响应code为422
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return ErrValidation }

// NewValidationError 创建单字段校验错误
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add 追加字段错误
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil 没有字段错误时返回nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
