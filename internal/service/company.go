package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"k8s.io/apimachinery/pkg/util/rand"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/types"
	"helpdesk/pkg/captcha"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/metrics"
	"helpdesk/pkg/sequence"
)

const (
	temporaryPasswordLength = 12
	minRejectionReason      = 10
)

// ApproveResult 审核通过结果
type ApproveResult struct {
	Company     *model.Company `json:"company"`
	AdminUserID int64          `json:"admin_user_id"`
	// NewAccount 为true表示新建了管理员账号并发送了临时密码
	NewAccount bool `json:"new_account"`
}

// CompanyService 企业入驻与关注服务
type CompanyService struct {
	companyRepo  repository.CompanyRepository
	userRepo     repository.UserRepository
	followerRepo repository.FollowerRepository
	tx           TxRunner
	codes        CodeGenerator
	verifier     captcha.Verifier
	worker       TaskRunner
	mailer       Mailer
	logger       *logger.Logger
	now          func() time.Time
}

// NewCompanyService 创建企业服务实例
func NewCompanyService(
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	followerRepo repository.FollowerRepository,
	tx TxRunner,
	codes CodeGenerator,
	verifier captcha.Verifier,
	worker TaskRunner,
	mailer Mailer,
	logger *logger.Logger,
) *CompanyService {
	return &CompanyService{
		companyRepo:  companyRepo,
		userRepo:     userRepo,
		followerRepo: followerRepo,
		tx:           tx,
		codes:        codes,
		verifier:     verifier,
		worker:       worker,
		mailer:       mailer,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitRequest 提交入驻申请，创建PENDING状态的企业
func (s *CompanyService) SubmitRequest(ctx context.Context, req types.CompanyRequest) (*model.Company, error) {
	if err := s.verifier.Verify(ctx, captcha.Params(req.CaptchaParams)); err != nil {
		s.logger.Warn("入驻申请人机验证失败", "email", req.SupportEmail, "error", err)
		return nil, constants.ErrBizCaptcha
	}

	supportEmail := normalizeEmail(req.SupportEmail)
	pending, err := s.companyRepo.HasPendingRequest(ctx, supportEmail)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, constants.ErrBizCompanyPendingExists
	}

	taken, err := s.companyRepo.HasActiveWithName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, constants.ErrBizCompanyNameTaken
	}

	requestCode, err := s.codes.Next(ctx, sequence.PrefixRequest)
	if err != nil {
		return nil, err
	}
	companyCode, err := s.codes.Next(ctx, sequence.PrefixCompany)
	if err != nil {
		return nil, err
	}

	company := &model.Company{
		CompanyCode:    companyCode,
		RequestCode:    requestCode,
		Name:           strings.TrimSpace(req.Name),
		LegalName:      req.LegalName,
		Description:    strings.TrimSpace(req.Description),
		SupportEmail:   supportEmail,
		Website:        req.Website,
		Industry:       strings.TrimSpace(req.Industry),
		ContactCity:    req.ContactCity,
		ContactCountry: req.ContactCountry,
		TaxID:          req.TaxID,
		RequestMessage: strings.TrimSpace(req.RequestMessage),
		EstimatedUsers: req.EstimatedUsers,
		Status:         model.CompanyStatusPending,
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		s.logger.Error("保存入驻申请失败", "email", supportEmail, "error", err)
		return nil, err
	}

	metrics.CompanyRequests.WithLabelValues("submitted").Inc()
	s.logger.Info("收到企业入驻申请", "request_code", requestCode, "company_id", company.ID)
	return company, nil
}

// Approve 审核通过：在同一事务中启用企业并创建或提升企业管理员
func (s *CompanyService) Approve(ctx context.Context, id int64) (*ApproveResult, error) {
	var (
		result       ApproveResult
		tempPassword string
	)

	err := s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		companies := s.companyRepo.WithTx(tx)
		users := s.userRepo.WithTx(tx)

		company, err := companies.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, constants.ErrBizCompanyNotFound)
		}
		if company.Status != model.CompanyStatusPending {
			return constants.ErrBizCompanyNotPending
		}

		existing, err := users.GetByEmail(ctx, company.SupportEmail)
		switch {
		case err == nil:
			// 单角色模型下只提升普通用户，不覆盖已有的管理员或客服身份
			if existing.Role != model.RoleUser {
				return constants.ErrBizAdminEmailHasRole
			}
			if err := users.UpdateRole(ctx, existing.ID, model.RoleCompanyAdmin, &company.ID); err != nil {
				return err
			}
			result.AdminUserID = existing.ID
		case errors.Is(err, repository.ErrNotFound):
			tempPassword = rand.String(temporaryPasswordLength)
			hashed, err := hashPassword(tempPassword)
			if err != nil {
				return err
			}
			admin := &model.User{
				Email:     company.SupportEmail,
				Name:      company.Name,
				Password:  hashed,
				Role:      model.RoleCompanyAdmin,
				CompanyID: &company.ID,
				Status:    model.UserStatusActive,
			}
			if err := users.Create(ctx, admin); err != nil {
				return err
			}
			result.AdminUserID = admin.ID
			result.NewAccount = true
		default:
			return err
		}

		now := s.now()
		company.Status = model.CompanyStatusActive
		company.AdminUserID = &result.AdminUserID
		company.ReviewedAt = &now
		company.RejectionReason = nil
		if err := companies.UpdateReview(ctx, company); err != nil {
			return err
		}
		result.Company = company
		return nil
	})
	if err != nil {
		if _, ok := constants.AsBizError(err); !ok {
			s.logger.Error("审核企业申请失败", "company_id", id, "error", err)
		}
		return nil, err
	}

	company := result.Company
	s.enqueue("email:company_approved", func(ctx context.Context) error {
		return s.mailer.SendCompanyApproved(company.SupportEmail, company.Name, company.RequestCode, tempPassword)
	})

	metrics.CompanyRequests.WithLabelValues("approved").Inc()
	s.logger.Info("企业入驻申请已通过", "company_id", id, "admin_user_id", result.AdminUserID, "new_account", result.NewAccount)
	return &result, nil
}

// Reject 驳回入驻申请
func (s *CompanyService) Reject(ctx context.Context, id int64, reason string) (*model.Company, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minRejectionReason {
		return nil, constants.ErrBizRejectionReason
	}

	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizCompanyNotFound)
	}
	if company.Status != model.CompanyStatusPending {
		return nil, constants.ErrBizCompanyNotPending
	}

	now := s.now()
	company.Status = model.CompanyStatusRejected
	company.RejectionReason = &reason
	company.ReviewedAt = &now
	if err := s.companyRepo.UpdateReview(ctx, company); err != nil {
		s.logger.Error("驳回企业申请失败", "company_id", id, "error", err)
		return nil, err
	}

	s.enqueue("email:company_rejected", func(ctx context.Context) error {
		return s.mailer.SendCompanyRejected(company.SupportEmail, company.Name, company.RequestCode, reason)
	})

	metrics.CompanyRequests.WithLabelValues("rejected").Inc()
	s.logger.Info("企业入驻申请已驳回", "company_id", id)
	return company, nil
}

// ListRequests 管理员按状态查看入驻申请
func (s *CompanyService) ListRequests(ctx context.Context, query types.CompanyListQuery) (*model.PaginatedCompanies, error) {
	_, perPage, offset := normalizePage(query.Page, query.PerPage)
	filter := repository.CompanyFilter{Status: query.Status, Search: query.Search, Offset: offset, Limit: perPage}
	return s.list(ctx, filter)
}

// ListCompanies 公开的企业目录，仅包含已启用企业
func (s *CompanyService) ListCompanies(ctx context.Context, query types.CompanyListQuery) (*model.PaginatedCompanies, error) {
	_, perPage, offset := normalizePage(query.Page, query.PerPage)
	filter := repository.CompanyFilter{Status: model.CompanyStatusActive, Search: query.Search, Offset: offset, Limit: perPage}
	return s.list(ctx, filter)
}

func (s *CompanyService) list(ctx context.Context, filter repository.CompanyFilter) (*model.PaginatedCompanies, error) {
	total, items, err := countAndList(ctx,
		func(ctx context.Context) (int64, error) { return s.companyRepo.Count(ctx, filter) },
		func(ctx context.Context) ([]model.Company, error) { return s.companyRepo.List(ctx, filter) },
	)
	if err != nil {
		s.logger.Error("获取企业列表失败", "error", err)
		return nil, err
	}
	return &model.PaginatedCompanies{Total: total, Items: items}, nil
}

// GetCompany 获取企业详情，非平台管理员只能看到已启用企业
func (s *CompanyService) GetCompany(ctx context.Context, actor model.Actor, id int64) (*model.Company, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizCompanyNotFound)
	}
	if company.Status != model.CompanyStatusActive && !actor.IsPlatformAdmin() && !actor.IsStaffOf(company.ID) {
		return nil, constants.ErrBizCompanyNotFound
	}
	return company, nil
}

// Follow 关注企业，重复关注无副作用
func (s *CompanyService) Follow(ctx context.Context, userID, companyID int64) error {
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return notFound(err, constants.ErrBizCompanyNotFound)
	}
	if company.Status != model.CompanyStatusActive {
		return constants.ErrBizCompanyNotActive
	}
	return s.followerRepo.Follow(ctx, userID, companyID)
}

// Unfollow 取消关注
func (s *CompanyService) Unfollow(ctx context.Context, userID, companyID int64) error {
	return s.followerRepo.Unfollow(ctx, userID, companyID)
}

// FollowedCompanies 当前用户关注的企业
func (s *CompanyService) FollowedCompanies(ctx context.Context, userID int64) ([]model.Company, error) {
	return s.followerRepo.ListFollowed(ctx, userID)
}

// enqueue 投递异步任务，投递失败只记录日志
func (s *CompanyService) enqueue(name string, fn func(ctx context.Context) error) {
	if _, err := s.worker.AddTask(name, fn); err != nil {
		s.logger.Error("投递异步任务失败", "task", name, "error", err)
	}
}
