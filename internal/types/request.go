package types

import (
	"encoding/json"
	"time"
)

// PageQuery 分页参数，per_page最大100
type PageQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// CaptchaParams 极验验证参数
type CaptchaParams struct {
	LotNumber     string `json:"lot_number"`
	CaptchaOutput string `json:"captcha_output"`
	PassToken     string `json:"pass_token"`
	GenTime       string `json:"gen_time"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=191"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// ForgotPasswordRequest 申请重置密码
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email,max=191"`
}

// ResetPasswordRequest 使用邮箱验证码重置密码
type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email,max=191"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateAgentRequest 创建客服请求，企业管理员可省略company_id
type CreateAgentRequest struct {
	CompanyID int64  `json:"company_id" binding:"omitempty,min=1"`
	Email     string `json:"email" binding:"required,email,max=191"`
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

// CompanyRequest 企业入驻申请
type CompanyRequest struct {
	Name           string  `json:"name" binding:"required,min=2,max=200"`
	LegalName      *string `json:"legal_name" binding:"omitempty,max=200"`
	Description    string  `json:"description" binding:"required,min=20,max=2000"`
	SupportEmail   string  `json:"support_email" binding:"required,email,max=191"`
	Website        *string `json:"website" binding:"omitempty,url,max=255"`
	Industry       string  `json:"industry" binding:"required,max=100"`
	ContactCity    *string `json:"contact_city" binding:"omitempty,max=100"`
	ContactCountry *string `json:"contact_country" binding:"omitempty,max=100"`
	TaxID          *string `json:"tax_id" binding:"omitempty,max=50"`
	RequestMessage string  `json:"request_message" binding:"required,min=20,max=2000"`
	EstimatedUsers *int    `json:"estimated_users" binding:"omitempty,min=1"`
	CaptchaParams
}

// RejectCompanyRequest 驳回入驻申请
type RejectCompanyRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// CompanyListQuery 企业列表查询
type CompanyListQuery struct {
	PageQuery
	Search string `form:"search" binding:"omitempty,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING ACTIVE REJECTED SUSPENDED"`
}

// CreateAnnouncementRequest 创建公告请求，action决定创建后的状态
type CreateAnnouncementRequest struct {
	Title        string          `json:"title" binding:"required,min=3,max=255"`
	Content      string          `json:"content" binding:"required,min=10,max=5000"`
	Type         string          `json:"type" binding:"required,announcement_type"`
	Metadata     json.RawMessage `json:"metadata" binding:"required"`
	Action       string          `json:"action" binding:"omitempty,oneof=draft publish schedule"`
	ScheduledFor *time.Time      `json:"scheduled_for"`
}

// UpdateAnnouncementRequest 更新公告，metadata按字段合并
type UpdateAnnouncementRequest struct {
	Title    *string         `json:"title" binding:"omitempty,min=3,max=255"`
	Content  *string         `json:"content" binding:"omitempty,min=10,max=5000"`
	Metadata json.RawMessage `json:"metadata"`
}

// ScheduleAnnouncementRequest 定时发布
type ScheduleAnnouncementRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

// ResolveIncidentRequest 标记故障已解决
type ResolveIncidentRequest struct {
	ResolutionContent string     `json:"resolution_content" binding:"required,min=10,max=2000"`
	ResolvedAt        *time.Time `json:"resolved_at"`
}

// AnnouncementListQuery 公告列表查询
type AnnouncementListQuery struct {
	PageQuery
	CompanyID       int64     `form:"company_id" binding:"omitempty,min=1"`
	Status          string    `form:"status" binding:"omitempty,announcement_status"`
	Type            string    `form:"type" binding:"omitempty,announcement_type"`
	Search          string    `form:"search" binding:"omitempty,max=100"`
	PublishedAfter  time.Time `form:"published_after" time_format:"2006-01-02T15:04:05Z07:00"`
	PublishedBefore time.Time `form:"published_before" time_format:"2006-01-02T15:04:05Z07:00"`
	Sort            string    `form:"sort" binding:"omitempty,oneof=-published_at -created_at title"`
}

// PublicAnnouncementQuery 公开公告查询
type PublicAnnouncementQuery struct {
	CompanyID int64 `form:"company_id" binding:"required,min=1"`
	Page      int   `form:"page" binding:"omitempty,min=1"`
	Limit     int   `form:"limit" binding:"omitempty,min=1,max=50"`
}

// CreateArticleRequest 创建帮助中心文章
type CreateArticleRequest struct {
	CategoryID int64  `json:"category_id" binding:"required,min=1"`
	Title      string `json:"title" binding:"required,min=3,max=255"`
	Excerpt    string `json:"excerpt" binding:"omitempty,max=500"`
	Content    string `json:"content" binding:"required,min=50"`
}

// UpdateArticleRequest 更新帮助中心文章
type UpdateArticleRequest struct {
	CategoryID *int64  `json:"category_id" binding:"omitempty,min=1"`
	Title      *string `json:"title" binding:"omitempty,min=3,max=255"`
	Excerpt    *string `json:"excerpt" binding:"omitempty,max=500"`
	Content    *string `json:"content" binding:"omitempty,min=50"`
}

// ArticleListQuery 文章列表查询
type ArticleListQuery struct {
	PageQuery
	CompanyID int64  `form:"company_id" binding:"omitempty,min=1"`
	Category  string `form:"category" binding:"omitempty,max=50"`
	Status    string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
	Search    string `form:"search" binding:"omitempty,max=100"`
	Sort      string `form:"sort" binding:"omitempty,oneof=-views views title -title created_at -created_at"`
}

// TicketCategoryRequest 创建或更新工单分类
type TicketCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
	IsActive    *bool  `json:"is_active"`
}

// CreateTicketRequest 创建工单
type CreateTicketRequest struct {
	CompanyID   int64  `json:"company_id" binding:"required,min=1"`
	CategoryID  int64  `json:"category_id" binding:"required,min=1"`
	Title       string `json:"title" binding:"required,min=5,max=255"`
	Description string `json:"description" binding:"required,min=10,max=5000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// UpdateTicketRequest 更新工单
type UpdateTicketRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=5,max=255"`
	Description *string `json:"description" binding:"omitempty,min=10,max=5000"`
	CategoryID  *int64  `json:"category_id" binding:"omitempty,min=1"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// AssignTicketRequest 分配工单
type AssignTicketRequest struct {
	AgentID int64 `json:"agent_id" binding:"required,min=1"`
}

// TicketResponseRequest 工单回复
type TicketResponseRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// TicketListQuery 工单列表查询，owner_agent_id取值为null、me或客服ID
type TicketListQuery struct {
	PageQuery
	Status       string    `form:"status" binding:"omitempty,oneof=OPEN PENDING RESOLVED CLOSED"`
	Priority     string    `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	CategoryID   int64     `form:"category_id" binding:"omitempty,min=1"`
	OwnerAgentID string    `form:"owner_agent_id" binding:"omitempty,owner_filter"`
	Search       string    `form:"search" binding:"omitempty,max=100"`
	CreatedFrom  time.Time `form:"created_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo    time.Time `form:"created_to" time_format:"2006-01-02T15:04:05Z07:00"`
}
