package handler

import (
	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/middleware"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// CompanyHandler 企业入驻与关注处理器
type CompanyHandler struct {
	companyService *service.CompanyService
	logger         *logger.Logger
}

// NewCompanyHandler 创建企业处理器实例
func NewCompanyHandler(companyService *service.CompanyService, logger *logger.Logger) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		logger:         logger,
	}
}

// SubmitRequest 提交企业入驻申请
// @Summary 提交入驻申请
// @Description 需要通过极验人机验证，审核结果通过邮件通知
// @Tags 企业
// @Accept json
// @Produce json
// @Param body body types.CompanyRequest true "申请信息"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/company-requests [post]
func (h *CompanyHandler) SubmitRequest(c *gin.Context) {
	var req types.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	company, err := h.companyService.SubmitRequest(c.Request.Context(), req)
	if err != nil {
		Fail(c, h.logger, "提交入驻申请", err)
		return
	}
	Success(c, constants.SuccessSubmit, gin.H{
		"id":           company.ID,
		"request_code": company.RequestCode,
		"status":       company.Status,
	})
}

// ListCompanies 企业目录
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	var query types.CompanyListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.companyService.ListCompanies(c.Request.Context(), query)
	if err != nil {
		Fail(c, h.logger, "获取企业列表", err)
		return
	}
	Success(c, constants.SuccessGet, result)
}

// GetCompany 企业详情
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	company, err := h.companyService.GetCompany(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		Fail(c, h.logger, "获取企业详情", err)
		return
	}
	Success(c, constants.SuccessGet, company)
}

// Follow 关注企业
func (h *CompanyHandler) Follow(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.companyService.Follow(c.Request.Context(), middleware.CurrentActor(c).UserID, id); err != nil {
		Fail(c, h.logger, "关注企业", err)
		return
	}
	Success(c, constants.SuccessUpdate, nil)
}

// Unfollow 取消关注
func (h *CompanyHandler) Unfollow(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.companyService.Unfollow(c.Request.Context(), middleware.CurrentActor(c).UserID, id); err != nil {
		Fail(c, h.logger, "取消关注", err)
		return
	}
	Success(c, constants.SuccessUpdate, nil)
}

// FollowedCompanies 我关注的企业
func (h *CompanyHandler) FollowedCompanies(c *gin.Context) {
	companies, err := h.companyService.FollowedCompanies(c.Request.Context(), middleware.CurrentActor(c).UserID)
	if err != nil {
		Fail(c, h.logger, "获取关注列表", err)
		return
	}
	Success(c, constants.SuccessGet, companies)
}
