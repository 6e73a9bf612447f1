package admin

import (
	"github.com/gin-gonic/gin"

	"helpdesk/internal/api/handler"
	"helpdesk/internal/constants"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// CompanyAdminHandler 入驻申请审核处理器
type CompanyAdminHandler struct {
	companyService *service.CompanyService
	logger         *logger.Logger
}

// NewCompanyAdminHandler 创建入驻审核处理器实例
func NewCompanyAdminHandler(companyService *service.CompanyService, logger *logger.Logger) *CompanyAdminHandler {
	return &CompanyAdminHandler{
		companyService: companyService,
		logger:         logger,
	}
}

// ListRequests 入驻申请列表
// @Summary 入驻申请列表
// @Description 默认只返回待审核的申请
// @Tags 入驻审核
// @Produce json
// @Security Bearer
// @Param status query string false "申请状态"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/company-requests [get]
func (h *CompanyAdminHandler) ListRequests(c *gin.Context) {
	var query types.CompanyListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		handler.BindFailed(c, err)
		return
	}

	result, err := h.companyService.ListRequests(c.Request.Context(), query)
	if err != nil {
		handler.Fail(c, h.logger, "获取入驻申请", err)
		return
	}
	handler.Success(c, constants.SuccessGet, result)
}

// Approve 审核通过
// @Summary 审核通过入驻申请
// @Description 启用企业并创建企业管理员，新账号的临时密码通过邮件发送
// @Tags 入驻审核
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/company-requests/{id}/approve [post]
func (h *CompanyAdminHandler) Approve(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.companyService.Approve(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, h.logger, "审核通过", err)
		return
	}
	h.logger.Info("入驻申请已通过", "company_id", id, "admin_user_id", result.AdminUserID)
	handler.Success(c, constants.SuccessUpdate, result)
}

// Reject 驳回申请
func (h *CompanyAdminHandler) Reject(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req types.RejectCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindFailed(c, err)
		return
	}

	company, err := h.companyService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.Fail(c, h.logger, "驳回申请", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, company)
}
