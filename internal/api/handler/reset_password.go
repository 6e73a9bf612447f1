package handler

import (
	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// PasswordResetHandler 找回密码处理器
type PasswordResetHandler struct {
	resetService *service.PasswordResetService
	logger       *logger.Logger
}

// NewPasswordResetHandler 创建找回密码处理器
func NewPasswordResetHandler(resetService *service.PasswordResetService, logger *logger.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{resetService: resetService, logger: logger}
}

// ForgotPassword 发送重置验证码
// @Summary 发送密码重置验证码
// @Description 邮箱未注册时同样返回成功
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body types.ForgotPasswordRequest true "邮箱"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/auth/password/forgot [post]
func (h *PasswordResetHandler) ForgotPassword(c *gin.Context) {
	var req types.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	if err := h.resetService.RequestReset(c.Request.Context(), req); err != nil {
		Fail(c, h.logger, "发送重置验证码", err)
		return
	}
	Success(c, constants.SuccessResetCodeSent, nil)
}

// ResetPassword 重置密码
// @Summary 使用验证码重置密码
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body types.ResetPasswordRequest true "邮箱、验证码与新密码"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/auth/password/reset [post]
func (h *PasswordResetHandler) ResetPassword(c *gin.Context) {
	var req types.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	if err := h.resetService.ResetPassword(c.Request.Context(), req); err != nil {
		Fail(c, h.logger, "重置密码", err)
		return
	}
	Success(c, constants.SuccessPasswordReset, nil)
}
