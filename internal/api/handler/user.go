package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/middleware"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// UserHandler 用户与认证处理器
type UserHandler struct {
	userService *service.UserService
	logger      *logger.Logger
}

// NewUserHandler 创建用户处理器实例
func NewUserHandler(userService *service.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Register 用户注册
// @Summary 用户注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body types.RegisterRequest true "注册信息"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		Fail(c, h.logger, "注册", err)
		return
	}
	Success(c, constants.SuccessRegister, user)
}

// Login 用户登录
// @Summary 用户登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body types.LoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		Fail(c, h.logger, "登录", err)
		return
	}
	Success(c, constants.SuccessLogin, result)
}

// Logout 注销当前令牌
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		Fail(c, h.logger, "退出登录", err)
		return
	}
	Success(c, constants.SuccessLogout, nil)
}

// Me 当前用户信息
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context(), middleware.CurrentActor(c).UserID)
	if err != nil {
		Fail(c, h.logger, "获取用户信息", err)
		return
	}
	Success(c, constants.SuccessGet, user)
}

// CreateAgent 创建客服账号
func (h *UserHandler) CreateAgent(c *gin.Context) {
	var req types.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	agent, err := h.userService.CreateAgent(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		Fail(c, h.logger, "创建客服", err)
		return
	}
	Success(c, constants.SuccessCreate, agent)
}

// ListAgents 客服列表，平台管理员需要通过company_id指定企业
func (h *UserHandler) ListAgents(c *gin.Context) {
	companyID, _ := strconv.ParseInt(c.Query("company_id"), 10, 64)

	agents, err := h.userService.ListAgents(c.Request.Context(), middleware.CurrentActor(c), companyID)
	if err != nil {
		Fail(c, h.logger, "获取客服列表", err)
		return
	}
	Success(c, constants.SuccessGet, agents)
}
