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

// TicketHandler 工单处理器
type TicketHandler struct {
	ticketService *service.TicketService
	logger        *logger.Logger
}

// NewTicketHandler 创建工单处理器实例
func NewTicketHandler(ticketService *service.TicketService, logger *logger.Logger) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        logger,
	}
}

// ListCategories 工单分类列表，非企业成员只能看到启用的分类
func (h *TicketHandler) ListCategories(c *gin.Context) {
	companyID, _ := strconv.ParseInt(c.Query("company_id"), 10, 64)

	categories, err := h.ticketService.ListCategories(c.Request.Context(), middleware.CurrentActor(c), companyID)
	if err != nil {
		Fail(c, h.logger, "获取工单分类", err)
		return
	}
	Success(c, constants.SuccessGet, categories)
}

// CreateCategory 创建工单分类
func (h *TicketHandler) CreateCategory(c *gin.Context) {
	var req types.TicketCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	category, err := h.ticketService.CreateCategory(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		Fail(c, h.logger, "创建工单分类", err)
		return
	}
	Success(c, constants.SuccessCreate, category)
}

// UpdateCategory 更新工单分类
func (h *TicketHandler) UpdateCategory(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req types.TicketCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	category, err := h.ticketService.UpdateCategory(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		Fail(c, h.logger, "更新工单分类", err)
		return
	}
	Success(c, constants.SuccessUpdate, category)
}

// Create 创建工单
// @Summary 创建工单
// @Description 工单编号按年生成，例如TKT-2025-000001
// @Tags 工单
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body types.CreateTicketRequest true "工单信息"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/tickets [post]
func (h *TicketHandler) Create(c *gin.Context) {
	var req types.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	ticket, err := h.ticketService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		Fail(c, h.logger, "创建工单", err)
		return
	}
	Success(c, constants.SuccessCreate, ticket)
}

// List 工单列表
// @Summary 工单列表
// @Tags 工单
// @Produce json
// @Security Bearer
// @Param status query string false "状态"
// @Param owner_agent_id query string false "null、me或客服ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/tickets [get]
func (h *TicketHandler) List(c *gin.Context) {
	var query types.TicketListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.ticketService.List(c.Request.Context(), middleware.CurrentActor(c), query)
	if err != nil {
		Fail(c, h.logger, "获取工单列表", err)
		return
	}
	Success(c, constants.SuccessGet, result)
}

func (h *TicketHandler) Get(c *gin.Context) {
	ticket, err := h.ticketService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"))
	if err != nil {
		Fail(c, h.logger, "获取工单", err)
		return
	}
	Success(c, constants.SuccessGet, ticket)
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req types.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	ticket, err := h.ticketService.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"), req)
	if err != nil {
		Fail(c, h.logger, "更新工单", err)
		return
	}
	Success(c, constants.SuccessUpdate, ticket)
}

func (h *TicketHandler) Resolve(c *gin.Context) {
	ticket, err := h.ticketService.Resolve(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"))
	if err != nil {
		Fail(c, h.logger, "解决工单", err)
		return
	}
	Success(c, constants.SuccessUpdate, ticket)
}

func (h *TicketHandler) Close(c *gin.Context) {
	ticket, err := h.ticketService.Close(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"))
	if err != nil {
		Fail(c, h.logger, "关闭工单", err)
		return
	}
	Success(c, constants.SuccessUpdate, ticket)
}

func (h *TicketHandler) Reopen(c *gin.Context) {
	ticket, err := h.ticketService.Reopen(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"))
	if err != nil {
		Fail(c, h.logger, "重新打开工单", err)
		return
	}
	Success(c, constants.SuccessUpdate, ticket)
}

// Assign 分配工单给本企业客服
func (h *TicketHandler) Assign(c *gin.Context) {
	var req types.AssignTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	ticket, err := h.ticketService.Assign(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"), req.AgentID)
	if err != nil {
		Fail(c, h.logger, "分配工单", err)
		return
	}
	Success(c, constants.SuccessUpdate, ticket)
}

// Delete 删除已关闭的工单
func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.ticketService.Delete(c.Request.Context(), middleware.CurrentActor(c), c.Param("code")); err != nil {
		Fail(c, h.logger, "删除工单", err)
		return
	}
	Success(c, constants.SuccessDelete, nil)
}

// AddResponse 回复工单
func (h *TicketHandler) AddResponse(c *gin.Context) {
	var req types.TicketResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	response, err := h.ticketService.AddResponse(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"), req.Content)
	if err != nil {
		Fail(c, h.logger, "回复工单", err)
		return
	}
	Success(c, constants.SuccessCreate, response)
}

func (h *TicketHandler) ListResponses(c *gin.Context) {
	responses, err := h.ticketService.ListResponses(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"))
	if err != nil {
		Fail(c, h.logger, "获取工单回复", err)
		return
	}
	Success(c, constants.SuccessGet, responses)
}

// UpdateResponse 作者修改回复，创建30分钟内有效
func (h *TicketHandler) UpdateResponse(c *gin.Context) {
	responseID, ok := ParseID(c, "responseId")
	if !ok {
		return
	}
	var req types.TicketResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	response, err := h.ticketService.UpdateResponse(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"), responseID, req.Content)
	if err != nil {
		Fail(c, h.logger, "修改工单回复", err)
		return
	}
	Success(c, constants.SuccessUpdate, response)
}

func (h *TicketHandler) DeleteResponse(c *gin.Context) {
	responseID, ok := ParseID(c, "responseId")
	if !ok {
		return
	}
	if err := h.ticketService.DeleteResponse(c.Request.Context(), middleware.CurrentActor(c), c.Param("code"), responseID); err != nil {
		Fail(c, h.logger, "删除工单回复", err)
		return
	}
	Success(c, constants.SuccessDelete, nil)
}
