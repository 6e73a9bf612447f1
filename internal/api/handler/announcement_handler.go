package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// AnnouncementHandler 公告处理器
type AnnouncementHandler struct {
	announcementService *service.AnnouncementService
	logger              *logger.Logger
}

// NewAnnouncementHandler 创建公告处理器实例
func NewAnnouncementHandler(announcementService *service.AnnouncementService, logger *logger.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcementService: announcementService,
		logger:              logger,
	}
}

// GetPublicAnnouncements 获取企业已发布的公告
// @Summary 公开公告列表
// @Description 无需登录，结果缓存5分钟
// @Tags 公告
// @Produce json
// @Param company_id query int true "企业ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/public/announcements [get]
func (h *AnnouncementHandler) GetPublicAnnouncements(c *gin.Context) {
	var query types.PublicAnnouncementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.announcementService.GetPublishedAnnouncements(c.Request.Context(), query.CompanyID, query.Page, query.Limit)
	if err != nil {
		Fail(c, h.logger, "获取公开公告", err)
		return
	}
	Success(c, constants.SuccessGet, result)
}

// GetSchemas 公告类型与元数据字段说明
func (h *AnnouncementHandler) GetSchemas(c *gin.Context) {
	Success(c, constants.SuccessGet, h.announcementService.Schemas())
}

// GetAnnouncements 公告列表
// @Summary 公告列表
// @Description 企业管理员查看本企业全部公告，其余角色只能看到已关注企业的已发布公告
// @Tags 公告
// @Produce json
// @Security Bearer
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/announcements [get]
func (h *AnnouncementHandler) GetAnnouncements(c *gin.Context) {
	var query types.AnnouncementListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.announcementService.GetAnnouncements(c.Request.Context(), middleware.CurrentActor(c), query)
	if err != nil {
		Fail(c, h.logger, "获取公告列表", err)
		return
	}
	Success(c, constants.SuccessGet, result)
}

// GetAnnouncement 公告详情
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	a, err := h.announcementService.GetAnnouncementByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		Fail(c, h.logger, "获取公告详情", err)
		return
	}
	Success(c, constants.SuccessGet, a)
}

// CreateAnnouncement 创建公告
// @Summary 创建公告
// @Tags 公告
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body types.CreateAnnouncementRequest true "公告内容"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/announcements [post]
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req types.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	a, err := h.announcementService.CreateAnnouncement(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		Fail(c, h.logger, "创建公告", err)
		return
	}
	Success(c, constants.SuccessCreate, a)
}

// UpdateAnnouncement 更新公告
func (h *AnnouncementHandler) UpdateAnnouncement(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req types.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	a, err := h.announcementService.UpdateAnnouncement(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		Fail(c, h.logger, "更新公告", err)
		return
	}
	Success(c, constants.SuccessUpdate, a)
}

// ScheduleAnnouncement 定时发布
func (h *AnnouncementHandler) ScheduleAnnouncement(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req types.ScheduleAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	a, err := h.announcementService.ScheduleAnnouncement(c.Request.Context(), middleware.CurrentActor(c), id, req.ScheduledFor)
	if err != nil {
		Fail(c, h.logger, "定时发布公告", err)
		return
	}
	Success(c, constants.SuccessUpdate, a)
}

// ResolveIncident 标记故障已解决
func (h *AnnouncementHandler) ResolveIncident(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req types.ResolveIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	a, err := h.announcementService.ResolveIncident(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		Fail(c, h.logger, "标记故障解决", err)
		return
	}
	Success(c, constants.SuccessUpdate, a)
}

// DeleteAnnouncement 删除公告
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.announcementService.DeleteAnnouncement(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		Fail(c, h.logger, "删除公告", err)
		return
	}
	Success(c, constants.SuccessDelete, nil)
}

type announcementAction func(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error)

// lifecycle 无请求体的状态变更操作
func (h *AnnouncementHandler) lifecycle(action string, fn announcementAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ParseID(c, "id")
		if !ok {
			return
		}
		a, err := fn(c.Request.Context(), middleware.CurrentActor(c), id)
		if err != nil {
			Fail(c, h.logger, action, err)
			return
		}
		Success(c, constants.SuccessUpdate, a)
	}
}

func (h *AnnouncementHandler) PublishAnnouncement() gin.HandlerFunc {
	return h.lifecycle("发布公告", h.announcementService.PublishAnnouncement)
}

func (h *AnnouncementHandler) UnscheduleAnnouncement() gin.HandlerFunc {
	return h.lifecycle("取消定时发布", h.announcementService.UnscheduleAnnouncement)
}

func (h *AnnouncementHandler) ArchiveAnnouncement() gin.HandlerFunc {
	return h.lifecycle("归档公告", h.announcementService.ArchiveAnnouncement)
}

func (h *AnnouncementHandler) RestoreAnnouncement() gin.HandlerFunc {
	return h.lifecycle("恢复公告", h.announcementService.RestoreAnnouncement)
}

func (h *AnnouncementHandler) MarkMaintenanceStart() gin.HandlerFunc {
	return h.lifecycle("标记维护开始", h.announcementService.MarkMaintenanceStart)
}

func (h *AnnouncementHandler) MarkMaintenanceComplete() gin.HandlerFunc {
	return h.lifecycle("标记维护结束", h.announcementService.MarkMaintenanceComplete)
}
