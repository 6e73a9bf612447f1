package handler

import (
	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/middleware"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// ArticleHandler 帮助中心文章处理器
type ArticleHandler struct {
	articleService *service.ArticleService
	logger         *logger.Logger
}

// NewArticleHandler 创建文章处理器实例
func NewArticleHandler(articleService *service.ArticleService, logger *logger.Logger) *ArticleHandler {
	return &ArticleHandler{
		articleService: articleService,
		logger:         logger,
	}
}

// ListCategories 文章分类
func (h *ArticleHandler) ListCategories(c *gin.Context) {
	categories, err := h.articleService.ListCategories(c.Request.Context())
	if err != nil {
		Fail(c, h.logger, "获取文章分类", err)
		return
	}
	Success(c, constants.SuccessGet, categories)
}

// List 文章列表
// @Summary 帮助中心文章列表
// @Tags 帮助中心
// @Produce json
// @Security Bearer
// @Param category query string false "分类代码"
// @Param sort query string false "排序字段"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/articles [get]
func (h *ArticleHandler) List(c *gin.Context) {
	var query types.ArticleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BindFailed(c, err)
		return
	}

	result, err := h.articleService.List(c.Request.Context(), middleware.CurrentActor(c), query)
	if err != nil {
		Fail(c, h.logger, "获取文章列表", err)
		return
	}
	Success(c, constants.SuccessGet, result)
}

// View 查看文章，已发布文章浏览量加一
func (h *ArticleHandler) View(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.View(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		Fail(c, h.logger, "获取文章", err)
		return
	}
	Success(c, constants.SuccessGet, article)
}

// Create 创建文章
func (h *ArticleHandler) Create(c *gin.Context) {
	var req types.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	article, err := h.articleService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		Fail(c, h.logger, "创建文章", err)
		return
	}
	Success(c, constants.SuccessCreate, article)
}

func (h *ArticleHandler) Update(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req types.UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindFailed(c, err)
		return
	}

	article, err := h.articleService.Update(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		Fail(c, h.logger, "更新文章", err)
		return
	}
	Success(c, constants.SuccessUpdate, article)
}

func (h *ArticleHandler) Publish(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.Publish(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		Fail(c, h.logger, "发布文章", err)
		return
	}
	Success(c, constants.SuccessUpdate, article)
}

func (h *ArticleHandler) Unpublish(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.Unpublish(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		Fail(c, h.logger, "撤回文章", err)
		return
	}
	Success(c, constants.SuccessUpdate, article)
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.articleService.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		Fail(c, h.logger, "删除文章", err)
		return
	}
	Success(c, constants.SuccessDelete, nil)
}
