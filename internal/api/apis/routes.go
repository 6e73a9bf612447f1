package apis

import (
	"github.com/gin-gonic/gin"

	"helpdesk/internal/api/handler"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
)

// Handlers 所有业务处理器
type Handlers struct {
	User         *handler.UserHandler
	Password     *handler.PasswordResetHandler
	Company      *handler.CompanyHandler
	Announcement *handler.AnnouncementHandler
	Article      *handler.ArticleHandler
	Ticket       *handler.TicketHandler
}

// RegisterPublicRoutes 注册不需要认证的路由，limit用于登录、找回密码与入驻申请
func RegisterPublicRoutes(v1 *gin.RouterGroup, h Handlers, limit gin.HandlerFunc) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.User.Register)
		auth.POST("/login", limit, h.User.Login)
		auth.POST("/password/forgot", limit, h.Password.ForgotPassword)
		auth.POST("/password/reset", limit, h.Password.ResetPassword)
	}

	v1.POST("/company-requests", limit, h.Company.SubmitRequest)
	v1.GET("/companies", h.Company.ListCompanies)

	public := v1.Group("/public")
	{
		public.GET("/announcements", h.Announcement.GetPublicAnnouncements)
		public.GET("/announcement-schemas", h.Announcement.GetSchemas)
	}

	v1.GET("/article-categories", h.Article.ListCategories)
}

// RegisterAuthRoutes 注册需要认证的路由
func RegisterAuthRoutes(router *gin.RouterGroup, h Handlers) {
	companyAdmin := middleware.RequireRoles(model.RoleCompanyAdmin)

	router.POST("/auth/logout", h.User.Logout)
	router.GET("/auth/me", h.User.Me)

	agents := router.Group("/agents")
	agents.Use(middleware.RequireRoles(model.RolePlatformAdmin, model.RoleCompanyAdmin))
	{
		agents.POST("", h.User.CreateAgent)
		agents.GET("", h.User.ListAgents)
	}

	companies := router.Group("/companies")
	{
		companies.GET("/followed", h.Company.FollowedCompanies)
		companies.GET("/:id", h.Company.GetCompany)
		companies.POST("/:id/follow", h.Company.Follow)
		companies.DELETE("/:id/follow", h.Company.Unfollow)
	}

	announcements := router.Group("/announcements")
	{
		announcements.GET("", h.Announcement.GetAnnouncements)
		announcements.GET("/:id", h.Announcement.GetAnnouncement)
	}
	manage := announcements.Group("")
	manage.Use(companyAdmin)
	{
		manage.POST("", h.Announcement.CreateAnnouncement)
		manage.PATCH("/:id", h.Announcement.UpdateAnnouncement)
		manage.DELETE("/:id", h.Announcement.DeleteAnnouncement)
		manage.POST("/:id/publish", h.Announcement.PublishAnnouncement())
		manage.POST("/:id/schedule", h.Announcement.ScheduleAnnouncement)
		manage.POST("/:id/unschedule", h.Announcement.UnscheduleAnnouncement())
		manage.POST("/:id/archive", h.Announcement.ArchiveAnnouncement())
		manage.POST("/:id/restore", h.Announcement.RestoreAnnouncement())
		manage.POST("/:id/maintenance/start", h.Announcement.MarkMaintenanceStart())
		manage.POST("/:id/maintenance/complete", h.Announcement.MarkMaintenanceComplete())
		manage.POST("/:id/incident/resolve", h.Announcement.ResolveIncident)
	}

	articles := router.Group("/articles")
	{
		articles.GET("", h.Article.List)
		articles.GET("/:id", h.Article.View)
	}
	editor := articles.Group("")
	editor.Use(companyAdmin)
	{
		editor.POST("", h.Article.Create)
		editor.PATCH("/:id", h.Article.Update)
		editor.DELETE("/:id", h.Article.Delete)
		editor.POST("/:id/publish", h.Article.Publish)
		editor.POST("/:id/unpublish", h.Article.Unpublish)
	}

	categories := router.Group("/ticket-categories")
	{
		categories.GET("", h.Ticket.ListCategories)
		categories.POST("", companyAdmin, h.Ticket.CreateCategory)
		categories.PATCH("/:id", companyAdmin, h.Ticket.UpdateCategory)
	}

	tickets := router.Group("/tickets")
	{
		tickets.GET("", h.Ticket.List)
		tickets.POST("", h.Ticket.Create)
		tickets.GET("/:code", h.Ticket.Get)
		tickets.PATCH("/:code", h.Ticket.Update)
		tickets.DELETE("/:code", h.Ticket.Delete)
		tickets.POST("/:code/resolve", h.Ticket.Resolve)
		tickets.POST("/:code/close", h.Ticket.Close)
		tickets.POST("/:code/reopen", h.Ticket.Reopen)
		tickets.POST("/:code/assign", h.Ticket.Assign)
		tickets.GET("/:code/responses", h.Ticket.ListResponses)
		tickets.POST("/:code/responses", h.Ticket.AddResponse)
		tickets.PATCH("/:code/responses/:responseId", h.Ticket.UpdateResponse)
		tickets.DELETE("/:code/responses/:responseId", h.Ticket.DeleteResponse)
	}
}
