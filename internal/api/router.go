package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"helpdesk/config"
	"helpdesk/internal/api/admin"
	"helpdesk/internal/api/apis"
	"helpdesk/internal/api/handler"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
	"helpdesk/pkg/captcha"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/sanitize"
	"helpdesk/pkg/sequence"
	"helpdesk/pkg/token"
)

// Deps 路由依赖的外部资源，由main负责创建与关闭
type Deps struct {
	DB          *sqlx.DB
	Redis       *redis.Client
	Verifier    captcha.Verifier
	Worker      service.TaskRunner
	Mailer      service.Mailer
	Tokens      *token.Manager
	Sanitizer   *sanitize.Sanitizer
	RateLimiter *middleware.RateLimiter
}

// App 组装完成的HTTP服务
type App struct {
	Router        *gin.Engine
	Announcements *service.AnnouncementService
}

// SetupRouter 初始化存储库、服务与处理器并设置API路由
func SetupRouter(cfg *config.Config, logger *logger.Logger, deps Deps) *App {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化存储库
	userRepo := repository.NewUserRepository(deps.DB)
	companyRepo := repository.NewCompanyRepository(deps.DB)
	followerRepo := repository.NewFollowerRepository(deps.DB)
	announcementRepo := repository.NewAnnouncementRepository(deps.DB)
	articleRepo := repository.NewArticleRepository(deps.DB)
	ticketRepo := repository.NewTicketRepository(deps.DB)
	ticketCategoryRepo := repository.NewTicketCategoryRepository(deps.DB)
	ticketResponseRepo := repository.NewTicketResponseRepository(deps.DB)
	txManager := repository.NewTxManager(deps.DB)
	codes := sequence.NewGenerator(deps.Redis)

	// 初始化服务
	userService := service.NewUserService(userRepo, companyRepo, deps.Tokens, logger)
	resetService := service.NewPasswordResetService(userRepo, deps.Redis, deps.Tokens, deps.Worker, deps.Mailer, logger)
	companyService := service.NewCompanyService(companyRepo, userRepo, followerRepo, txManager, codes, deps.Verifier, deps.Worker, deps.Mailer, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, followerRepo, deps.Redis, deps.Sanitizer, logger)
	articleService := service.NewArticleService(articleRepo, followerRepo, deps.Redis, deps.Sanitizer, logger)
	ticketService := service.NewTicketService(ticketRepo, ticketResponseRepo, ticketCategoryRepo, companyRepo, userRepo, txManager, codes, deps.Worker, deps.Mailer, deps.Sanitizer, logger)

	// 初始化处理器
	handlers := apis.Handlers{
		User:         handler.NewUserHandler(userService, logger),
		Password:     handler.NewPasswordResetHandler(resetService, logger),
		Company:      handler.NewCompanyHandler(companyService, logger),
		Announcement: handler.NewAnnouncementHandler(announcementService, logger),
		Article:      handler.NewArticleHandler(articleService, logger),
		Ticket:       handler.NewTicketHandler(ticketService, logger),
	}
	companyAdminHandler := admin.NewCompanyAdminHandler(companyService, logger)

	return &App{
		Router:        NewEngine(logger, userService, deps.RateLimiter, handlers, companyAdminHandler),
		Announcements: announcementService,
	}
}

// NewEngine 创建Gin引擎并注册全部路由
func NewEngine(logger *logger.Logger, auth middleware.Authenticator, limiter *middleware.RateLimiter, handlers apis.Handlers, companyAdminHandler *admin.CompanyAdminHandler) *gin.Engine {
	router := gin.New()

	// 使用中间件
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API版本v1
	v1 := router.Group("/api/v1")

	apis.RegisterPublicRoutes(v1, handlers, limiter.Middleware())

	authRouter := v1.Group("")
	authRouter.Use(middleware.UserAuth(auth))
	apis.RegisterAuthRoutes(authRouter, handlers)

	adminRouter := v1.Group("/admin")
	adminRouter.Use(middleware.UserAuth(auth), middleware.RequireRoles(model.RolePlatformAdmin))
	admin.RegisterAdminRoutes(adminRouter, companyAdminHandler)

	return router
}
