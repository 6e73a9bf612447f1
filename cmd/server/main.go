package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk/config"
	"helpdesk/internal/api"
	"helpdesk/internal/middleware"
	"helpdesk/internal/scheduler"
	"helpdesk/internal/types"
	"helpdesk/pkg/async"
	"helpdesk/pkg/captcha"
	"helpdesk/pkg/database"
	"helpdesk/pkg/email"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/network"
	"helpdesk/pkg/sanitize"
	"helpdesk/pkg/token"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer logger.Close()

	if err := types.RegisterValidators(); err != nil {
		logger.Fatal("注册参数校验规则失败", "error", err)
	}

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "error", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal("数据库迁移失败", "error", err)
		}
		logger.Info("数据库迁移完成")
	}

	// 初始化Redis连接
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("无法链接到Redis", "error", err)
	}
	defer redisClient.Close()

	// 创建异步工作器
	worker := async.NewWorker(100, redisClient, logger)
	worker.Start(5)
	defer worker.Stop()

	// 初始化邮件服务
	emailService := email.NewService(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)
	if cfg.Email.Host != "" {
		if err := network.CheckPort(context.Background(), cfg.Email.Host, cfg.Email.Port); err != nil {
			logger.Warn("SMTP服务器不可达，通知邮件将在重试后失败", "host", cfg.Email.Host, "error", err)
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	app := api.SetupRouter(cfg, logger, api.Deps{
		DB:          db,
		Redis:       redisClient,
		Verifier:    captcha.New(cfg.Geetest.CaptchaID, cfg.Geetest.CaptchaKey, cfg.Geetest.APIServer),
		Worker:      worker,
		Mailer:      emailService,
		Tokens:      token.NewManager(token.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL}, redisClient),
		Sanitizer:   sanitize.New(),
		RateLimiter: limiter,
	})

	// 定时发布到期的公告
	announcementScheduler := scheduler.NewAnnouncementScheduler(app.Announcements, cfg.Scheduler.AnnouncementInterval, logger)
	announcementScheduler.Start()
	defer announcementScheduler.Stop()

	// 创建HTTP服务器
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info(fmt.Sprintf("服务器启动于端口: %d", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("启动服务器失败", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器被强制关闭", "error", err)
		return
	}

	logger.Info("服务器已正常退出")
}
