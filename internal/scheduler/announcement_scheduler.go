package scheduler

import (
	"context"
	"sync"
	"time"

	"helpdesk/pkg/logger"
)

const publishTimeout = 60 * time.Second

// DuePublisher 发布到期的定时公告，*service.AnnouncementService实现了该接口
type DuePublisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// AnnouncementScheduler 定时公告调度器
type AnnouncementScheduler struct {
	publisher DuePublisher
	interval  time.Duration
	logger    *logger.Logger
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// NewAnnouncementScheduler 创建定时公告调度器实例
func NewAnnouncementScheduler(publisher DuePublisher, interval time.Duration, logger *logger.Logger) *AnnouncementScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AnnouncementScheduler{
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start 启动调度器
func (s *AnnouncementScheduler) Start() {
	go s.run()
	s.logger.Info("定时公告调度器启动", "interval", s.interval)
}

// Stop 停止调度器并等待当前批次结束
func (s *AnnouncementScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.logger.Info("定时公告调度器停止")
	})
}

func (s *AnnouncementScheduler) run() {
	defer close(s.done)

	// 启动时先处理一次停机期间到期的公告
	s.publishDue()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publishDue()
		case <-s.quit:
			return
		}
	}
}

// publishDue 发布到期公告的具体实现
func (s *AnnouncementScheduler) publishDue() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	n, err := s.publisher.PublishDue(ctx)
	if err != nil {
		s.logger.Error("定时公告发布失败", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("定时公告发布完成", "count", n)
	}
}
