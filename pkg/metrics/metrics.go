// Package metrics 定义服务的Prometheus指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "helpdesk"

var (
	// HTTPRequestsTotal HTTP请求计数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AnnouncementTransitions 公告状态流转计数
	AnnouncementTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcement_transitions_total",
			Help:      "Announcement status transitions",
		},
		[]string{"to"},
	)

	// ArticleViews 已发布文章的浏览次数
	ArticleViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_views_total",
			Help:      "Views of published help-center articles",
		},
	)

	// TicketEvents 工单事件计数
	TicketEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_events_total",
			Help:      "Ticket lifecycle events",
		},
		[]string{"event"},
	)

	// CompanyRequests 企业入驻申请审核计数
	CompanyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "company_requests_total",
			Help:      "Company onboarding requests by outcome",
		},
		[]string{"outcome"},
	)

	// AsyncTasks 异步任务执行结果
	AsyncTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_tasks_total",
			Help:      "Async tasks by name and result",
		},
		[]string{"name", "result"},
	)

	// RateLimited 被限流的请求
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
