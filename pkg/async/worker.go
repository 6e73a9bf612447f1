package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"helpdesk/pkg/logger"
)

var (
	// ErrWorkerStopped 工作器已停止，不再接收任务
	ErrWorkerStopped = errors.New("worker stopped")
	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("task queue full")
)

const resultKeyPrefix = "async:task:"

// Task 表示一个异步任务
type Task struct {
	ID       string
	Name     string
	Handler  func(ctx context.Context) error
	Timeout  time.Duration
	RetryMax int
}

// Result 表示任务执行结果
type Result struct {
	TaskID    string    `json:"task_id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Worker 异步任务处理器，任务结果写入Redis并按TTL过期
type Worker struct {
	taskQueue   chan Task
	redisClient *redis.Client
	resultTTL   time.Duration

	// mu 只保护 stopped 与关闭队列
	mu      sync.RWMutex
	stopped bool

	logger   *logger.Logger
	wg       sync.WaitGroup
	backoff  time.Duration
	timeout  time.Duration
	retryMax int
}

// NewWorker 创建一个新的工作器
func NewWorker(queueSize int, redisClient *redis.Client, logger *logger.Logger) *Worker {
	return &Worker{
		taskQueue:   make(chan Task, queueSize),
		redisClient: redisClient,
		resultTTL:   24 * time.Hour,
		logger:      logger,
		backoff:     time.Second,
		timeout:     30 * time.Second,
		retryMax:    2,
	}
}

// SetBackoff 设置重试的基础退避时间
func (w *Worker) SetBackoff(d time.Duration) {
	w.backoff = d
}

// SetResultTTL 设置任务结果在Redis中的保留时间
func (w *Worker) SetResultTTL(d time.Duration) {
	w.resultTTL = d
}

// Start 启动工作器
func (w *Worker) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.processTask()
	}
}

// Stop 停止接收新任务，并等待队列中的任务全部执行完毕
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.taskQueue)
	w.mu.Unlock()
	w.wg.Wait()
}

// AddTask 将任务加入队列，返回任务ID。队列已满时立即返回 ErrQueueFull
func (w *Worker) AddTask(name string, handler func(ctx context.Context) error) (string, error) {
	task := Task{
		ID:       uuid.NewString(),
		Name:     name,
		Handler:  handler,
		Timeout:  w.timeout,
		RetryMax: w.retryMax,
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return "", ErrWorkerStopped
	}
	select {
	case w.taskQueue <- task:
		return task.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// GetResult 获取任务结果，结果过期或任务未结束时 found 为 false
func (w *Worker) GetResult(ctx context.Context, taskID string) (result Result, found bool, err error) {
	data, err := w.redisClient.Get(ctx, resultKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("读取任务结果失败: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false, fmt.Errorf("解析任务结果失败: %w", err)
	}
	return result, true, nil
}

// processTask 处理任务的工作循环
func (w *Worker) processTask() {
	defer w.wg.Done()

	for task := range w.taskQueue {
		w.executeTask(task)
	}
}

// executeTask 执行单个任务，失败时按尝试次数线性退避重试
func (w *Worker) executeTask(task Task) {
	result := Result{
		TaskID:    task.ID,
		Name:      task.Name,
		StartTime: time.Now(),
	}

	w.logger.Debug("开始执行异步任务", "task_id", task.ID, "name", task.Name)

	var err error
	for attempt := 0; attempt <= task.RetryMax; attempt++ {
		if attempt > 0 {
			w.logger.Info("重试异步任务", "task_id", task.ID, "attempt", attempt)
			time.Sleep(w.backoff * time.Duration(attempt))
		}

		result.Attempts++
		err = w.run(task)
		if err == nil {
			break
		}

		w.logger.Warn("异步任务执行失败", "task_id", task.ID, "attempt", attempt, "error", err)
	}

	result.EndTime = time.Now()
	result.Completed = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	w.saveResult(result)

	if err != nil {
		w.logger.Error("异步任务最终失败", "task_id", task.ID, "name", task.Name, "error", err)
	} else {
		w.logger.Debug("异步任务完成", "task_id", task.ID, "duration", result.EndTime.Sub(result.StartTime))
	}
}

func (w *Worker) saveResult(result Result) {
	data, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("序列化任务结果失败", "task_id", result.TaskID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := w.redisClient.Set(ctx, resultKeyPrefix+result.TaskID, data, w.resultTTL).Err(); err != nil {
		w.logger.Warn("保存任务结果失败", "task_id", result.TaskID, "error", err)
	}
}

func (w *Worker) run(task Task) error {
	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	return task.Handler(ctx)
}
