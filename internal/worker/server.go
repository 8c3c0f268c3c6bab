package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"chatpaint/internal/repository"
	"chatpaint/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 和周期调度器的启动和关闭逻辑
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	log       *logrus.Entry
	userRepo  repository.UserRepository
	guestTTL  time.Duration
}

// NewWorkerServer 创建一个新的 WorkerServer 实例。
// guestTTL 是访客账号的存活时长，应与访问令牌的有效期保持一致。
func NewWorkerServer(redisOpt asynq.RedisClientOpt, userRepo repository.UserRepository, guestTTL time.Duration, logger *logrus.Logger) *WorkerServer {
	if userRepo == nil {
		panic("UserRepository cannot be nil for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	return &WorkerServer{
		server:    server,
		scheduler: scheduler,
		log:       logEntry,
		userRepo:  userRepo,
		guestTTL:  guestTTL,
	}
}

// Start 运行 Worker Server 和调度器。
// 它应该在单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	// 注册任务处理器
	guestPurgeHandler := NewGuestPurgeHandler(ws.userRepo)
	mux.HandleFunc(tasks.TypeGuestPurge, guestPurgeHandler.ProcessTask)

	// 注册周期任务：每小时清理一次过期访客账号
	payload, err := tasks.NewGuestPurgeTask(ws.guestTTL)
	if err != nil {
		ws.log.Fatalf("Could not build guest purge payload: %v", err)
	}
	if _, err := ws.scheduler.Register("@every 1h", asynq.NewTask(tasks.TypeGuestPurge, payload)); err != nil {
		ws.log.Fatalf("Could not register guest purge schedule: %v", err)
	}

	go func() {
		if err := ws.scheduler.Run(); err != nil {
			ws.log.Errorf("Scheduler stopped with error: %v", err)
		}
	}()

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server 和调度器
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
