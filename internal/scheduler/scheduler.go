package scheduler

import (
	"context"
	"study_buddy_backend/pkg/logger"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Retrier 重新评估因存储故障而延后的徽章
type Retrier interface {
	RetryPending(ctx context.Context) (int, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	scheduler *gocron.Scheduler
	retrier   Retrier
	interval  time.Duration
	timeout   time.Duration
}

// New 创建调度器，timeout 为单次任务的最长执行时间
func New(retrier Retrier, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// 上一次未结束时跳过本次
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		retrier:   retrier,
		interval:  interval,
		timeout:   timeout,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.retryPendingBadges); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Log.Info("Scheduler started", zap.Duration("badge_retry_interval", s.interval))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunNow 立即执行一次徽章重试
func (s *Scheduler) RunNow() {
	s.retryPendingBadges()
}

func (s *Scheduler) retryPendingBadges() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.retrier.RetryPending(ctx)
	if err != nil {
		logger.Log.Error("Retry pending badge evaluations failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("Retried pending badge evaluations", zap.Int("users", n))
	}
}
