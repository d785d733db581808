package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiryDeactivator BlockedWindowService 的过期处理能力
type ExpiryDeactivator interface {
	DeactivateExpired(ctx context.Context) (int, error)
}

// ExpirySweeper 定时把过期的封锁窗口置为 inactive
// 多实例同时运行也安全：每行更新都以 active = TRUE 为条件
type ExpirySweeper struct {
	windows  ExpiryDeactivator
	interval time.Duration
	logger   *zap.Logger
}

// NewExpirySweeper 创建过期清扫任务
func NewExpirySweeper(windows ExpiryDeactivator, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpirySweeper{
		windows:  windows,
		interval: interval,
		logger:   logger,
	}
}

// Start 启动时先执行一次，然后按间隔执行，直到 ctx 取消
func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting blocked window expiry sweeper",
		zap.Duration("interval", s.interval),
	)

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Blocked window expiry sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一次清扫，返回本次置为 inactive 的数量
// 失败只记录日志，下一个周期重试
func (s *ExpirySweeper) RunOnce(ctx context.Context) int {
	n, err := s.windows.DeactivateExpired(ctx)
	if err != nil {
		s.logger.Error("Blocked window expiry sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("Blocked window expiry sweep completed", zap.Int("deactivated", n))
	} else {
		s.logger.Debug("Blocked window expiry sweep found nothing to deactivate")
	}
	return n
}
