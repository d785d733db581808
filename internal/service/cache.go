package service

import (
	"context"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"go.uber.org/zap"
)

// CacheInvalidator 月历缓存失效（calendar.CacheManager 实现）
// 每次变更提交后调用一次
type CacheInvalidator interface {
	InvalidateRange(ctx context.Context, ranges ...domain.DateRange) error
	InvalidateAll(ctx context.Context) error
}

// invalidateRanges 变更已提交，失效失败只记录日志，过期由 TTL 兜底
func invalidateRanges(ctx context.Context, cache CacheInvalidator, logger *zap.Logger, ranges ...domain.DateRange) {
	if cache == nil || len(ranges) == 0 {
		return
	}
	if err := cache.InvalidateRange(ctx, ranges...); err != nil {
		logger.Warn("Failed to invalidate calendar cache", zap.Error(err))
	}
}

func invalidateAll(ctx context.Context, cache CacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateAll(ctx); err != nil {
		logger.Warn("Failed to invalidate calendar cache", zap.Error(err))
	}
}

// clock 物业时区下的 "今天"
type clock struct {
	loc *time.Location
	now func() time.Time
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{loc: loc, now: time.Now}
}

func (c clock) today() time.Time {
	return domain.Day(c.now().In(c.loc))
}
