package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/config"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"go.uber.org/zap"
)

// GridBuilder 月历构建（Aggregator 实现）
type GridBuilder interface {
	BuildGrid(ctx context.Context, year, month int, filter GridFilter) (*domain.CalendarGrid, error)
}

// CacheManager 月历缓存管理器
// 网格整体写入、整体删除，不做增量修补；失效以整月为粒度
type CacheManager struct {
	builder GridBuilder
	kv      KVStore
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	builder GridBuilder,
	kv KVStore,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		builder: builder,
		kv:      kv,
		prefix:  cfg.Calendar.KeyPrefix,
		ttl:     cfg.Calendar.CacheTTL,
		logger:  logger,
	}
}

// gridKey {prefix}:grid:{YYYY-MM}:{room_type_id|all}
func (c *CacheManager) gridKey(ym domain.YearMonth, roomTypeID string) string {
	if roomTypeID == "" {
		roomTypeID = "all"
	}
	return fmt.Sprintf("%s:grid:%s:%s", c.prefix, ym, roomTypeID)
}

func (c *CacheManager) monthPattern(ym domain.YearMonth) string {
	return fmt.Sprintf("%s:grid:%s:*", c.prefix, ym)
}

// GetOrBuild 命中缓存直接返回，否则构建并整体写入
// 缓存读写失败只记录日志，不影响返回结果
func (c *CacheManager) GetOrBuild(ctx context.Context, year, month int, filter GridFilter) (*domain.CalendarGrid, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}
	key := c.gridKey(domain.YearMonth{Year: year, Month: time.Month(month)}, filter.RoomTypeID)

	val, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var grid domain.CalendarGrid
		uerr := json.Unmarshal([]byte(val), &grid)
		if uerr == nil {
			c.logger.Debug("Calendar grid cache hit", zap.String("key", key))
			return &grid, nil
		}
		c.logger.Warn("Discarding undecodable calendar grid", zap.String("key", key), zap.Error(uerr))
	case errors.Is(err, ErrCacheMiss):
	default:
		c.logger.Warn("Failed to read calendar grid cache", zap.String("key", key), zap.Error(err))
	}

	grid, err := c.builder.BuildGrid(ctx, year, month, filter)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(grid)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal calendar grid: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		c.logger.Warn("Failed to write calendar grid cache", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("Updated calendar grid cache",
			zap.String("key", key),
			zap.Duration("ttl", c.ttl),
		)
	}
	return grid, nil
}

// Invalidate 删除 (year, month) 的所有网格（全部房型和各房型过滤结果）
func (c *CacheManager) Invalidate(ctx context.Context, year, month int) error {
	return c.invalidateMonth(ctx, domain.YearMonth{Year: year, Month: time.Month(month)})
}

func (c *CacheManager) invalidateMonth(ctx context.Context, ym domain.YearMonth) error {
	keys, err := c.kv.ScanKeys(ctx, c.monthPattern(ym))
	if err != nil {
		return fmt.Errorf("failed to scan calendar keys for %s: %w", ym, err)
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete calendar keys for %s: %w", ym, err)
	}
	c.logger.Debug("Invalidated calendar month",
		zap.String("month", ym.String()),
		zap.Int("keys", len(keys)),
	)
	return nil
}

// InvalidateRange 一次变更涉及的所有区间，去重后逐月删除
func (c *CacheManager) InvalidateRange(ctx context.Context, ranges ...domain.DateRange) error {
	seen := map[domain.YearMonth]bool{}
	var errs []error
	for _, r := range ranges {
		for _, ym := range r.Months() {
			if seen[ym] {
				continue
			}
			seen[ym] = true
			if err := c.invalidateMonth(ctx, ym); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// InvalidateAll 结构性变更（单元生成/删除）后清空全部网格
func (c *CacheManager) InvalidateAll(ctx context.Context) error {
	keys, err := c.kv.ScanKeys(ctx, c.prefix+":grid:*")
	if err != nil {
		return fmt.Errorf("failed to scan calendar keys: %w", err)
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete calendar keys: %w", err)
	}
	c.logger.Info("Invalidated all calendar grids", zap.Int("keys", len(keys)))
	return nil
}
