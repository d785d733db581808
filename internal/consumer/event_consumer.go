package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "github.com/captainjaypee01/cloud-haven-api-sub000/internal/common/redis"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 预订事件类型（由外部预订流程发布）
const (
	EventReservationCreated       = "reservation.created"
	EventReservationCancelled     = "reservation.cancelled"
	EventReservationStatusChanged = "reservation.status_changed"
	EventReservationDatesChanged  = "reservation.dates_changed"
)

// errMalformedEvent 无法解析的消息，记录后直接确认，不再重试
var errMalformedEvent = errors.New("malformed event")

// RangeInvalidator 月历缓存失效（calendar.CacheManager 实现）
type RangeInvalidator interface {
	InvalidateRange(ctx context.Context, ranges ...domain.DateRange) error
}

// ReservationEvent 预订事件
// dates_changed 额外携带原日期
type ReservationEvent struct {
	EventType        string          `json:"event_type"`
	ReservationID    string          `json:"reservation_id"`
	Kind             domain.RoomKind `json:"kind"`
	CheckIn          string          `json:"check_in"`
	CheckOut         string          `json:"check_out,omitempty"`
	PreviousCheckIn  string          `json:"previous_check_in,omitempty"`
	PreviousCheckOut string          `json:"previous_check_out,omitempty"`
	Timestamp        int64           `json:"timestamp"`
}

// EventConsumer 消费预订事件并失效受影响月份的月历缓存
type EventConsumer struct {
	redisClient  *redis.Client
	cache        RangeInvalidator
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration
}

// NewEventConsumer 创建事件消费者
func NewEventConsumer(
	redisClient *redis.Client,
	cache RangeInvalidator,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *EventConsumer {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &EventConsumer{
		redisClient:  redisClient,
		cache:        cache,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        2 * time.Second,
	}
}

// Start 启动事件消费者，直到 ctx 取消
func (c *EventConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	// 读取失败时指数退避
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.consumeEvents(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume events",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// consumeEvents 读取一批消息并处理，返回已确认的数量
func (c *EventConsumer) consumeEvents(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		c.consumerName,
		c.batchSize,
		c.block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	acked := 0
	for _, msg := range messages {
		if err := c.handleMessage(ctx, msg); err != nil {
			if !errors.Is(err, errMalformedEvent) {
				// 未确认的消息留在 pending 列表，等待重新投递
				c.logger.Error("Failed to process event",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
				continue
			}
			c.logger.Warn("Dropping malformed event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		if err := rediscommon.AckMessage(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		acked++
	}
	return acked, nil
}

// handleMessage 解析事件并失效受影响的日期范围
func (c *EventConsumer) handleMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := parseEvent(msg)
	if err != nil {
		return err
	}
	ranges, err := event.ranges()
	if err != nil {
		return err
	}

	c.logger.Debug("Processing reservation event",
		zap.String("event_type", event.EventType),
		zap.String("reservation_id", event.ReservationID),
		zap.Int("ranges", len(ranges)),
	)
	if err := c.cache.InvalidateRange(ctx, ranges...); err != nil {
		return fmt.Errorf("failed to invalidate calendar cache: %w", err)
	}
	return nil
}

// parseEvent 优先解析 data 字段中的 JSON，否则从各字段读取
func parseEvent(msg rediscommon.StreamMessage) (*ReservationEvent, error) {
	event := &ReservationEvent{}
	if dataStr, ok := msg.Values["data"].(string); ok {
		if err := json.Unmarshal([]byte(dataStr), event); err != nil {
			return nil, fmt.Errorf("%w: invalid data payload: %v", errMalformedEvent, err)
		}
	} else {
		event.EventType = stringValue(msg.Values, "event_type")
		event.ReservationID = stringValue(msg.Values, "reservation_id")
		event.Kind = domain.RoomKind(stringValue(msg.Values, "kind"))
		event.CheckIn = stringValue(msg.Values, "check_in")
		event.CheckOut = stringValue(msg.Values, "check_out")
		event.PreviousCheckIn = stringValue(msg.Values, "previous_check_in")
		event.PreviousCheckOut = stringValue(msg.Values, "previous_check_out")
	}

	switch event.EventType {
	case EventReservationCreated, EventReservationCancelled,
		EventReservationStatusChanged, EventReservationDatesChanged:
	case "":
		return nil, fmt.Errorf("%w: missing event_type", errMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown event_type %q", errMalformedEvent, event.EventType)
	}
	return event, nil
}

// ranges 事件涉及的占用区间；dates_changed 同时包含新旧区间
func (e *ReservationEvent) ranges() ([]domain.DateRange, error) {
	current, err := stayRange(e.Kind, e.CheckIn, e.CheckOut)
	if err != nil {
		return nil, err
	}
	out := []domain.DateRange{current}
	if e.EventType == EventReservationDatesChanged {
		previous, err := stayRange(e.Kind, e.PreviousCheckIn, e.PreviousCheckOut)
		if err != nil {
			return nil, err
		}
		out = append(out, previous)
	}
	return out, nil
}

func stayRange(kind domain.RoomKind, checkIn, checkOut string) (domain.DateRange, error) {
	if kind == "" {
		kind = domain.RoomKindOvernight
	}
	in, err := domain.ParseDay(checkIn)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: check_in: %v", errMalformedEvent, err)
	}
	var out time.Time
	if checkOut != "" {
		if out, err = domain.ParseDay(checkOut); err != nil {
			return domain.DateRange{}, fmt.Errorf("%w: check_out: %v", errMalformedEvent, err)
		}
	}
	rng, err := domain.ValidateStay(kind, in, out)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	return rng, nil
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
