package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/captainjaypee01/cloud-haven-api-sub000/internal/common/config"
)

// Config cloud-haven 房态库存服务配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig

	// Calendar 月历网格缓存
	Calendar struct {
		CacheEnabled bool
		CacheTTL     time.Duration
		KeyPrefix    string
	}

	// Sweep 封锁窗口过期清扫
	Sweep struct {
		Enabled  bool
		Interval time.Duration
	}

	// Events 预订事件流（Redis Streams），外部预订流程发布，用于缓存失效
	Events struct {
		Enabled       bool
		Stream        string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int
	}

	// PropertyTimezone 物业所在时区，"今天" 以该时区为准
	PropertyTimezone string

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "cloudhaven"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LockTimeout = 5 * time.Second
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Calendar.CacheEnabled = getEnv("CALENDAR_CACHE_ENABLED", "true") == "true"
	cfg.Calendar.CacheTTL = time.Duration(parseInt(getEnv("CALENDAR_CACHE_TTL", "3600"), 3600)) * time.Second
	cfg.Calendar.KeyPrefix = getEnv("CALENDAR_KEY_PREFIX", "cloud-haven:calendar")

	cfg.Sweep.Enabled = getEnv("SWEEP_ENABLED", "true") == "true"
	cfg.Sweep.Interval = time.Duration(parseInt(getEnv("SWEEP_INTERVAL", "300"), 300)) * time.Second

	cfg.Events.Enabled = getEnv("EVENTS_ENABLED", "false") == "true"
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "inventory:events")
	cfg.Events.ConsumerGroup = getEnv("EVENTS_GROUP", "cloud-haven-calendar")
	cfg.Events.ConsumerName = getEnv("EVENTS_CONSUMER", "cloud-haven-1")
	cfg.Events.BatchSize = parseInt(getEnv("EVENTS_BATCH_SIZE", "10"), 10)

	cfg.PropertyTimezone = getEnv("PROPERTY_TIMEZONE", "Asia/Manila")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Location 解析物业时区，无效时退回 UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.PropertyTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
