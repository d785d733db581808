package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/calendar"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/common/database"
	logpkg "github.com/captainjaypee01/cloud-haven-api-sub000/internal/common/logger"
	rediscommon "github.com/captainjaypee01/cloud-haven-api-sub000/internal/common/redis"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/config"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/consumer"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	httpapi "github.com/captainjaypee01/cloud-haven-api-sub000/internal/http"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "cloud-haven")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting cloud-haven inventory service")
	loc := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB 未就绪时退回内存仓库，便于联调
	var (
		db   *sql.DB
		repo repository.InventoryRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			repo = repository.NewPostgresInventoryRepo(db, cfg.Database.LockTimeout)
			logger.Info("DB enabled for cloud-haven")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repo", zap.Error(err))
		}
	}
	if repo == nil {
		mem := repository.NewMemoryInventoryRepo()
		seedDemoInventory(mem)
		repo = mem
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	redisUp := rediscommon.Ping(ctx, redisClient) == nil
	if !redisUp {
		logger.Warn("Redis unreachable, calendar cache and event consumer disabled", zap.String("addr", cfg.Redis.Addr))
	}

	var kv calendar.KVStore = calendar.NopKVStore{}
	if cfg.Calendar.CacheEnabled && redisUp {
		kv = calendar.NewRedisKVStore(redisClient)
	}
	cache := calendar.NewCacheManager(cfg, calendar.NewAggregator(repo, logger), kv, logger)

	windows := service.NewBlockedWindowService(repo, cache, loc, logger)
	units := service.NewUnitService(repo, cache, loc, logger)
	assignment := service.NewAssignmentService(repo, cache, loc, logger)
	reschedule := service.NewRescheduleService(repo, cache, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterCalendarRoutes(httpapi.NewCalendarHandler(cache, loc, logger))
	router.RegisterBlockedWindowRoutes(httpapi.NewBlockedWindowHandler(windows, logger))
	router.RegisterRoomUnitRoutes(httpapi.NewRoomUnitHandler(units, logger))
	router.RegisterReservationRoutes(httpapi.NewReservationHandler(assignment, reschedule, units, logger))

	if cfg.Sweep.Enabled {
		go service.NewExpirySweeper(windows, cfg.Sweep.Interval, logger).Start(ctx)
	}
	if cfg.Events.Enabled && redisUp {
		events := consumer.NewEventConsumer(
			redisClient,
			cache,
			logger,
			cfg.Events.Stream,
			cfg.Events.ConsumerGroup,
			cfg.Events.ConsumerName,
			int64(cfg.Events.BatchSize),
		)
		go func() {
			if err := events.Start(ctx); err != nil {
				logger.Error("Event consumer stopped", zap.Error(err))
			}
		}()
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", zap.Error(err))
	}
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)

	logger.Info("Service stopped")
}

// seedDemoInventory 内存模式下的演示房型和单元
func seedDemoInventory(repo *repository.MemoryInventoryRepo) {
	villa := repo.SeedRoomType(domain.RoomType{
		Name:         "Garden Villa",
		Kind:         domain.RoomKindOvernight,
		MinOccupancy: 2,
		MaxOccupancy: 4,
		NightlyRate:  650000,
		UnitCount:    5,
	})
	for _, n := range []string{"V1", "V2", "V3"} {
		repo.SeedUnit(domain.RoomUnit{RoomTypeID: villa, UnitNumber: n})
	}

	cottage := repo.SeedRoomType(domain.RoomType{
		Name:         "Day Cottage",
		Kind:         domain.RoomKindDayTour,
		MinOccupancy: 1,
		MaxOccupancy: 10,
		NightlyRate:  150000,
		UnitCount:    10,
	})
	for i := 1; i <= 6; i++ {
		repo.SeedUnit(domain.RoomUnit{RoomTypeID: cottage, UnitNumber: fmt.Sprintf("C%d", i)})
	}
}
