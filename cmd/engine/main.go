// Package main - точка входа движка прогрессии.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика (XP, серии, усилители, сессии, сбросы)
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: scheduler, event bus, PostgreSQL, Redis, уведомления
// - Interface: HTTP endpoints для HUD
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/momentum-hub/progression-engine/config"
	"github.com/momentum-hub/progression-engine/internal/application/command"
	"github.com/momentum-hub/progression-engine/internal/application/query"
	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/messaging"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/persistence/redis"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/scheduler"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/scheduler/jobs"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/service"
	httpserver "github.com/momentum-hub/progression-engine/internal/interface/http"
	"github.com/momentum-hub/progression-engine/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:  cfg.Observability.LogLevel,
		Format: logger.Format(cfg.Observability.LogFormat),
	})
	slog.SetDefault(log)

	log.Info("starting progression engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
		"user_id", cfg.App.UserID,
	)

	clock := shared.SystemClock{}
	instanceID := uuid.NewString()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var dbConn *postgres.Connection
	var snapshotRepo *postgres.SnapshotRepository
	var eventLogRepo *postgres.EventLogRepository

	if !cfg.Database.Disabled {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		snapshotRepo = postgres.NewSnapshotRepository(dbConn)
		eventLogRepo = postgres.NewEventLogRepository(dbConn)
		log.Info("database connection established")
	} else {
		log.Warn("database disabled, state will not survive restarts")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var hudCache *redis.HUDCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			hudCache = redis.NewHUDCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ВОССТАНОВЛЕНИЕ СОСТОЯНИЯ
	// Горячий снимок из Redis, затем PostgreSQL, иначе чистое состояние.
	// ─────────────────────────────────────────────────────────────────────────
	initial := engine.NewState(clock.Now(), cfg.App.Location)
	restored := false

	if hudCache != nil {
		cached, err := hudCache.GetSnapshot(ctx, cfg.App.UserID)
		if err != nil {
			log.Warn("redis snapshot lookup failed", "error", err)
		} else if cached != nil {
			initial = cached
			restored = true
			log.Info("state restored from redis hot snapshot")
		}
	}

	if !restored && snapshotRepo != nil {
		record, err := snapshotRepo.LoadLatest(ctx, cfg.App.UserID)
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		if record != nil {
			initial = record.State
			restored = true
			log.Info("state restored from snapshot",
				"snapshot_id", record.ID,
				"created_at", record.CreatedAt,
			)
		}
	}

	if !restored {
		log.Info("no snapshot found, starting fresh")
	}

	store := engine.NewStore(initial, clock, log)
	catalog := powerup.DefaultCatalog()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.AsyncMode = true
	localBus := messaging.NewInMemoryEventBus(busConfig)

	var bus shared.EventBus = localBus
	var redisBus *messaging.RedisEventBus

	if redisCache != nil {
		redisBus = messaging.NewRedisEventBus(localBus, redisCache, instanceID, log)
		if err := redisBus.Start(ctx); err != nil {
			log.Warn("failed to start Redis event fan-out", "error", err)
			redisBus = nil
		} else {
			bus = redisBus
		}
	}
	defer func() {
		log.Info("closing event bus...")
		if redisBus != nil {
			_ = redisBus.Close()
		} else {
			_ = localBus.Close()
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	addXP := command.NewAddXPHandler(store, catalog, bus)
	spendXP := command.NewSpendXPHandler(store, bus)
	convertXP := command.NewConvertXPToGoldHandler(store, catalog, bus)
	updateStreak := command.NewUpdateStreakHandler(store, catalog, cfg.App.Location, bus)
	recordActivity := command.NewRecordDailyActivityHandler(store, cfg.App.Location)
	buyPowerUp := command.NewBuyPowerUpHandler(store, catalog, bus)
	activatePowerUp := command.NewActivatePowerUpHandler(store, catalog, bus)
	expirePowerUp := command.NewExpirePowerUpHandler(store, bus)
	startSession := command.NewStartSessionHandler(store, bus)
	endSession := command.NewEndSessionHandler(store, catalog, cfg.App.Location, bus)
	checkReset := command.NewCheckDailyResetHandler(store, cfg.App.Location)
	performReset := command.NewPerformDailyResetHandler(store, cfg.App.Location, bus)
	checkRollover := command.NewCheckRolloverHandler(store, cfg.App.Location)
	applyPenalty := command.NewApplyInactivityPenaltyHandler(store, cfg.App.Location, bus)
	regenEnergy := command.NewRegenEnergyHandler(store, bus)

	getProgress := query.NewGetProgressHandler(store)
	getStreak := query.NewGetStreakHandler(store, cfg.App.Location)
	getPowerUps := query.NewGetActivePowerUpsHandler(store, catalog)
	getResetCountdown := query.NewGetResetCountdownHandler(store)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		EventBus:            bus,
		DeadLetterQueueSize: 100,
		Logger:              log,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	if cfg.App.Debug {
		dispatcher.Use(messaging.LoggingMiddleware(log))
	}

	var notifier *service.NotificationService
	if cfg.Notifications.Enabled {
		notifier = service.NewNotificationService(service.NotificationServiceConfig{
			Clock:    clock,
			Location: cfg.App.Location,
			QuietHours: service.QuietHours{
				Enabled:   cfg.Notifications.QuietHoursEnabled,
				StartHour: cfg.Notifications.QuietHoursStart,
				EndHour:   cfg.Notifications.QuietHoursEnd,
			},
			Logger:      log,
			HistorySize: cfg.Notifications.HistorySize,
		})

		notifyHandler := service.NewNotificationEventHandler(notifier, log)
		if err := notifyHandler.Register(dispatcher); err != nil {
			return fmt.Errorf("failed to register notification handler: %w", err)
		}
	}

	var writeBehind *service.SnapshotWriteBehind
	if snapshotRepo != nil {
		writeBehind = service.NewSnapshotWriteBehind(
			store, snapshotRepo, eventLogRepo,
			cfg.App.UserID, cfg.Snapshot.Interval, log,
		)
		if err := writeBehind.Register(localBus); err != nil {
			return fmt.Errorf("failed to register snapshot write-behind: %w", err)
		}
	}

	if hudCache != nil {
		// Any domain event invalidates the HUD read model and refreshes
		// the hot snapshot used for fast restarts.
		refresh := func(event shared.Event) error {
			hudCtx, hudCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer hudCancel()
			if err := hudCache.Invalidate(hudCtx, cfg.App.UserID); err != nil {
				return err
			}
			return hudCache.SetSnapshot(hudCtx, cfg.App.UserID, store.Snapshot())
		}
		if err := localBus.SubscribeAll(refresh); err != nil {
			return fmt.Errorf("failed to register HUD refresh handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Logger:   log,
			Timezone: cfg.App.Location,
			Clock:    clock,
		})

		resetJob := jobs.NewResetCountdownJob(checkReset, performReset, log)
		rolloverJob := jobs.NewDailyRolloverJob(checkRollover, applyPenalty, log)
		expiryJob := jobs.NewPowerUpExpiryJob(expirePowerUp, log)
		energyJob := jobs.NewEnergyRegenJob(regenEnergy, log)

		for _, reg := range []struct {
			job      scheduler.Job
			interval time.Duration
		}{
			{resetJob, cfg.Scheduler.ResetCheckInterval},
			{rolloverJob, cfg.Scheduler.RolloverCheckInterval},
			{expiryJob, cfg.Scheduler.ExpirySweepInterval},
			{energyJob, cfg.Scheduler.EnergyRegenInterval},
		} {
			if err := sched.Register(reg.job, scheduler.NewIntervalSchedule(reg.interval)); err != nil {
				return fmt.Errorf("failed to register job %s: %w", reg.job.Name(), err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started",
			"reset_check", cfg.Scheduler.ResetCheckInterval.String(),
			"rollover_check", cfg.Scheduler.RolloverCheckInterval.String(),
			"expiry_sweep", cfg.Scheduler.ExpirySweepInterval.String(),
			"energy_regen", cfg.Scheduler.EnergyRegenInterval.String(),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ЗАПУСК HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		AddXP:           addXP,
		SpendXP:         spendXP,
		ConvertXPToGold: convertXP,
		UpdateStreak:    updateStreak,
		RecordActivity:  recordActivity,
		BuyPowerUp:      buyPowerUp,
		ActivatePowerUp: activatePowerUp,
		ExpirePowerUp:   expirePowerUp,
		StartSession:    startSession,
		EndSession:      endSession,

		GetProgress:       getProgress,
		GetStreak:         getStreak,
		GetActivePowerUps: getPowerUps,
		GetResetCountdown: getResetCountdown,

		Logger: log,
	})

	errCh := httpServer.StartAsync()
	log.Info("progression engine is running", "http_address", httpServer.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", "error", err)
			return err
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
			shutdownErr = err
		}
	}

	// Финальный снимок перед закрытием store.
	final := store.Close()
	if snapshotRepo != nil && final != nil {
		if writeBehind != nil {
			if err := writeBehind.Flush(shutdownCtx); err != nil {
				log.Warn("write-behind flush failed", "error", err)
			}
		}
		if err := snapshotRepo.Save(shutdownCtx, cfg.App.UserID, final); err != nil {
			log.Error("failed to save final snapshot", "error", err)
			shutdownErr = err
		} else {
			if pruned, err := snapshotRepo.Prune(shutdownCtx, cfg.App.UserID, cfg.Snapshot.Keep); err == nil && pruned > 0 {
				log.Info("pruned old snapshots", "count", pruned)
			}
			log.Info("final snapshot saved")
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
		return nil
	}

	log.Info("shutdown completed successfully")
	return nil
}
