package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/journeykit/delivery/internal/api"
	"github.com/journeykit/delivery/internal/config"
	"github.com/journeykit/delivery/internal/dispatch"
	"github.com/journeykit/delivery/internal/lock"
	"github.com/journeykit/delivery/internal/model"
	"github.com/journeykit/delivery/internal/queue"
	"github.com/journeykit/delivery/internal/repo"
	"github.com/journeykit/delivery/internal/scheduler"
	"github.com/journeykit/delivery/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("delivery engine starting",
		"addr", cfg.Server.Address,
		"interval", cfg.Scheduler.Interval.String(),
		"batch", cfg.Scheduler.BatchSize,
		"concurrency", cfg.Scheduler.Concurrency,
		"lock_ttl", cfg.Lock.TTL.String(),
		"amqp", cfg.AMQP.Enabled,
	)

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	journeys := repo.NewPostgresJourneyRepo(db)
	content := repo.NewPostgresContentRepo(db)

	var audits repo.AuditRepository = repo.NewPostgresAuditRepo(db)
	if cfg.AMQP.Enabled {
		pub, err := queue.NewAuditPublisher(cfg.AMQP.URL)
		if err != nil {
			log.Fatalf("connect amqp: %v", err)
		}
		defer pub.Close()
		audits = queue.NewPublishingAuditRepo(audits, pub)
	}

	dispatchers := make(map[model.Platform]dispatch.Dispatcher)
	if cfg.Dispatch.WhatsAppAccessToken != "" {
		dispatchers[model.WhatsApp] = dispatch.NewWhatsAppClient(
			cfg.Dispatch.WhatsAppPhoneNumberID,
			cfg.Dispatch.WhatsAppAccessToken,
			cfg.Dispatch.Timeout,
		)
	}
	if cfg.Dispatch.TelegramBotToken != "" {
		dispatchers[model.Telegram] = dispatch.NewTelegramClient(
			cfg.Dispatch.TelegramBotToken,
			cfg.Dispatch.Timeout,
		)
	}
	selector := dispatch.NewSelector(dispatchers)

	deliverer, err := service.NewDeliverer(journeys, content, audits, lock.NewRedisLocker(rdb), selector, service.DelivererConfig{
		LockTTL:     cfg.Lock.TTL,
		BatchSize:   cfg.Scheduler.BatchSize,
		Concurrency: cfg.Scheduler.Concurrency,
		Retry: dispatch.RetryPolicy{
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			BaseDelay:   cfg.Dispatch.RetryBackoff,
		},
	})
	if err != nil {
		log.Fatalf("build deliverer: %v", err)
	}

	var followups *service.FollowUps
	if cfg.FollowUp.Enabled {
		followups = service.NewFollowUps(journeys, selector, cfg.FollowUp.Delay, cfg.Dispatch.Timeout)
		defer followups.Close()
		deliverer.WithFollowUps(followups)
	}

	sched, err := scheduler.New(cfg.Scheduler.Interval, func(ctx context.Context) (int, error) {
		stats, err := deliverer.RunTick(ctx)
		if err != nil {
			return 0, err
		}
		slog.Info("tick stats",
			"selected", stats.Selected,
			"delivered", stats.Delivered,
			"paused", stats.Paused,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
		)
		return stats.Selected, nil
	})
	if err != nil {
		log.Fatalf("build scheduler: %v", err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Router(api.NewHandler(sched, deliverer, journeys, audits)),
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")

	// Stop taking new tick work first; locks held by an interrupted tick
	// expire on their own.
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
}
