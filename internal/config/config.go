package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Lock      LockConfig
	Dispatch  DispatchConfig
	FollowUp  FollowUpConfig
	AMQP      AMQPConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

type LockConfig struct {
	TTL time.Duration
}

type DispatchConfig struct {
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration

	WhatsAppPhoneNumberID string
	WhatsAppAccessToken   string
	TelegramBotToken      string
}

type FollowUpConfig struct {
	Enabled bool
	Delay   time.Duration
}

type AMQPConfig struct {
	Enabled bool
	URL     string
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: mustEnv("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			Address:  mustEnv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			Interval:    time.Duration(getEnvInt("SCHED_INTERVAL_SECONDS", 300)) * time.Second,
			BatchSize:   getEnvInt("SCHED_BATCH_SIZE", 200),
			Concurrency: getEnvInt("SCHED_CONCURRENCY", 4),
		},
		Lock: LockConfig{
			TTL: time.Duration(getEnvInt("LOCK_TTL_SECONDS", 60)) * time.Second,
		},
		Dispatch: DispatchConfig{
			Timeout:      time.Duration(getEnvInt("DISPATCH_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxAttempts:  getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			RetryBackoff: time.Duration(getEnvInt("DISPATCH_BACKOFF_MS", 500)) * time.Millisecond,

			WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		FollowUp: loadFollowUpConfig(),
		AMQP:     loadAMQPConfig(),
	}

	validate(cfg)
	return cfg, nil
}

func loadFollowUpConfig() FollowUpConfig {
	minutes := getEnvInt("FOLLOWUP_DELAY_MINUTES", 2)
	if minutes <= 0 {
		return FollowUpConfig{Enabled: false}
	}
	return FollowUpConfig{
		Enabled: true,
		Delay:   time.Duration(minutes) * time.Minute,
	}
}

func loadAMQPConfig() AMQPConfig {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		return AMQPConfig{Enabled: false}
	}
	return AMQPConfig{Enabled: true, URL: url}
}

func validate(cfg *Config) {
	if cfg.Scheduler.Interval <= 0 {
		panic("SCHED_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Scheduler.BatchSize <= 0 {
		panic("SCHED_BATCH_SIZE must be > 0")
	}
	if cfg.Scheduler.Concurrency <= 0 {
		panic("SCHED_CONCURRENCY must be > 0")
	}
	if cfg.Lock.TTL <= 0 {
		panic("LOCK_TTL_SECONDS must be > 0")
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		panic("DISPATCH_MAX_ATTEMPTS must be > 0")
	}
	// The lock must outlive a fully retried delivery attempt, or a slow
	// worker could still be sending when its lock is taken over.
	worstCase := time.Duration(cfg.Dispatch.MaxAttempts)*cfg.Dispatch.Timeout +
		cfg.Dispatch.RetryBackoff<<uint(cfg.Dispatch.MaxAttempts)
	if cfg.Lock.TTL <= worstCase {
		panic(fmt.Sprintf("LOCK_TTL_SECONDS (%s) must exceed worst-case delivery latency (%s)", cfg.Lock.TTL, worstCase))
	}
	if cfg.Dispatch.WhatsAppAccessToken == "" && cfg.Dispatch.TelegramBotToken == "" {
		panic("at least one platform must be configured (WHATSAPP_ACCESS_TOKEN or TELEGRAM_BOT_TOKEN)")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}
