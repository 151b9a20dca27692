package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the facequeue server and worker.
type Config struct {
	Server     ServerConfig
	AWS        AWSConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Submission SubmissionConfig
	Recognizer RecognizerConfig
	Worker     WorkerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           slog.Level
	AuthEnabled        bool
	RateLimitPerMinute int
}

type AWSConfig struct {
	Region          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

type StorageConfig struct {
	InputBucket  string
	OutputBucket string
}

type QueueConfig struct {
	RequestQueue      string
	ResponseQueue     string
	MaxReceiveCount   int
	VisibilityTimeout time.Duration
	WaitTime          time.Duration
}

type SubmissionConfig struct {
	MaxWait        time.Duration
	PollInterval   time.Duration
	MaxUploadBytes int64
}

type RecognizerConfig struct {
	Backend string
	Command string
	URL     string
	Timeout time.Duration
}

type WorkerConfig struct {
	Instances         int
	PollErrorCooldown time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

var validBackends = map[string]bool{
	"stub": true,
	"exec": true,
	"http": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("PORT", 8000),
			Env:                envString("APP_ENV", "development"),
			LogLevel:           envLevel("LOG_LEVEL", slog.LevelInfo),
			AuthEnabled:        envBool("AUTH_ENABLED", false),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		AWS: AWSConfig{
			Region:          envString("AWS_REGION", "us-east-1"),
			EndpointURL:     os.Getenv("AWS_ENDPOINT_URL"),
			AccessKeyID:     envString("AWS_ACCESS_KEY_ID", "test"),
			SecretAccessKey: envString("AWS_SECRET_ACCESS_KEY", "test"),
		},
		Storage: StorageConfig{
			InputBucket:  envString("S3_IN_BUCKET", "input-bucket"),
			OutputBucket: envString("S3_OUT_BUCKET", "output-bucket"),
		},
		Queue: QueueConfig{
			RequestQueue:      envString("SQS_REQ_QUEUE_NAME", "request-queue"),
			ResponseQueue:     envOptional("SQS_RESP_QUEUE_NAME", "response-queue"),
			MaxReceiveCount:   envInt("SQS_MAX_RECEIVE_COUNT", 5),
			VisibilityTimeout: envDurationSecs("SQS_VISIBILITY_TIMEOUT_SECONDS", 60*time.Second),
			WaitTime:          envDurationSecs("SQS_WAIT_TIME_SECONDS", 10*time.Second),
		},
		Submission: SubmissionConfig{
			MaxWait:        envDurationSecs("MAX_WAIT_SECONDS", 30*time.Second),
			PollInterval:   envFloatSecs("POLL_INTERVAL_SECONDS", time.Second),
			MaxUploadBytes: int64(envInt("MAX_FILE_MB", 8)) << 20,
		},
		Recognizer: RecognizerConfig{
			Backend: envString("RECOGNIZER_BACKEND", "stub"),
			Command: os.Getenv("RECOGNIZER_COMMAND"),
			URL:     os.Getenv("RECOGNIZER_URL"),
			Timeout: envDurationSecs("RECOGNIZER_TIMEOUT_SECONDS", 30*time.Second),
		},
		Worker: WorkerConfig{
			Instances:         envInt("WORKER_INSTANCES", 1),
			PollErrorCooldown: envDuration("WORKER_POLL_ERROR_COOLDOWN", 5*time.Second),
			BackoffMin:        envDurationSecs("WORKER_BACKOFF_MIN_SECONDS", 5*time.Second),
			BackoffMax:        envDurationSecs("WORKER_BACKOFF_MAX_SECONDS", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.AWS.EndpointURL != "" && !isHTTPURL(c.AWS.EndpointURL) {
		return fmt.Errorf("AWS_ENDPOINT_URL must start with http:// or https://, got %q", c.AWS.EndpointURL)
	}

	if c.Storage.InputBucket == "" {
		return fmt.Errorf("S3_IN_BUCKET is required")
	}
	if c.Storage.OutputBucket == "" {
		return fmt.Errorf("S3_OUT_BUCKET is required")
	}
	if c.Queue.RequestQueue == "" {
		return fmt.Errorf("SQS_REQ_QUEUE_NAME is required")
	}
	if c.Queue.ResponseQueue == c.Queue.RequestQueue {
		return fmt.Errorf("SQS_RESP_QUEUE_NAME must differ from SQS_REQ_QUEUE_NAME")
	}

	if c.Queue.MaxReceiveCount <= 0 {
		return fmt.Errorf("SQS_MAX_RECEIVE_COUNT must be positive, got %d", c.Queue.MaxReceiveCount)
	}
	if c.Queue.VisibilityTimeout <= 0 {
		return fmt.Errorf("SQS_VISIBILITY_TIMEOUT_SECONDS must be positive")
	}
	if c.Queue.WaitTime < 0 || c.Queue.WaitTime > 20*time.Second {
		return fmt.Errorf("SQS_WAIT_TIME_SECONDS must be between 0 and 20, got %s", c.Queue.WaitTime)
	}

	if c.Submission.MaxWait < 0 {
		return fmt.Errorf("MAX_WAIT_SECONDS must not be negative")
	}
	if c.Submission.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Submission.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_FILE_MB must be positive")
	}

	if !validBackends[c.Recognizer.Backend] {
		return fmt.Errorf("RECOGNIZER_BACKEND must be one of stub, exec, http; got %q", c.Recognizer.Backend)
	}
	if c.Recognizer.Backend == "exec" && strings.TrimSpace(c.Recognizer.Command) == "" {
		return fmt.Errorf("RECOGNIZER_COMMAND is required when RECOGNIZER_BACKEND is exec")
	}
	if c.Recognizer.Backend == "http" && !isHTTPURL(c.Recognizer.URL) {
		return fmt.Errorf("RECOGNIZER_URL must start with http:// or https:// when RECOGNIZER_BACKEND is http, got %q", c.Recognizer.URL)
	}
	if c.Recognizer.Timeout <= 0 {
		return fmt.Errorf("RECOGNIZER_TIMEOUT_SECONDS must be positive")
	}
	if c.Recognizer.Timeout >= c.Queue.VisibilityTimeout {
		return fmt.Errorf("RECOGNIZER_TIMEOUT_SECONDS (%s) must be shorter than SQS_VISIBILITY_TIMEOUT_SECONDS (%s)",
			c.Recognizer.Timeout, c.Queue.VisibilityTimeout)
	}

	if c.Worker.Instances <= 0 {
		return fmt.Errorf("WORKER_INSTANCES must be positive, got %d", c.Worker.Instances)
	}
	if c.Worker.BackoffMin <= 0 || c.Worker.BackoffMax < c.Worker.BackoffMin {
		return fmt.Errorf("WORKER_BACKOFF_MIN_SECONDS must be positive and not exceed WORKER_BACKOFF_MAX_SECONDS")
	}

	if c.Server.AuthEnabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when AUTH_ENABLED is true")
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envOptional is like envString but an explicitly empty variable disables the value.
func envOptional(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return lvl
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envFloatSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs * float64(time.Second))
}
