package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Auth      AuthConfig
	Codec     CodecConfig
	RateLimit RateLimitConfig
	Stream    StreamConfig
	MinIO     MinIOConfig
	Drive     DriveConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	CORS      CORSConfig
	Worker    WorkerConfig
}

// ServerConfig controls the HTTP listener. WriteTimeout defaults to zero
// because it would cut off long-running streams.
type ServerConfig struct {
	Port              int           `envconfig:"API_PORT" default:"8080" validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration `envconfig:"API_READ_HEADER_TIMEOUT" default:"5s" validate:"min=0"`
	ReadTimeout       time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s" validate:"min=0"`
	WriteTimeout      time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"0s" validate:"min=0"`
	IdleTimeout       time.Duration `envconfig:"API_IDLE_TIMEOUT" default:"120s" validate:"min=0"`
	ShutdownTimeout   time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s" validate:"min=0"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
}

// SlogLevel converts Level to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type AuthConfig struct {
	JWTSecret         string        `envconfig:"AUTH_JWT_SECRET"`
	Issuer            string        `envconfig:"AUTH_ISSUER" default:"streamgate"`
	CookieName        string        `envconfig:"AUTH_COOKIE_NAME" default:"session" validate:"required"`
	CheckSessionStore bool          `envconfig:"AUTH_CHECK_SESSION_STORE" default:"false"`
	SessionTTL        time.Duration `envconfig:"AUTH_SESSION_TTL" default:"1h" validate:"min=0"`
}

type CodecConfig struct {
	Secret string `envconfig:"CODEC_SECRET"`
	// AllowPassthrough serves tokens that fail to decode as raw storage keys.
	AllowPassthrough bool `envconfig:"CODEC_ALLOW_PASSTHROUGH" default:"false"`
}

type RateLimitConfig struct {
	Enabled       bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Requests      int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100" validate:"min=1"`
	Window        time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s" validate:"min=1ms"`
	PurgeInterval time.Duration `envconfig:"RATE_LIMIT_PURGE_INTERVAL" default:"5m" validate:"min=1s"`
}

type StreamConfig struct {
	BufferSize          int           `envconfig:"STREAM_BUFFER_SIZE" default:"32768" validate:"min=1024,max=4194304"`
	MetadataCacheTTL    time.Duration `envconfig:"STREAM_METADATA_CACHE_TTL" default:"5m" validate:"min=0"`
	EventPublishTimeout time.Duration `envconfig:"STREAM_EVENT_PUBLISH_TIMEOUT" default:"2s" validate:"min=0"`
}

type MinIOConfig struct {
	Enabled   bool   `envconfig:"MINIO_ENABLED" default:"true"`
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"media"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type DriveConfig struct {
	Enabled         bool   `envconfig:"DRIVE_ENABLED" default:"false"`
	CredentialsFile string `envconfig:"DRIVE_CREDENTIALS_FILE"`
	APIKey          string `envconfig:"DRIVE_API_KEY"`
	Endpoint        string `envconfig:"DRIVE_ENDPOINT"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379" validate:"min=1,max=65535"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type DatabaseConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432" validate:"min=1,max=65535"`
	User     string `envconfig:"POSTGRES_USER" default:"streamgate"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"streamgate"`
	DBName   string `envconfig:"POSTGRES_DB" default:"streamgate"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RabbitMQConfig struct {
	Enabled  bool   `envconfig:"RABBITMQ_ENABLED" default:"false"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672" validate:"min=1,max=65535"`
	User     string `envconfig:"RABBITMQ_USER" default:"streamgate"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"streamgate"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3" validate:"min=0"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s" validate:"min=0"`
}

var (
	// ErrNoBackend is returned by ValidateAPI when every storage backend is disabled.
	ErrNoBackend = errors.New("at least one of MINIO_ENABLED or DRIVE_ENABLED must be true")

	// ErrSessionStoreDisabled is returned when session checks are requested without a database.
	ErrSessionStoreDisabled = errors.New("AUTH_CHECK_SESSION_STORE requires POSTGRES_ENABLED")
)

var validate = validator.New()

// Load reads the configuration from the environment and validates ranges and enums.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// ValidateAPI checks the settings only the streaming API needs.
func (c *Config) ValidateAPI() error {
	if err := validate.Var(c.Codec.Secret, "required,min=16"); err != nil {
		return fmt.Errorf("validate CODEC_SECRET: %w", err)
	}
	if err := validate.Var(c.Auth.JWTSecret, "required,min=32"); err != nil {
		return fmt.Errorf("validate AUTH_JWT_SECRET: %w", err)
	}
	if !c.MinIO.Enabled && !c.Drive.Enabled {
		return ErrNoBackend
	}
	if c.Auth.CheckSessionStore && !c.Database.Enabled {
		return ErrSessionStoreDisabled
	}
	return nil
}
