package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Encoder  EncoderConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"5m"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10m"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxUploadBytes  int64         `envconfig:"API_MAX_UPLOAD_BYTES" default:"1073741824"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	URL         string `envconfig:"DATABASE_URL"`
	Host        string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port        int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User        string `envconfig:"POSTGRES_USER" default:"gotube"`
	Password    string `envconfig:"POSTGRES_PASSWORD" default:"gotube"`
	DBName      string `envconfig:"POSTGRES_DB" default:"gotube"`
	SSLMode     string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxConns    int32  `envconfig:"POSTGRES_MAX_CONNS" default:"20"`
	MinConns    int32  `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	AutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE" default:"false"`
}

// DSN returns DATABASE_URL when set, otherwise a DSN built from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// StorageConfig selects and configures the object storage backend.
// Driver "minio" talks to Endpoint directly; driver "s3" targets an
// S3-compatible API, using the Cloudflare R2 endpoint when AccountID is set.
type StorageConfig struct {
	Driver        string `envconfig:"STORAGE_DRIVER" default:"minio"`
	Endpoint      string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccountID     string `envconfig:"STORAGE_ACCOUNT_ID"`
	AccessKey     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey     string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket        string `envconfig:"STORAGE_BUCKET" default:"gotube"`
	Region        string `envconfig:"STORAGE_REGION" default:"auto"`
	PublicBaseURL string `envconfig:"STORAGE_PUBLIC_BASE_URL"`
	UseSSL        bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RabbitMQConfig struct {
	Enabled  bool   `envconfig:"RABBITMQ_ENABLED" default:"true"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"gotube"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"gotube"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

type EncoderConfig struct {
	FFmpegPath         string        `envconfig:"ENCODER_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath        string        `envconfig:"ENCODER_FFPROBE_PATH" default:"ffprobe"`
	Timeout            time.Duration `envconfig:"ENCODER_TIMEOUT" default:"2m"`
	TempDir            string        `envconfig:"ENCODER_TEMP_DIR" default:"/tmp/gotube"`
	PlaceholderBaseURL string        `envconfig:"ENCODER_PLACEHOLDER_BASE_URL" default:"https://placehold.co/800x450"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", slog.String("error", err.Error()))
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}

	switch cfg.Storage.Driver {
	case "minio", "s3":
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
