package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"

	MediaS3     = "s3"
	MediaInline = "inline"
)

type DBConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Handler        http.Handler
	MaxHeaderBytes int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type StoreConfig struct {
	Backend      string
	SlugStyle    string
	ContentLimit int
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	Prefix        string
	PublicBaseURL string
	PreviewTTL    time.Duration
}

type MediaConfig struct {
	Driver         string
	InlineMaxBytes int
	MaxUploadBytes int64
	S3             S3Config
}

type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	RecoveryTTL   time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
	ResetURL      string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	Port     string
	Origins  []string
	CacheTTL time.Duration

	Store StoreConfig
	Media MediaConfig
	Auth  AuthConfig

	DB    DBConfig
	Redis RedisConfig
	SMTP  SMTPConfig
}

// Load reads the yaml config in dir named app and the .env file in the working directory.
// Both are optional; secrets always come from the environment.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetConfigName("app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read app config: %w", err)
		}
	}

	cfg := &Config{
		Port:     v.GetString("app.port"),
		Origins:  v.GetStringSlice("client.origins"),
		CacheTTL: v.GetDuration("cache.ttl"),
		Store: StoreConfig{
			Backend:      v.GetString("store.backend"),
			SlugStyle:    v.GetString("store.slug_style"),
			ContentLimit: v.GetInt("store.content_limit"),
		},
		Media: MediaConfig{
			Driver:         v.GetString("media.driver"),
			InlineMaxBytes: v.GetInt("media.inline_max_bytes"),
			MaxUploadBytes: v.GetInt64("media.max_upload_bytes"),
			S3: S3Config{
				Bucket:        v.GetString("media.s3.bucket"),
				Region:        v.GetString("media.s3.region"),
				Endpoint:      v.GetString("media.s3.endpoint"),
				Prefix:        v.GetString("media.s3.prefix"),
				PublicBaseURL: v.GetString("media.s3.public_base_url"),
				PreviewTTL:    v.GetDuration("media.s3.preview_ttl"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			SessionTTL:    v.GetDuration("auth.session_ttl"),
			RecoveryTTL:   v.GetDuration("auth.recovery_ttl"),
			MaxAttempts:   v.GetInt("auth.max_attempts"),
			AttemptWindow: v.GetDuration("auth.attempt_window"),
			ResetURL:      v.GetString("auth.reset_url"),
		},
		DB: DBConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			DBName:   os.Getenv("POSTGRES_DATABASE"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			MaxConns: v.GetInt32("postgres.max_conns"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8000")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.content_limit", 255)
	v.SetDefault("media.driver", MediaInline)
	v.SetDefault("media.inline_max_bytes", 5<<20)
	v.SetDefault("media.max_upload_bytes", 10<<20)
	v.SetDefault("media.s3.preview_ttl", 15*time.Minute)
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.recovery_ttl", time.Hour)
	v.SetDefault("auth.max_attempts", 5)
	v.SetDefault("auth.attempt_window", 15*time.Minute)
	v.SetDefault("auth.reset_url", "http://localhost:5173/reset-password")
	v.SetDefault("postgres.max_conns", 10)
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if c.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the postgres backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Media.Driver {
	case MediaS3:
		if c.Media.S3.Bucket == "" {
			return errors.New("media.s3.bucket is required for the s3 media driver")
		}
	case MediaInline:
	default:
		return fmt.Errorf("unknown media driver %q", c.Media.Driver)
	}

	return nil
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}
