package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// Domain is the public base URL used in verification links.
	Domain         string        `env:"DOMAIN,           default=http://localhost:8000"`
	CORSOrigins    []string      `env:"CORS_ORIGINS,     default=http://localhost:3000"`
	BcryptCost     int           `env:"BCRYPT_COST,      default=10"`
	MaxAvatarBytes int64         `env:"MAX_AVATAR_BYTES, default=5242880"`
	MailWorkers    int           `env:"MAIL_WORKERS,     default=4"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE,   default=15s"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Tokens TokenConfig
	S3     S3Config
	Resend ResendConfig
	Sentry SentryConfig
}

type MongoConfig struct {
	URI      string `env:"MONGODB_URL, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,    default=shopsence"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// TokenConfig holds the three signing secrets. Secrets have no default and
// are checked by the token service at startup.
type TokenConfig struct {
	AccessSecret       string        `env:"ACCESS_TOKEN_SECRET"`
	AccessExpiry       time.Duration `env:"ACCESS_TOKEN_EXPIRY,       default=15m"`
	RefreshSecret      string        `env:"REFRESH_TOKEN_SECRET"`
	RefreshExpiry      time.Duration `env:"REFRESH_TOKEN_EXPIRY,      default=168h"`
	VerificationSecret string        `env:"EMAIL_VERIFICATION_SECRET"`
	VerificationExpiry time.Duration `env:"EMAIL_VERIFICATION_EXPIRY, default=24h"`
}

type S3Config struct {
	Region        string `env:"S3_REGION,          default=us-east-1"`
	Bucket        string `env:"S3_BUCKET,          default=avatars"`
	Endpoint      string `env:"S3_ENDPOINT"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	UsePathStyle  bool   `env:"S3_USE_PATH_STYLE,  default=false"`
}

type ResendConfig struct {
	APIKey  string `env:"RESEND_API_KEY"`
	From    string `env:"RESEND_FROM,     default=ShopSence <noreply@shopsence.com>"`
	BaseURL string `env:"RESEND_BASE_URL, default=https://api.resend.com"`
}

type SentryConfig struct {
	DSN        string  `env:"SENTRY_DSN"`
	Release    string  `env:"SENTRY_RELEASE"`
	SampleRate float64 `env:"SENTRY_SAMPLE_RATE, default=1.0"`
}

// IsProduction reports whether ENV selects the production profile.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
