package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema               string        `mapstructure:"DB_SCHEMA"`
	AuthIssuer             string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience           string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL            string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey         string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxUploadBytes         int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	BlobBackend            string        `mapstructure:"BLOB_BACKEND"`
	BlobLocalDir           string        `mapstructure:"BLOB_LOCAL_DIR"`
	BlobS3Bucket           string        `mapstructure:"BLOB_S3_BUCKET"`
	BlobS3Prefix           string        `mapstructure:"BLOB_S3_PREFIX"`
	BlobWriteTimeout       time.Duration `mapstructure:"BLOB_WRITE_TIMEOUT"`
	EventsBackend          string        `mapstructure:"EVENTS_BACKEND"`
	KafkaBrokers           []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic             string        `mapstructure:"KAFKA_TOPIC"`
	SQSQueueURL            string        `mapstructure:"SQS_QUEUE_URL"`
	SlotTimezone           string        `mapstructure:"SLOT_TIMEZONE"`
	UploadTokenReuse       bool          `mapstructure:"UPLOAD_TOKEN_REUSE"`
	DiagnosisRequireAccess bool          `mapstructure:"DIAGNOSIS_REQUIRE_ACCESS"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "REQUEST_TIMEOUT", "MAX_UPLOAD_BYTES",
	"BLOB_BACKEND", "BLOB_LOCAL_DIR", "BLOB_S3_BUCKET", "BLOB_S3_PREFIX", "BLOB_WRITE_TIMEOUT",
	"EVENTS_BACKEND", "KAFKA_BROKERS", "KAFKA_TOPIC", "SQS_QUEUE_URL",
	"SLOT_TIMEZONE", "UPLOAD_TOKEN_REUSE", "DIAGNOSIS_REQUIRE_ACCESS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "clinicflow")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MAX_UPLOAD_BYTES", 20*1024*1024)
	v.SetDefault("BLOB_BACKEND", "local")
	v.SetDefault("BLOB_LOCAL_DIR", "uploads")
	v.SetDefault("BLOB_WRITE_TIMEOUT", "30s")
	v.SetDefault("EVENTS_BACKEND", "none")
	v.SetDefault("KAFKA_TOPIC", "clinicflow.events")
	v.SetDefault("SLOT_TIMEZONE", "UTC")
	v.SetDefault("UPLOAD_TOKEN_REUSE", false)
	v.SetDefault("DIAGNOSIS_REQUIRE_ACCESS", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: X-Actor-ID / X-Actor-Role headers are accepted in place of a bearer token.")
	}

	return cfg, nil
}

// splitList normalizes comma-separated env values into trimmed, non-empty items.
func splitList(parsed []string, raw string) []string {
	if raw == "" {
		raw = strings.Join(parsed, ",")
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the time zone used to lay out the lab slot grid.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SlotTimezone)
	if err != nil {
		return nil, fmt.Errorf("SLOT_TIMEZONE %q: %w", c.SlotTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_ISSUER (JWKS validation) or AUTH_SIGNING_KEY (HS256) must be set.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production")
	}

	switch c.BlobBackend {
	case "memory", "local":
	case "s3":
		if c.BlobS3Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required when BLOB_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be \"memory\", \"local\", or \"s3\", got %q", c.BlobBackend)
	}

	switch c.EventsBackend {
	case "", "none":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND is \"kafka\"")
		}
	case "sqs":
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when EVENTS_BACKEND is \"sqs\"")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be \"none\", \"kafka\", or \"sqs\", got %q", c.EventsBackend)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.BlobWriteTimeout <= 0 {
		return fmt.Errorf("BLOB_WRITE_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
