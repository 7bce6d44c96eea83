// Package config loads the service configuration from VCANCHOR_* environment
// variables into one struct that main injects into every component.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "VCANCHOR"

type Config struct {
	Environment  string `default:"development"`
	LogLevel     string `split_words:"true" default:"info"`
	Server       Server
	Database     Database     `envconfig:"DB"`
	Redis        Redis
	Kafka        Kafka
	NATS         NATS         `envconfig:"NATS"`
	Chain        Chain
	Anchor       Anchor
	Claim        Claim
	Verification Verification
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `default:":8080"`
	PublicBaseURL   string        `split_words:"true" default:"http://localhost:8080"`
	JWTSigningKey   string        `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"vcanchor"`
	JWTAudience     string        `envconfig:"JWT_AUDIENCE" default:"vcanchor-api"`
	TokenTTL        time.Duration `split_words:"true" default:"1h"`
	RequestTimeout  time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
}

// Database is optional; an empty URL selects the in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int           `split_words:"true" default:"25"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
	Migrate         bool          `default:"true"`
}

// Redis is optional; an empty URL keeps claim tickets and sessions in memory.
type Redis struct {
	URL          string
	PoolSize     int           `split_words:"true" default:"20"`
	MinIdleConns int           `split_words:"true" default:"2"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `split_words:"true" default:"3s"`
	WriteTimeout time.Duration `split_words:"true" default:"3s"`
}

// Kafka is optional; without brokers audit events stay in memory.
type Kafka struct {
	Brokers         string
	AuditTopic      string        `split_words:"true" default:"vcanchor.audit"`
	Acks            string        `default:"all"`
	Retries         int           `default:"3"`
	DeliveryTimeout time.Duration `split_words:"true" default:"10s"`
	AuditBuffer     int           `split_words:"true" default:"1024"`
}

// NATS is optional; without a URL holder notifications are only logged.
type NATS struct {
	URL             string
	RequestSubject  string `split_words:"true" default:"vcanchor.verification.request"`
	ResponseSubject string `split_words:"true" default:"vcanchor.verification.response"`
	QueueGroup      string `split_words:"true" default:"vcanchor"`
}

type Chain struct {
	Driver         string        `default:"memory"`
	RPCURL         string        `envconfig:"RPC_URL"`
	ChainID        int64         `envconfig:"CHAIN_ID" default:"1337"`
	PrivateKey     string        `split_words:"true"`
	SubmitAttempts int           `split_words:"true" default:"3"`
	RetryBackoff   time.Duration `split_words:"true" default:"500ms"`
	ConfirmTimeout time.Duration `split_words:"true" default:"2m"`
}

type Anchor struct {
	MintLeaseTTL  time.Duration `envconfig:"MINT_LEASE_TTL" default:"10m"`
	SweepInterval time.Duration `split_words:"true" default:"1m"`
}

type Claim struct {
	TicketTTL        time.Duration `split_words:"true" default:"15m"`
	FrameCount       int           `split_words:"true" default:"4"`
	ParityFrames     int           `split_words:"true" default:"1"`
	DefaultFrameSize int           `split_words:"true" default:"320"`
	MaxFrameSize     int           `split_words:"true" default:"1024"`
	TokenSecret      string        `split_words:"true" default:"dev-claim-secret-change-in-production"`
	CleanupInterval  time.Duration `split_words:"true" default:"1m"`
}

type Verification struct {
	SessionTTL time.Duration `split_words:"true" default:"24h"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Chain.Driver {
	case "memory":
	case "evm":
		if c.Chain.RPCURL == "" {
			errs = append(errs, errors.New("VCANCHOR_CHAIN_RPC_URL is required for the evm driver"))
		}
		if c.Chain.PrivateKey == "" {
			errs = append(errs, errors.New("VCANCHOR_CHAIN_PRIVATE_KEY is required for the evm driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chain driver %q", c.Chain.Driver))
	}
	if c.Chain.SubmitAttempts < 1 {
		errs = append(errs, errors.New("chain submit attempts must be at least 1"))
	}
	if c.Claim.FrameCount < 1 {
		errs = append(errs, errors.New("claim frame count must be at least 1"))
	}
	if c.Claim.ParityFrames < 0 {
		errs = append(errs, errors.New("claim parity frames must not be negative"))
	}
	if c.Claim.DefaultFrameSize > c.Claim.MaxFrameSize {
		errs = append(errs, errors.New("claim default frame size exceeds max frame size"))
	}
	if c.Environment == "production" {
		if c.Server.JWTSigningKey == "dev-secret-key-change-in-production" {
			errs = append(errs, errors.New("VCANCHOR_SERVER_JWT_SIGNING_KEY must be set in production"))
		}
		if c.Claim.TokenSecret == "dev-claim-secret-change-in-production" {
			errs = append(errs, errors.New("VCANCHOR_CLAIM_TOKEN_SECRET must be set in production"))
		}
	}
	return errors.Join(errs...)
}
