package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/layer-3/gatekeeper/adapters/mailer"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/service"
)

// Prefix namespaces every environment variable
const Prefix = "GATEKEEPER_"

// User store backends
const (
	UserStorePostgres = "postgres"
	UserStoreMemory   = "memory"
)

// Config is the process configuration
type Config struct {
	HTTPAddr   string   `env:"HTTP_ADDR"   envDefault:":9000"`
	ServerHost string   `env:"SERVER_HOST" envDefault:"http://localhost:9000"`
	Devices    []string `env:"DEVICES"     envDefault:"web,mobile" envSeparator:","`
	LogLevel   string   `env:"LOG_LEVEL"   envDefault:"info"`

	RedisURL       string `env:"REDIS_URL"       envDefault:"redis://localhost:6379/0"`
	RedisNamespace string `env:"REDIS_NAMESPACE" envDefault:"gatekeeper:"`

	UserStore   string `env:"USER_STORE"   envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	PrivateKeyPath string `env:"PRIVATE_KEY_PATH" envDefault:"keys/private.pem"`
	PublicKeyPath  string `env:"PUBLIC_KEY_PATH"  envDefault:"keys/public.pem"`

	AccessTTL       time.Duration `env:"ACCESS_TTL"       envDefault:"15m"`
	RefreshTTL      time.Duration `env:"REFRESH_TTL"      envDefault:"168h"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"5m"`

	RequestLimit    int           `env:"REQUEST_LIMIT"     envDefault:"10"`
	CounterWindow   time.Duration `env:"COUNTER_WINDOW"    envDefault:"720h"`
	InactiveUserTTL time.Duration `env:"INACTIVE_USER_TTL" envDefault:"30m"`
	PurgeInterval   time.Duration `env:"PURGE_INTERVAL"    envDefault:"5m"`
	MailTimeout     time.Duration `env:"MAIL_TIMEOUT"      envDefault:"10s"`

	EmailTopic    string `env:"EMAIL_TOPIC"    envDefault:"gatekeeper.email"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"gatekeeper-mailer"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// SMTPConfig configures outgoing mail
type SMTPConfig struct {
	Host     string `env:"HOST"      envDefault:"localhost"`
	Port     int    `env:"PORT"      envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"      envDefault:"no-reply@localhost"`
	FromName string `env:"FROM_NAME" envDefault:"Gatekeeper"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return Parse()
}

// LoadDotEnv copies .env from the working directory into the environment,
// if the file exists. Variables already set win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.ServerHost); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SERVER_HOST must be an absolute URL, got %q", c.ServerHost))
	}
	if len(c.Devices) == 0 {
		errs = append(errs, errors.New("DEVICES must not be empty"))
	}
	switch c.UserStore {
	case UserStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres user store"))
		}
	case UserStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("USER_STORE must be %q or %q, got %q", UserStorePostgres, UserStoreMemory, c.UserStore))
	}
	for name, d := range map[string]time.Duration{
		"ACCESS_TTL":        c.AccessTTL,
		"REFRESH_TTL":       c.RefreshTTL,
		"VERIFICATION_TTL":  c.VerificationTTL,
		"COUNTER_WINDOW":    c.CounterWindow,
		"INACTIVE_USER_TTL": c.InactiveUserTTL,
		"PURGE_INTERVAL":    c.PurgeInterval,
		"MAIL_TIMEOUT":      c.MailTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.RequestLimit <= 0 {
		errs = append(errs, errors.New("REQUEST_LIMIT must be positive"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", c.SMTP.Port))
	}

	return errors.Join(errs...)
}

// Lifetimes returns the token lifetimes.
func (c *Config) Lifetimes() core.Lifetimes {
	return core.Lifetimes{
		Access:       c.AccessTTL,
		Refresh:      c.RefreshTTL,
		Verification: c.VerificationTTL,
	}
}

// Service returns the auth service settings.
func (c *Config) Service() service.Config {
	devices := make([]core.Device, len(c.Devices))
	for i, d := range c.Devices {
		devices[i] = core.Device(d)
	}
	return service.Config{
		ServerHost:    c.ServerHost,
		Devices:       devices,
		RequestLimit:  c.RequestLimit,
		CounterWindow: c.CounterWindow,
		MailTimeout:   c.MailTimeout,
	}
}

// Mailer returns the SMTP sender settings.
func (c *Config) Mailer() mailer.SMTPConfig {
	return mailer.SMTPConfig(c.SMTP)
}
