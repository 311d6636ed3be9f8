package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fast-pay/fastpay/internal/money"
)

const (
	defaultAppName = "FastPay"
	defaultAppEnv  = "development"
	devAccessKey   = "dev-access-secret"
	devRefreshKey  = "dev-refresh-secret"
)

// Config captures application runtime configuration loaded from the environment and an
// optional .env file.
type Config struct {
	AppName  string `mapstructure:"APP_NAME"`
	AppEnv   string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	NotificationExchange string `mapstructure:"NOTIFICATION_EXCHANGE"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	RefreshSecret   string        `mapstructure:"REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`

	ShutdownPeriod time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	SignupBalanceMinor     int64  `mapstructure:"SIGNUP_BALANCE_MINOR"`
	AccountDomain          string `mapstructure:"ACCOUNT_DOMAIN"`
	IdentifierAttempts     int    `mapstructure:"IDENTIFIER_ATTEMPTS"`
	TransferAttempts       int    `mapstructure:"TRANSFER_ATTEMPTS"`
	NotificationWorkers    int    `mapstructure:"NOTIFICATION_WORKERS"`
	NotificationQueueSize  int    `mapstructure:"NOTIFICATION_QUEUE_SIZE"`
	AuditSchedule          string `mapstructure:"AUDIT_SCHEDULE"`
	TwoFactorIssuer        string `mapstructure:"TWO_FACTOR_ISSUER"`
	LoginAttemptsPerMinute int    `mapstructure:"LOGIN_ATTEMPTS_PER_MINUTE"`
	OperatorContacts       string `mapstructure:"OPERATOR_CONTACTS"`
}

var defaults = map[string]any{
	"APP_NAME":                  defaultAppName,
	"APP_ENV":                   defaultAppEnv,
	"PORT":                      "8080",
	"LOG_LEVEL":                 "info",
	"DATABASE_URL":              "",
	"REDIS_URL":                 "",
	"RABBITMQ_URL":              "",
	"NOTIFICATION_EXCHANGE":     "fastpay.notifications",
	"JWT_SECRET":                "",
	"REFRESH_SECRET":            "",
	"ACCESS_TOKEN_TTL":          "15m",
	"REFRESH_TOKEN_TTL":         "720h",
	"SHUTDOWN_TIMEOUT":          "10s",
	"IDEMPOTENCY_TTL":           "24h",
	"SIGNUP_BALANCE_MINOR":      100000,
	"ACCOUNT_DOMAIN":            "fastpay",
	"IDENTIFIER_ATTEMPTS":       5,
	"TRANSFER_ATTEMPTS":         8,
	"NOTIFICATION_WORKERS":      2,
	"NOTIFICATION_QUEUE_SIZE":   256,
	"AUDIT_SCHEDULE":            "@every 1h",
	"TWO_FACTOR_ISSUER":         defaultAppName,
	"LOGIN_ATTEMPTS_PER_MINUTE": 5,
	"OPERATOR_CONTACTS":         "",
}

// Load reads configuration values from the environment, falling back to a .env file in the
// working directory and then to defaults.
func Load() (Config, error) {
	return load(".env")
}

func load(envFile string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsDevelopment() {
		if c.JWTSecret == "" {
			c.JWTSecret = devAccessKey
		}
		if c.RefreshSecret == "" {
			c.RefreshSecret = devRefreshKey
		}
	} else {
		required := map[string]string{
			"DATABASE_URL":   c.DatabaseURL,
			"REDIS_URL":      c.RedisURL,
			"JWT_SECRET":     c.JWTSecret,
			"REFRESH_SECRET": c.RefreshSecret,
		}
		for _, key := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "REFRESH_SECRET"} {
			if required[key] == "" {
				return fmt.Errorf("%s must be set when APP_ENV=%s", key, c.AppEnv)
			}
		}
	}

	if c.JWTSecret == c.RefreshSecret {
		return fmt.Errorf("JWT_SECRET and REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.SignupBalanceMinor < 0 {
		return fmt.Errorf("invalid SIGNUP_BALANCE_MINOR: %d", c.SignupBalanceMinor)
	}
	return nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// SignupBalance is the amount credited to every new account.
func (c Config) SignupBalance() money.Amount {
	return money.Amount(c.SignupBalanceMinor)
}

// Operators lists the contact addresses allowed to read system-wide reports, parsed from
// the comma-separated OPERATOR_CONTACTS.
func (c Config) Operators() []string {
	var out []string
	for _, contact := range strings.Split(c.OperatorContacts, ",") {
		if contact = strings.ToLower(strings.TrimSpace(contact)); contact != "" {
			out = append(out, contact)
		}
	}
	return out
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
