package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Dialer DialerConfig
	Cost   CostConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	// Host may be empty: without Redis the concurrency ceiling is
	// advisory and outcome deduplication is process-local.
	Host string
	Port int
}

type DialerConfig struct {
	// Schedule is a standard cron expression for the automation loop.
	// Empty disables the loop (passes run only via the API trigger).
	Schedule string
	// PassTimeout bounds one workspace's scheduling pass.
	PassTimeout time.Duration

	// StrictSlots folds the concurrency ceiling into an atomic Redis
	// counter; requires Redis.
	StrictSlots bool
	// SlotTTL reclaims leaked slots after a crash. Must exceed the
	// longest plausible call.
	SlotTTL time.Duration

	// RequeueSoftFailures sends no_answer/error outcomes with remaining
	// attempt budget back to pending instead of leaving them terminal.
	RequeueSoftFailures bool

	// WebhookSecret gates the public outcome webhook.
	WebhookSecret string
}

type CostConfig struct {
	// MinutesPerAttempt and CreditsPerAttempt are the billing policy
	// constants behind the analytics totals.
	MinutesPerAttempt float64
	CreditsPerAttempt float64
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Dialer.Schedule = strings.TrimSpace(os.Getenv("DIALER_SCHEDULE"))
	c.Dialer.PassTimeout = optDuration("DIALER_PASS_TIMEOUT")
	c.Dialer.StrictSlots = optBool("DIALER_STRICT_SLOTS")
	c.Dialer.SlotTTL = optDuration("DIALER_SLOT_TTL")
	c.Dialer.RequeueSoftFailures = optBool("DIALER_REQUEUE_SOFT_FAILURES")
	c.Dialer.WebhookSecret = os.Getenv("DIALER_WEBHOOK_SECRET")

	c.Cost.MinutesPerAttempt = optFloat("COST_MINUTES_PER_ATTEMPT")
	c.Cost.CreditsPerAttempt = optFloat("COST_CREDITS_PER_ATTEMPT")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Dialer.StrictSlots && c.Redis.Host == "" {
		errs = append(errs, errors.New("DIALER_STRICT_SLOTS requires REDIS_HOST"))
	}

	if c.Dialer.PassTimeout <= 0 {
		c.Dialer.PassTimeout = 30 * time.Second
	}
	if c.Dialer.SlotTTL <= 0 {
		c.Dialer.SlotTTL = 15 * time.Minute
	}
	if c.IsProduction() && c.Dialer.WebhookSecret == "" {
		errs = append(errs, errors.New("DIALER_WEBHOOK_SECRET is required in production"))
	}

	if c.Cost.MinutesPerAttempt < 0 || c.Cost.CreditsPerAttempt < 0 {
		errs = append(errs, errors.New("cost model values must not be negative"))
	}
	if c.Cost.MinutesPerAttempt == 0 {
		c.Cost.MinutesPerAttempt = 2
	}
	if c.Cost.CreditsPerAttempt == 0 {
		c.Cost.CreditsPerAttempt = 0.5
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func optBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func optFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
