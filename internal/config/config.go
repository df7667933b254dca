package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values come from env (or an env-file loaded by the process runner).
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Transcription TranscriptionConfig
	Analysis      AnalysisConfig
	Pipeline      PipelineConfig
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

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// AuthConfig only verifies tokens; issuance belongs to the identity service.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

type StorageConfig struct {
	// Bucket holds recordings and their chunks. Credentials come from ADC.
	Bucket string
	// Prefix is prepended to every object path, e.g. "prod/".
	Prefix string

	// Optional; download URLs are only issued when both are set.
	SignerEmail      string
	SignerPrivateKey string
}

type TranscriptionConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type AnalysisConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Workers int
}

type PipelineConfig struct {
	PollInterval  time.Duration
	PollCeiling   time.Duration
	RetryBackoff  time.Duration
	MaxRetries    int
	AnalysisDelay time.Duration
	LeaseTTL      time.Duration

	SweepSchedule   string
	SweepStuckAfter time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = collectInt(parseErrs, "APP_PORT", true)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = collectInt(parseErrs, "DB_PORT", true)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = collectInt(parseErrs, "REDIS_PORT", true)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	c.Storage.Bucket = strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	c.Storage.Prefix = strings.TrimSpace(os.Getenv("GCS_PREFIX"))
	c.Storage.SignerEmail = strings.TrimSpace(os.Getenv("GCS_SIGNER_EMAIL"))
	c.Storage.SignerPrivateKey = os.Getenv("GCS_SIGNER_PRIVATE_KEY")

	c.Transcription.URL = strings.TrimSpace(os.Getenv("TRANSCRIBE_URL"))
	c.Transcription.APIKey = os.Getenv("TRANSCRIBE_API_KEY")
	c.Transcription.Timeout, parseErrs = collectDuration(parseErrs, "TRANSCRIBE_TIMEOUT")

	c.Analysis.URL = strings.TrimSpace(os.Getenv("ANALYSIS_URL"))
	c.Analysis.APIKey = os.Getenv("ANALYSIS_API_KEY")
	c.Analysis.Timeout, parseErrs = collectDuration(parseErrs, "ANALYSIS_TIMEOUT")
	c.Analysis.Workers, parseErrs = collectInt(parseErrs, "ANALYSIS_WORKERS", false)

	// Pipeline durations are optional; defaults applied in Validate().
	c.Pipeline.PollInterval, parseErrs = collectDuration(parseErrs, "PIPELINE_POLL_INTERVAL")
	c.Pipeline.PollCeiling, parseErrs = collectDuration(parseErrs, "PIPELINE_POLL_CEILING")
	c.Pipeline.RetryBackoff, parseErrs = collectDuration(parseErrs, "PIPELINE_RETRY_BACKOFF")
	c.Pipeline.MaxRetries, parseErrs = collectInt(parseErrs, "PIPELINE_MAX_RETRIES", false)
	c.Pipeline.AnalysisDelay, parseErrs = collectDuration(parseErrs, "PIPELINE_ANALYSIS_DELAY")
	c.Pipeline.LeaseTTL, parseErrs = collectDuration(parseErrs, "PIPELINE_LEASE_TTL")
	c.Pipeline.SweepSchedule = strings.TrimSpace(os.Getenv("SWEEP_SCHEDULE"))
	c.Pipeline.SweepStuckAfter, parseErrs = collectDuration(parseErrs, "SWEEP_STUCK_AFTER")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
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
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required"))
	}

	errs = validateURL(errs, "TRANSCRIBE_URL", c.Transcription.URL)
	errs = validateURL(errs, "ANALYSIS_URL", c.Analysis.URL)
	if c.Transcription.Timeout <= 0 {
		c.Transcription.Timeout = 2 * time.Minute
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = time.Minute
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = 2
	}

	c.Pipeline.applyDefaults()
	if c.Pipeline.PollCeiling < c.Pipeline.PollInterval {
		errs = append(errs, errors.New("PIPELINE_POLL_CEILING must not be shorter than PIPELINE_POLL_INTERVAL"))
	}

	return joinErrors(errs)
}

// Defaults mirror the values the recorder client was tuned against.
func (p *PipelineConfig) applyDefaults() {
	if p.PollInterval <= 0 {
		p.PollInterval = 800 * time.Millisecond
	}
	if p.PollCeiling <= 0 {
		p.PollCeiling = 60 * time.Second
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = 5 * time.Second
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 12
	}
	if p.AnalysisDelay <= 0 {
		p.AnalysisDelay = time.Second
	}
	if p.LeaseTTL <= 0 {
		p.LeaseTTL = 30 * time.Minute
	}
	if p.SweepSchedule == "" {
		p.SweepSchedule = "@every 5m"
	}
	if p.SweepStuckAfter <= 0 {
		p.SweepStuckAfter = 15 * time.Minute
	}
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
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func collectInt(errs []error, key string, required bool) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		if required {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func collectDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func validateURL(errs []error, key, raw string) []error {
	if raw == "" {
		return append(errs, fmt.Errorf("%s is required", key))
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return append(errs, fmt.Errorf("%s must be an absolute URL, got %q", key, raw))
	}
	return errs
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
