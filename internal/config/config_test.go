package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:           AppConfig{Env: "local", Port: 8080},
		DB:            DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callintel"},
		Redis:         RedisConfig{Host: "localhost", Port: 6379},
		Auth:          AuthConfig{JWTSecret: "secret"},
		Storage:       StorageConfig{Bucket: "recordings"},
		Transcription: TranscriptionConfig{URL: "http://localhost:9000/transcribe"},
		Analysis:      AnalysisConfig{URL: "http://localhost:9000/analyze"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "GCS_BUCKET is required") {
		t.Fatalf("expected storage bucket error in %q", err)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	p := c.Pipeline
	if p.PollInterval != 800*time.Millisecond || p.PollCeiling != 60*time.Second {
		t.Fatalf("unexpected poll defaults: %+v", p)
	}
	if p.RetryBackoff != 5*time.Second || p.MaxRetries != 12 || p.AnalysisDelay != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", p)
	}
	if p.SweepSchedule != "@every 5m" {
		t.Fatalf("unexpected sweep schedule %q", p.SweepSchedule)
	}
}

func TestValidate_RejectsRelativeServiceURL(t *testing.T) {
	c := validLocal()
	c.Transcription.URL = "/transcribe"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for relative TRANSCRIBE_URL")
	}
}

func TestValidate_CeilingShorterThanInterval(t *testing.T) {
	c := validLocal()
	c.Pipeline.PollInterval = 2 * time.Second
	c.Pipeline.PollCeiling = time.Second
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when ceiling < interval")
	}
}

func TestLoad_ParsesEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8081")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("GCS_BUCKET", "b")
	t.Setenv("TRANSCRIBE_URL", "https://fn.example.com/transcribe")
	t.Setenv("ANALYSIS_URL", "https://fn.example.com/analyze")
	t.Setenv("PIPELINE_POLL_INTERVAL", "250ms")
	t.Setenv("PIPELINE_MAX_RETRIES", "3")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Pipeline.PollInterval != 250*time.Millisecond || c.Pipeline.MaxRetries != 3 {
		t.Fatalf("unexpected pipeline config: %+v", c.Pipeline)
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("PIPELINE_POLL_CEILING", "sixty")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PIPELINE_POLL_CEILING") {
		t.Fatalf("expected duration parse error, got %v", err)
	}
}
