package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 10}.withDefaults()
	if c.MaxIdleConns != 10 {
		t.Fatalf("expected idle conns to follow open conns, got %d", c.MaxIdleConns)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %s", c.PingTimeout)
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert chunk: %w", &pgconn.PgError{Code: "23503"})
	if !IsForeignKeyViolation(wrapped) {
		t.Fatalf("expected wrapped FK violation to be detected")
	}
	if IsForeignKeyViolation(errors.New("boom")) {
		t.Fatalf("expected plain error to be ignored")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected unique violation to be ignored")
	}
}
