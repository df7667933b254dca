package utils

import (
	"context"
	"testing"
	"time"
)

func TestLeaseScriptsCompile(t *testing.T) {
	if leaseAcquireScript == nil || leaseReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireLease_RejectsBadArgs(t *testing.T) {
	if _, err := AcquireLease(context.Background(), nil, "k", "o", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if c.PoolSize != 20 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}
