package redis

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestClientOptions_Defaults(t *testing.T) {
	opts := clientOptions(Config{Addr: "localhost:6379"})

	if opts.PoolSize != 20 {
		t.Fatalf("expected pool size 20, got %d", opts.PoolSize)
	}
	if opts.DialTimeout != 5*time.Second || opts.ReadTimeout != 5*time.Second || opts.WriteTimeout != 5*time.Second {
		t.Fatalf("unexpected timeouts: %s %s %s", opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout)
	}
}

func TestClientOptions_FromConfig(t *testing.T) {
	opts := clientOptions(Config{Addr: "cache.internal:6380", Password: "s3cret", DB: 2, PoolSize: 4, Timeout: 250 * time.Millisecond})

	if opts.Addr != "cache.internal:6380" || opts.Password != "s3cret" || opts.DB != 2 {
		t.Fatalf("unexpected connection fields: %+v", opts)
	}
	if opts.PoolSize != 4 || opts.DialTimeout != 250*time.Millisecond || opts.ReadTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected pool/timeouts: %d %s %s", opts.PoolSize, opts.DialTimeout, opts.ReadTimeout)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	start := time.Now()
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected ping error")
	}
	if !strings.Contains(err.Error(), "redis ping 127.0.0.1:1") {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("ping was not bounded by the configured timeout")
	}
}
