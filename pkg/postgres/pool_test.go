package postgres

import (
	"context"
	"testing"
)

func TestPoolConfigNormalize(t *testing.T) {
	got := PoolConfig{MaxConns: 0, MinConns: 5}.normalize()
	if got.MaxConns != 1 || got.MinConns != 1 {
		t.Fatalf("unexpected bounds %+v", got)
	}
	got = PoolConfig{MaxConns: 8, MinConns: -2}.normalize()
	if got.MaxConns != 8 || got.MinConns != 0 {
		t.Fatalf("unexpected bounds %+v", got)
	}
}

func TestNewPoolRejectsBadDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "::not a dsn::", DefaultPoolConfig()); err == nil {
		t.Fatalf("expected error")
	}
}
