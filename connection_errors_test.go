package pgentity

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestNewPool_NilConfig(t *testing.T) {
	if _, err := newPool(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestHealthCheck_NilPool(t *testing.T) {
	if err := healthCheck(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestConnectPool_MalformedURL(t *testing.T) {
	if _, err := ConnectPool(context.Background(), "postgres://%zz", 1); err == nil {
		t.Fatalf("expected parse error")
	}
}

// pgxpool connects lazily, so no server is needed to check the size cap.
func TestConnectPool_AppliesMaxConnections(t *testing.T) {
	pool, err := ConnectPool(context.Background(), "host=localhost dbname=pgentity user=pgentity", 3)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if got := pool.Config().MaxConns; got != 3 {
		t.Fatalf("max conns: %d", got)
	}
}

func TestNewPool_AppliesConfig(t *testing.T) {
	cfg := &Config{
		Host:                   "localhost",
		Port:                   5432,
		Database:               "pgentity",
		Username:               "pgentity",
		MaxConnections:         4,
		MinConnections:         1,
		MaxConnLifetime:        time.Minute,
		StatementCacheCapacity: 64,
	}
	pool, err := newPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer pool.Close()
	conf := pool.Config()
	if conf.MaxConns != 4 || conf.MinConns != 1 || conf.MaxConnLifetime != time.Minute {
		t.Fatalf("pool config not applied: max=%d min=%d lifetime=%s", conf.MaxConns, conf.MinConns, conf.MaxConnLifetime)
	}
	if conf.ConnConfig.DefaultQueryExecMode != pgx.QueryExecModeCacheStatement || conf.ConnConfig.StatementCacheCapacity != 64 {
		t.Fatalf("statement cache not applied")
	}
}
