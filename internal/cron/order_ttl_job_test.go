package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

type fakeExpirer struct {
	expired   int
	err       error
	lastTTL   time.Duration
	lastBatch int
	calls     int
}

func (f *fakeExpirer) ExpireStaleOrders(_ context.Context, ttl time.Duration, batchSize int) (int, error) {
	f.calls++
	f.lastTTL = ttl
	f.lastBatch = batchSize
	return f.expired, f.err
}

func TestOrderTTLJobExpiresStaleOrders(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Market: expirer,
		TTL:    12 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one expiry call, got %d", expirer.calls)
	}
	if expirer.lastTTL != 12*time.Hour {
		t.Fatalf("expected ttl 12h, got %s", expirer.lastTTL)
	}
	if expirer.lastBatch != defaultExpiryBatch {
		t.Fatalf("expected default batch size, got %d", expirer.lastBatch)
	}
}

func TestOrderTTLJobDefaultsAndErrors(t *testing.T) {
	if _, err := NewOrderTTLJob(OrderTTLJobParams{Market: &fakeExpirer{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewOrderTTLJob(OrderTTLJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})}); err == nil {
		t.Fatal("expected error without market service")
	}

	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Market: expirer,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected propagated error")
	}
	if expirer.lastTTL != defaultStaleOrderTTL {
		t.Fatalf("expected default ttl, got %s", expirer.lastTTL)
	}
}
