package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

const (
	defaultStaleOrderTTL = 24 * time.Hour
	defaultExpiryBatch   = 100
	orderTTLJobName      = "order-ttl"
)

type staleOrderExpirer interface {
	ExpireStaleOrders(ctx context.Context, ttl time.Duration, batchSize int) (int, error)
}

// OrderTTLJobParams configure the stale order expiry job.
type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Market    staleOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewOrderTTLJob builds the job that fails orders stuck in `created`
// past the TTL. Orders past payment are never touched: once funds are
// escrowed, only ledger events move them.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Market == nil {
		return nil, fmt.Errorf("market service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderTTLJob{
		logg:   params.Logger,
		market: params.Market,
		ttl:    ttl,
		batch:  batch,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	market staleOrderExpirer
	ttl    time.Duration
	batch  int
}

func (j *orderTTLJob) Name() string { return orderTTLJobName }

func (j *orderTTLJob) Run(ctx context.Context) error {
	expired, err := j.market.ExpireStaleOrders(ctx, j.ttl, j.batch)
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ttl":            j.ttl.String(),
		"orders_expired": expired,
	})
	j.logg.Info(logCtx, "stale order expiry complete")
	return nil
}
