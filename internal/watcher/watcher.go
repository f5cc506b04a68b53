package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pactum-labs/pactum-gateway/internal/escrow"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/metrics"
)

// DefaultCursorName keys the escrow watcher's resume point.
const DefaultCursorName = "escrow"

type settlementApplier interface {
	ApplySettlement(ctx context.Context, settlement market.Settlement) error
}

// Config tunes the escrow event poller.
type Config struct {
	CursorName string
	Escrow     chain.Address
	// PollInterval is the idle wait between cycles.
	PollInterval time.Duration
	// ConfirmationDepth is how many blocks behind head the watcher trails
	// so reorged logs are never applied.
	ConfirmationDepth uint64
	// MaxBlockSpan caps the block range of one FilterLogs call.
	MaxBlockSpan uint64
}

// Watcher tails the escrow contract's settlement events and mirrors them
// into the order projection. The chain stays the source of truth for
// money: the watcher only moves the projection toward it, and because
// application is idempotent, replaying a block range is harmless.
type Watcher struct {
	client  chain.Client
	applier settlementApplier
	cursors CursorStore
	cfg     Config
	metrics *metrics.WatcherMetrics
	logg    *logger.Logger
}

// New builds a Watcher.
func New(client chain.Client, applier settlementApplier, cursors CursorStore, cfg Config, m *metrics.WatcherMetrics, logg *logger.Logger) (*Watcher, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client required")
	}
	if applier == nil {
		return nil, fmt.Errorf("settlement applier required")
	}
	if cursors == nil {
		return nil, fmt.Errorf("cursor store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	escrow, err := chain.ParseAddress(string(cfg.Escrow))
	if err != nil {
		return nil, fmt.Errorf("escrow contract address: %w", err)
	}
	if escrow.IsZero() {
		return nil, fmt.Errorf("escrow contract address required")
	}
	cfg.Escrow = escrow
	if cfg.CursorName == "" {
		cfg.CursorName = DefaultCursorName
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxBlockSpan == 0 {
		cfg.MaxBlockSpan = 2000
	}
	return &Watcher{
		client:  client,
		applier: applier,
		cursors: cursors,
		cfg:     cfg,
		metrics: m,
		logg:    logg,
	}, nil
}

// Run polls until the context is canceled. Cycle errors are logged and
// retried on the next tick; the cursor only advances past fully applied
// ranges, so a crash mid-cycle resumes where it left off.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.logg.Error(ctx, "watcher cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes every confirmed block past the cursor.
func (w *Watcher) RunOnce(ctx context.Context) error {
	head, err := w.blockNumber(ctx)
	if err != nil {
		w.metrics.IncRPCError()
		return fmt.Errorf("fetch head: %w", err)
	}
	if head < w.cfg.ConfirmationDepth {
		return nil
	}
	safe := head - w.cfg.ConfirmationDepth

	cursor, err := w.cursors.Load(ctx, w.cfg.CursorName)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if cursor >= safe {
		return nil
	}

	for from := cursor + 1; from <= safe; {
		to := from + w.cfg.MaxBlockSpan - 1
		if to > safe {
			to = safe
		}

		logs, err := w.filterLogs(ctx, from, to)
		if err != nil {
			w.metrics.IncRPCError()
			return fmt.Errorf("filter logs %d..%d: %w", from, to, err)
		}
		for _, log := range logs {
			settlement, ok := toSettlement(log)
			if !ok {
				continue
			}
			if err := w.applier.ApplySettlement(ctx, settlement); err != nil {
				return fmt.Errorf("apply %s for %s: %w", settlement.Kind, settlement.OrderKey, err)
			}
			w.metrics.IncEventApplied(string(settlement.Kind))
		}

		if err := w.cursors.Save(ctx, w.cfg.CursorName, to); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
		w.metrics.SetCursorBlock(to)
		from = to + 1
	}

	w.metrics.IncCycle()
	return nil
}

func (w *Watcher) blockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := retry.Do(ctx, rpcBackoff(), func(ctx context.Context) error {
		var err error
		head, err = w.client.BlockNumber(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return head, err
}

func (w *Watcher) filterLogs(ctx context.Context, from, to uint64) ([]chain.Log, error) {
	var logs []chain.Log
	err := retry.Do(ctx, rpcBackoff(), func(ctx context.Context) error {
		var err error
		logs, err = w.client.FilterLogs(ctx, chain.FilterQuery{
			FromBlock: from,
			ToBlock:   to,
			Address:   w.cfg.Escrow,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return logs, err
}

func rpcBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(250*time.Millisecond))
}

// toSettlement maps an escrow contract log onto the projection's
// settlement variants. Deposit and fee events carry no order transition
// and are skipped.
func toSettlement(log chain.Log) (market.Settlement, bool) {
	if len(log.Topics) < 2 {
		return market.Settlement{}, false
	}
	var kind market.SettlementKind
	switch log.Topic0() {
	case escrow.TopicReleased:
		kind = market.SettlementReleased
	case escrow.TopicRefunded:
		kind = market.SettlementRefunded
	case escrow.TopicDisputed:
		kind = market.SettlementDisputed
	default:
		return market.Settlement{}, false
	}
	return market.Settlement{
		OrderKey:    log.Topics[1],
		Kind:        kind,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
	}, true
}
