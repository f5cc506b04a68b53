package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

const agentEventRetentionDays = 30

type AgentEventCleanupJobParams struct {
	Logger     *logger.Logger
	Repository agentEventCleanupRepo
	Retention  int
}

type agentEventCleanupRepo interface {
	DeleteDeliveredAgentEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAgentEventCleanupJob builds the job that prunes delivered entries
// from the per-wallet pull feed. Undelivered entries are kept regardless
// of age so a dormant agent still sees its history on reconnect.
func NewAgentEventCleanupJob(params AgentEventCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("agent event repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = agentEventRetentionDays
	}
	return &agentEventCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type agentEventCleanupJob struct {
	logg      *logger.Logger
	repo      agentEventCleanupRepo
	retention int
	now       func() time.Time
}

func (j *agentEventCleanupJob) Name() string { return "agent-event-cleanup" }

func (j *agentEventCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteDeliveredAgentEventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("agent event cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "agent event cleanup complete")
	return nil
}
