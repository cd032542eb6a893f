package cron

import (
	"context"
	"fmt"

	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/metrics"
)

type cleansingRunner interface {
	RunCleansing(ctx context.Context) (*reconciliation.CleansingResult, error)
}

// CleansingJobParams configure the ledger cleansing job.
type CleansingJobParams struct {
	Logger         *logger.Logger
	Reconciliation cleansingRunner
	Metrics        *metrics.CronJobMetrics
}

// NewCleansingJob builds the job that repairs stuck pending transactions.
func NewCleansingJob(params CleansingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciliation == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	return &cleansingJob{
		logg:    params.Logger,
		recon:   params.Reconciliation,
		metrics: params.Metrics,
	}, nil
}

type cleansingJob struct {
	logg    *logger.Logger
	recon   cleansingRunner
	metrics *metrics.CronJobMetrics
}

func (j *cleansingJob) Name() string { return "ledger-cleansing" }

func (j *cleansingJob) Run(ctx context.Context) error {
	result, err := j.recon.RunCleansing(ctx)
	if result != nil {
		j.record(result)
	}
	if err != nil {
		return fmt.Errorf("ledger cleansing: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"confirmed_fixed": result.ConfirmedFixed,
		"reversed_fixed":  result.ReversedFixed,
		"refunded_fixed":  result.RefundedFixed,
		"orphaned_found":  result.OrphanedFound,
		"total_fixed":     result.TotalFixed,
	})
	j.logg.Info(logCtx, "ledger cleansing complete")
	return nil
}

func (j *cleansingJob) record(result *reconciliation.CleansingResult) {
	if j.metrics == nil {
		return
	}
	j.metrics.AddRepairs("confirmed", result.ConfirmedFixed)
	j.metrics.AddRepairs("reversed", result.ReversedFixed)
	j.metrics.AddRepairs("refunded", result.RefundedFixed)
	j.metrics.AddRepairs("orphaned", int(result.OrphanedFound))
}
