package cron

import (
	"context"
	"fmt"

	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

type reportGenerator interface {
	GenerateReport(ctx context.Context) (*reconciliation.InconsistencyReport, error)
}

// InconsistencyReportJobParams configure the reporting job.
type InconsistencyReportJobParams struct {
	Logger         *logger.Logger
	Reconciliation reportGenerator
}

// NewInconsistencyReportJob builds the job that surfaces ledger drift
// without repairing anything. Operators watch its log line for orphaned
// settlements, which the cleansing job deliberately leaves alone.
func NewInconsistencyReportJob(params InconsistencyReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciliation == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	return &inconsistencyReportJob{
		logg:  params.Logger,
		recon: params.Reconciliation,
	}, nil
}

type inconsistencyReportJob struct {
	logg  *logger.Logger
	recon reportGenerator
}

func (j *inconsistencyReportJob) Name() string { return "inconsistency-report" }

func (j *inconsistencyReportJob) Run(ctx context.Context) error {
	report, err := j.recon.GenerateReport(ctx)
	if err != nil {
		return fmt.Errorf("inconsistency report: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending_with_confirmations": report.PendingWithConfirmations,
		"pending_with_reversals":     report.PendingWithReversals,
		"pending_with_refunds":       report.PendingWithRefunds,
		"orphaned_settlements":       report.OrphanedSettlements,
		"total_inconsistencies":      report.TotalInconsistencies,
	})
	if report.TotalInconsistencies > 0 {
		j.logg.Warn(logCtx, "ledger inconsistencies detected")
	} else {
		j.logg.Info(logCtx, "ledger consistent")
	}
	return nil
}
