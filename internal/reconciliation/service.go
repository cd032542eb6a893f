package reconciliation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

// CleansingResult summarizes one self-healing pass over the ledgers.
type CleansingResult struct {
	ConfirmedFixed int   `json:"confirmed_fixed"`
	ReversedFixed  int   `json:"reversed_fixed"`
	RefundedFixed  int   `json:"refunded_fixed"`
	OrphanedFound  int64 `json:"orphaned_found"`
	TotalFixed     int   `json:"total_fixed"`
	DurationMs     int64 `json:"duration_ms"`
	Success        bool  `json:"success"`
}

// InconsistencyReport is the dry-run view: it counts what RunCleansing would
// repair without touching anything.
type InconsistencyReport struct {
	PendingWithConfirmations int64 `json:"pending_with_confirmations"`
	PendingWithReversals     int64 `json:"pending_with_reversals"`
	PendingWithRefunds       int64 `json:"pending_with_refunds"`
	OrphanedSettlements      int64 `json:"orphaned_settlements"`
	TotalInconsistencies     int64 `json:"total_inconsistencies"`
}

// Service repairs ledger entries stuck in pending despite having settlement
// entries. Orphaned settlements are surfaced but never repaired: inventing a
// missing originating entry would fabricate history.
type Service interface {
	RunCleansing(ctx context.Context) (*CleansingResult, error)
	GenerateReport(ctx context.Context) (*InconsistencyReport, error)
}

type service struct {
	ledgers    []ledger.Repository
	batchLimit int
	logg       *logger.Logger
}

// NewService wires a reconciliation service over the provided ledgers.
func NewService(ledgers []ledger.Repository, batchLimit int, logg *logger.Logger) (Service, error) {
	if len(ledgers) == 0 {
		return nil, fmt.Errorf("at least one ledger repository required")
	}
	if batchLimit <= 0 {
		return nil, fmt.Errorf("batch limit must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{ledgers: ledgers, batchLimit: batchLimit, logg: logg}, nil
}

func terminalStatusFor(settleType enums.TransactionType) enums.TransactionStatus {
	switch settleType {
	case enums.TransactionTypeReversal:
		return enums.TransactionStatusReversed
	case enums.TransactionTypeRefund:
		return enums.TransactionStatusRefunded
	default:
		return enums.TransactionStatusConfirmed
	}
}

// RunCleansing walks every ledger and flips stuck pending entries to the
// terminal status their settlement entries prove. When one origin has
// settlements of several types, priority order decides: refund beats
// reversal beats confirmation, because the earlier pass flips the row and
// the later pass no longer matches it. Individual failures are collected
// and do not stop the pass.
func (s *service) RunCleansing(ctx context.Context) (*CleansingResult, error) {
	start := time.Now()
	result := &CleansingResult{}
	var errs error

	for _, repo := range s.ledgers {
		for _, settleType := range enums.SettlementTypesByPriority {
			entries, err := repo.FindPendingWithSettlement(ctx, settleType, s.batchLimit)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: finding pending with %s: %w", repo.Kind(), settleType, err))
				continue
			}
			terminal := terminalStatusFor(settleType)
			for i := range entries {
				fixed, err := repo.MarkStatus(ctx, entries[i].ID, terminal, time.Now().UTC())
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: repairing %s: %w", repo.Kind(), entries[i].TransactionID, err))
					continue
				}
				if !fixed {
					// Another writer settled it between query and flip.
					continue
				}
				switch terminal {
				case enums.TransactionStatusConfirmed:
					result.ConfirmedFixed++
				case enums.TransactionStatusReversed:
					result.ReversedFixed++
				case enums.TransactionStatusRefunded:
					result.RefundedFixed++
				}
			}
		}

		orphaned, err := repo.CountOrphanedSettlements(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: counting orphans: %w", repo.Kind(), err))
			continue
		}
		result.OrphanedFound += orphaned
	}

	result.TotalFixed = result.ConfirmedFixed + result.ReversedFixed + result.RefundedFixed
	result.DurationMs = time.Since(start).Milliseconds()
	result.Success = errs == nil

	ctx = s.logg.WithFields(ctx, map[string]any{
		"confirmed_fixed": result.ConfirmedFixed,
		"reversed_fixed":  result.ReversedFixed,
		"refunded_fixed":  result.RefundedFixed,
		"orphaned_found":  result.OrphanedFound,
		"duration_ms":     result.DurationMs,
	})
	if errs != nil {
		s.logg.Error(ctx, "ledger cleansing finished with errors", errs)
	} else {
		s.logg.Info(ctx, "ledger cleansing finished")
	}
	return result, errs
}

// GenerateReport counts inconsistencies without repairing them.
func (s *service) GenerateReport(ctx context.Context) (*InconsistencyReport, error) {
	report := &InconsistencyReport{}

	for _, repo := range s.ledgers {
		confirmations, err := repo.CountPendingWithSettlement(ctx, enums.TransactionTypeConfirmation)
		if err != nil {
			return nil, fmt.Errorf("%s: counting pending confirmations: %w", repo.Kind(), err)
		}
		reversals, err := repo.CountPendingWithSettlement(ctx, enums.TransactionTypeReversal)
		if err != nil {
			return nil, fmt.Errorf("%s: counting pending reversals: %w", repo.Kind(), err)
		}
		refunds, err := repo.CountPendingWithSettlement(ctx, enums.TransactionTypeRefund)
		if err != nil {
			return nil, fmt.Errorf("%s: counting pending refunds: %w", repo.Kind(), err)
		}
		orphaned, err := repo.CountOrphanedSettlements(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: counting orphans: %w", repo.Kind(), err)
		}

		report.PendingWithConfirmations += confirmations
		report.PendingWithReversals += reversals
		report.PendingWithRefunds += refunds
		report.OrphanedSettlements += orphaned
	}

	report.TotalInconsistencies = report.PendingWithConfirmations +
		report.PendingWithReversals +
		report.PendingWithRefunds +
		report.OrphanedSettlements
	return report, nil
}
