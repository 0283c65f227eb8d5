package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

const (
	// DefaultReconcileInterval is the default interval between passes
	DefaultReconcileInterval = 10 * time.Minute

	// DefaultOrphanGrace is how old an active position without an
	// investment entry must be before it is cancelled
	DefaultOrphanGrace = 15 * time.Minute

	reconcilePageSize = 200
)

// BalanceMismatch is a wallet whose balance disagrees with its ledger
type BalanceMismatch struct {
	UserID     uuid.UUID       `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Difference decimal.Decimal `json:"difference"`
}

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	StartedAt          time.Time         `json:"started_at"`
	FinishedAt         time.Time         `json:"finished_at"`
	CompletedPositions int               `json:"completed_positions"`
	CancelledPositions int               `json:"cancelled_positions"`
	WalletsChecked     int               `json:"wallets_checked"`
	Mismatches         []BalanceMismatch `json:"mismatches"`
}

// Reconciler scans for partial workflow states and repairs the ones that
// have an idempotent tail. Balance mismatches are reported, never corrected.
type Reconciler struct {
	tx        Transactor
	ledger    *ledger.Service
	wallets   *wallet.Service
	positions *position.Service
	metrics   Metrics
	interval  time.Duration
	grace     time.Duration
	pageSize  int
	logger    *logger.Logger
	now       func() time.Time
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	Interval    time.Duration
	OrphanGrace time.Duration
	PageSize    int
	Metrics     Metrics
	Logger      *logger.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(
	tx Transactor,
	ledgerSvc *ledger.Service,
	wallets *wallet.Service,
	positions *position.Service,
	config *ReconcilerConfig,
) *Reconciler {
	interval := DefaultReconcileInterval
	grace := DefaultOrphanGrace
	pageSize := reconcilePageSize
	var metrics Metrics = NoopMetrics{}
	log := logger.NewNop()

	if config != nil {
		if config.Interval > 0 {
			interval = config.Interval
		}
		if config.OrphanGrace > 0 {
			grace = config.OrphanGrace
		}
		if config.PageSize > 0 {
			pageSize = config.PageSize
		}
		if config.Metrics != nil {
			metrics = config.Metrics
		}
		if config.Logger != nil {
			log = config.Logger
		}
	}

	return &Reconciler{
		tx:        tx,
		ledger:    ledgerSvc,
		wallets:   wallets,
		positions: positions,
		metrics:   metrics,
		interval:  interval,
		grace:     grace,
		pageSize:  pageSize,
		logger:    log.WithField("component", "reconciler"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run reconciles on a ticker until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler started", "interval", r.interval, "orphan_grace", r.grace)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WithError(err).Error("reconcile pass failed")
			}
		}
	}
}

// RunOnce performs a single pass of all checks
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: r.now(), Mismatches: []BalanceMismatch{}}
	log := r.logger.WithWorkflow(WorkflowReconcile)

	completed, err := r.CompletePaidPositions(ctx)
	report.CompletedPositions = completed
	if err != nil {
		return report, err
	}

	cancelled, err := r.CancelOrphanPositions(ctx)
	report.CancelledPositions = cancelled
	if err != nil {
		return report, err
	}

	checked, mismatches, err := r.VerifyBalances(ctx)
	report.WalletsChecked = checked
	report.Mismatches = append(report.Mismatches, mismatches...)
	if err != nil {
		return report, err
	}

	report.FinishedAt = r.now()
	r.metrics.ObserveReconcile(report)

	log.WithDuration(report.FinishedAt.Sub(report.StartedAt)).Info("reconcile pass finished",
		"completed_positions", report.CompletedPositions,
		"cancelled_positions", report.CancelledPositions,
		"wallets_checked", report.WalletsChecked,
		"mismatches", len(report.Mismatches),
	)
	return report, nil
}

// CompletePaidPositions completes active positions whose payout entry
// already exists
func (r *Reconciler) CompletePaidPositions(ctx context.Context) (int, error) {
	var completed int
	err := r.eachActive(ctx, nil, func(p *position.Position) (bool, error) {
		entry, err := r.ledger.FindByReference(ctx, ledger.YieldReference(p.ID))
		if err != nil || entry == nil {
			return false, err
		}

		if _, err := r.positions.MarkCompleted(ctx, p.ID); err != nil {
			if leftActive(err) {
				return true, nil
			}
			r.logger.WithError(err).Warn("failed to complete paid position", "position_id", p.ID)
			return false, nil
		}
		r.logger.Info("completed paid position", "position_id", p.ID, "entry_id", entry.ID)
		completed++
		return true, nil
	})
	return completed, err
}

// CancelOrphanPositions cancels active positions older than the grace
// period that have no investment entry, and therefore no debit
func (r *Reconciler) CancelOrphanPositions(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.grace)

	var cancelled int
	err := r.eachActive(ctx, &cutoff, func(p *position.Position) (bool, error) {
		entry, err := r.ledger.FindByReference(ctx, ledger.InvestmentReference(p.ID))
		if err != nil || entry != nil {
			return false, err
		}

		if _, err := r.positions.MarkCancelled(ctx, p.ID); err != nil {
			if leftActive(err) {
				return true, nil
			}
			r.logger.WithError(err).Warn("failed to cancel orphan position", "position_id", p.ID)
			return false, nil
		}
		r.logger.Warn("cancelled orphan position", "position_id", p.ID, "user_id", p.UserID)
		cancelled++
		return true, nil
	})
	return cancelled, err
}

// VerifyBalances compares every wallet to its reconciling ledger sum.
// Each comparison holds the wallet lock so in-flight workflows cannot
// produce a false mismatch.
func (r *Reconciler) VerifyBalances(ctx context.Context) (int, []BalanceMismatch, error) {
	var checked int
	mismatches := make([]BalanceMismatch, 0)

	for offset := 0; ; offset += r.pageSize {
		wallets, err := r.wallets.List(ctx, r.pageSize, offset)
		if err != nil {
			return checked, mismatches, err
		}

		for _, w := range wallets {
			var m *BalanceMismatch
			err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
				locked, err := r.wallets.Lock(ctx, w.UserID)
				if err != nil {
					return err
				}
				sum, err := r.ledger.BalanceSum(ctx, w.UserID)
				if err != nil {
					return err
				}
				if !locked.Balance.Equal(sum) {
					m = &BalanceMismatch{
						UserID:     w.UserID,
						Balance:    locked.Balance,
						LedgerSum:  sum,
						Difference: locked.Balance.Sub(sum),
					}
				}
				return nil
			})
			if err != nil {
				return checked, mismatches, err
			}

			checked++
			if m != nil {
				r.logger.Error("wallet balance does not match ledger",
					"user_id", m.UserID,
					"balance", m.Balance.StringFixed(2),
					"ledger_sum", m.LedgerSum.StringFixed(2),
				)
				mismatches = append(mismatches, *m)
			}
		}

		if len(wallets) < r.pageSize {
			return checked, mismatches, nil
		}
	}
}

// leftActive reports a transition refused because another writer already
// moved the position out of active
func leftActive(err error) bool {
	return apperrors.IsConflict(err)
}

// eachActive pages through active positions. fn reports whether the
// position is no longer active, by its hand or another writer's; the offset
// only advances past the ones that stayed.
func (r *Reconciler) eachActive(ctx context.Context, createdBefore *time.Time, fn func(p *position.Position) (bool, error)) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := r.positions.ListActive(ctx, position.ActiveFilter{
			CreatedBefore: createdBefore,
			Limit:         r.pageSize,
			Offset:        offset,
		})
		if err != nil {
			return err
		}

		stayed := 0
		for _, p := range page {
			moved, err := fn(p)
			if err != nil {
				return err
			}
			if !moved {
				stayed++
			}
		}

		if len(page) < r.pageSize {
			return nil
		}
		offset += stayed
	}
}
