package movement

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/user"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

// Config holds the engine's business settings
type Config struct {
	MinWithdrawal decimal.Decimal
}

// Deps are the collaborators of the engine. Events and Metrics default to
// no-ops when nil.
type Deps struct {
	Tx        Transactor
	Ledger    *ledger.Service
	Wallets   *wallet.Service
	Offerings *offering.Service
	Positions *position.Service
	Gateway   Gateway
	Events    EventPublisher
	Metrics   Metrics
}

// Service is the money-movement engine. Every workflow validates before it
// mutates and runs its mutations inside one transaction.
type Service struct {
	tx        Transactor
	ledger    *ledger.Service
	wallets   *wallet.Service
	offerings *offering.Service
	positions *position.Service
	gateway   Gateway
	events    EventPublisher
	metrics   Metrics
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

var _ user.DeletionGuard = (*Service)(nil)

// NewService creates the money-movement engine
func NewService(deps Deps, cfg Config, log *logger.Logger) *Service {
	events := deps.Events
	if events == nil {
		events = NoopPublisher{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Service{
		tx:        deps.Tx,
		ledger:    deps.Ledger,
		wallets:   deps.Wallets,
		offerings: deps.Offerings,
		positions: deps.Positions,
		gateway:   deps.Gateway,
		events:    events,
		metrics:   metrics,
		cfg:       cfg,
		logger:    log.WithField("component", "movement"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// InitiateFunding asks the gateway to start a deposit and returns the
// checkout handle. Internal state is not touched.
func (s *Service) InitiateFunding(ctx context.Context, userID uuid.UUID, email string, amount decimal.Decimal) (*Checkout, error) {
	var checkout *Checkout
	err := s.run(ctx, WorkflowInitiateFunding, func(log *logger.Logger) error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		if strings.TrimSpace(email) == "" {
			return ErrMissingEmail
		}

		reference := ledger.RefPrefixFunding + newULID()
		log.Info("initiating charge", "user_id", userID, "amount", amount.StringFixed(2), "reference", reference)

		c, err := s.gateway.InitiateCharge(ctx, ChargeRequest{
			Amount:    amount,
			Email:     email,
			UserID:    userID,
			Reference: reference,
		})
		if err != nil {
			return asGatewayError(err, ErrGatewayUnavailable)
		}
		checkout = c
		return nil
	})
	return checkout, err
}

// ConfirmFunding credits a verified deposit exactly once per reference.
// A reference already on the ledger returns ErrAlreadyProcessed.
func (s *Service) ConfirmFunding(ctx context.Context, userID uuid.UUID, reference string) (*FundingResult, error) {
	var result *FundingResult
	err := s.run(ctx, WorkflowConfirmFunding, func(log *logger.Logger) error {
		reference = strings.TrimSpace(reference)
		if reference == "" {
			return ErrMissingReference
		}

		existing, err := s.ledger.FindByReference(ctx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyProcessed
		}

		// The gateway round trip happens outside the transaction
		verification, err := s.gateway.VerifyCharge(ctx, reference)
		if err != nil {
			return asGatewayError(err, ErrVerificationUnavailable)
		}
		switch verification.Status {
		case ChargeSucceeded:
		case ChargePending:
			log.Info("charge still pending", "reference", reference)
			return ErrPaymentPending
		default:
			log.Info("charge not successful", "reference", reference, "status", verification.Status)
			return ErrPaymentNotSuccessful
		}
		if verification.UserID != uuid.Nil && verification.UserID != userID {
			return ErrChargeOwner
		}
		amount := verification.Amount
		if err := validateAmount(amount); err != nil {
			return fmt.Errorf("%w: gateway reported amount %s", ErrPaymentNotSuccessful, amount)
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			balance, err := s.wallets.Adjust(ctx, userID, amount)
			if err != nil {
				return err
			}

			entry := ledger.NewEntry(userID, ledger.KindDeposit, ledger.StatusSuccess, amount, reference, "Wallet funding")
			if _, err := s.ledger.Append(ctx, entry); err != nil {
				if errors.Is(err, ledger.ErrDuplicateReference) {
					return ErrAlreadyProcessed
				}
				return err
			}

			result = &FundingResult{Entry: entry, Balance: balance}
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("deposit credited", "user_id", userID, "amount", amount.StringFixed(2), "reference", reference)
		s.metrics.AddAmount(WorkflowConfirmFunding, amount)
		s.publish(ctx, WorkflowConfirmFunding, result.Entry)
		return nil
	})
	return result, err
}

// Invest buys units of an offering with wallet funds. The position is
// created before any money moves; the debit, the reservation and the ledger
// entry follow in the same transaction.
func (s *Service) Invest(ctx context.Context, userID, offeringID uuid.UUID, units int) (*InvestmentResult, error) {
	var result *InvestmentResult
	err := s.run(ctx, WorkflowInvest, func(log *logger.Logger) error {
		if units < 1 {
			return offering.ErrInvalidUnits
		}

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			// Lock order: wallet, then offering
			w, err := s.wallets.Lock(ctx, userID)
			if err != nil {
				return err
			}

			o, err := s.offerings.GetFresh(ctx, offeringID)
			if err != nil {
				return err
			}
			if err := o.CheckReservable(units); err != nil {
				return err
			}

			cost := o.Cost(units)
			if !w.CanCover(cost) {
				return wallet.ErrInsufficientFunds
			}

			p, err := s.positions.Create(ctx, position.CreateInput{
				UserID:          userID,
				OfferingID:      o.ID,
				Units:           units,
				CommittedAmount: cost,
				YieldRate:       o.YieldRate,
				MaturityDate:    position.MaturityDate(s.now(), o.TermMonths),
			})
			if err != nil {
				return err
			}

			balance, err := s.wallets.Adjust(ctx, userID, cost.Neg())
			if err != nil {
				return err
			}

			reserved, err := s.offerings.ReserveUnits(ctx, o.ID, units)
			if err != nil {
				return err
			}

			description := fmt.Sprintf("Investment in %s (%d units)", o.Title, units)
			entry := ledger.NewEntry(userID, ledger.KindInvestment, ledger.StatusSuccess, cost, ledger.InvestmentReference(p.ID), description)
			entry.Metadata = map[string]string{
				MetaOfferingID: o.ID.String(),
				MetaPositionID: p.ID.String(),
				MetaUnits:      strconv.Itoa(units),
			}
			if _, err := s.ledger.Append(ctx, entry); err != nil {
				return err
			}

			result = &InvestmentResult{Position: p, Offering: reserved, Entry: entry, Balance: balance}
			return nil
		})
		if err != nil {
			return err
		}

		s.offerings.Forget(ctx, offeringID)

		log.Info("investment recorded",
			"user_id", userID,
			"offering_id", offeringID,
			"position_id", result.Position.ID,
			"units", units,
			"amount", result.Entry.Magnitude().StringFixed(2),
		)
		s.metrics.AddAmount(WorkflowInvest, result.Entry.Magnitude())
		s.publish(ctx, WorkflowInvest, result.Entry)
		return nil
	})
	return result, err
}

// RequestWithdrawal debits the wallet immediately and records a pending
// withdrawal entry awaiting admin review.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bank BankDetails) (*WithdrawalResult, error) {
	var result *WithdrawalResult
	err := s.run(ctx, WorkflowRequestWithdrawal, func(log *logger.Logger) error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		if amount.LessThan(s.cfg.MinWithdrawal) {
			return fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, s.cfg.MinWithdrawal.StringFixed(2))
		}
		if err := bank.Validate(); err != nil {
			return err
		}

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			w, err := s.wallets.Lock(ctx, userID)
			if err != nil {
				return err
			}
			if !w.CanCover(amount) {
				return wallet.ErrInsufficientFunds
			}

			balance, err := s.wallets.Adjust(ctx, userID, amount.Neg())
			if err != nil {
				return err
			}

			description := fmt.Sprintf("Withdrawal to %s", bank.Masked())
			entry := ledger.NewEntry(userID, ledger.KindWithdrawal, ledger.StatusPending, amount, ledger.RefPrefixWithdrawal+newULID(), description)
			entry.Metadata = bank.metadata()
			if _, err := s.ledger.Append(ctx, entry); err != nil {
				return err
			}

			result = &WithdrawalResult{Entry: entry, Balance: balance}
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("withdrawal requested",
			"user_id", userID,
			"entry_id", result.Entry.ID,
			"amount", amount.StringFixed(2),
		)
		s.metrics.AddAmount(WorkflowRequestWithdrawal, amount)
		s.publish(ctx, WorkflowRequestWithdrawal, result.Entry)
		return nil
	})
	return result, err
}

// ResolveWithdrawal approves or rejects a pending withdrawal. Approval only
// settles the entry. Rejection fails it, credits the amount back and appends
// a separate refund entry.
func (s *Service) ResolveWithdrawal(ctx context.Context, entryID uuid.UUID, decision Decision) (*ResolutionResult, error) {
	var result *ResolutionResult
	err := s.run(ctx, WorkflowResolveWithdrawal, func(log *logger.Logger) error {
		if !decision.IsValid() {
			return ErrInvalidDecision
		}

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			original, err := s.ledger.Get(ctx, entryID)
			if err != nil {
				return err
			}
			if original.Kind != ledger.KindWithdrawal {
				return ErrNotWithdrawal
			}
			if original.Status != ledger.StatusPending {
				return ErrNotPending
			}

			if _, err := s.wallets.Lock(ctx, original.UserID); err != nil {
				return err
			}

			updated, err := s.ledger.SetStatus(ctx, entryID, decision.target())
			if err != nil {
				if errors.Is(err, ledger.ErrInvalidTransition) {
					return ErrNotPending
				}
				return err
			}
			result = &ResolutionResult{Entry: updated}

			if decision == DecisionApprove {
				result.Balance, err = s.wallets.GetBalance(ctx, original.UserID)
				return err
			}

			amount := original.Magnitude()
			result.Balance, err = s.wallets.Adjust(ctx, original.UserID, amount)
			if err != nil {
				return err
			}

			description := fmt.Sprintf("Refund for rejected withdrawal %s", original.ReferenceValue())
			refund := ledger.NewEntry(original.UserID, ledger.KindDeposit, ledger.StatusSuccess, amount, ledger.RefundReference(original.ID), description)
			refund.Metadata = map[string]string{MetaWithdrawalID: original.ID.String()}
			if _, err := s.ledger.Append(ctx, refund); err != nil {
				if errors.Is(err, ledger.ErrDuplicateReference) {
					return ErrNotPending
				}
				return err
			}
			result.Refund = refund
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("withdrawal resolved",
			"entry_id", entryID,
			"user_id", result.Entry.UserID,
			"decision", decision,
			"amount", result.Entry.Magnitude().StringFixed(2),
		)
		s.publish(ctx, WorkflowResolveWithdrawal, result.Entry, result.Refund)
		return nil
	})
	return result, err
}

// PayYield credits a position's expected payout and completes it. The
// payout entry is keyed by position id, so a payout interrupted after the
// credit completes the position without crediting twice.
func (s *Service) PayYield(ctx context.Context, positionID uuid.UUID) (*PayoutResult, error) {
	var result *PayoutResult
	err := s.run(ctx, WorkflowPayYield, func(log *logger.Logger) error {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			p, err := s.positions.Get(ctx, positionID)
			if err != nil {
				return err
			}
			if err := checkPayable(p); err != nil {
				return err
			}

			if _, err := s.wallets.Lock(ctx, p.UserID); err != nil {
				return err
			}

			result = &PayoutResult{}
			reference := ledger.YieldReference(p.ID)
			existing, err := s.ledger.FindByReference(ctx, reference)
			if err != nil {
				return err
			}

			if existing != nil {
				log.Warn("payout already credited, completing position", "position_id", p.ID, "entry_id", existing.ID)
				result.Balance, err = s.wallets.GetBalance(ctx, p.UserID)
				if err != nil {
					return err
				}
			} else {
				result.Balance, err = s.wallets.Adjust(ctx, p.UserID, p.ExpectedPayout)
				if err != nil {
					return err
				}

				description := fmt.Sprintf("Yield payout for position %s", p.ID)
				entry := ledger.NewEntry(p.UserID, ledger.KindYieldPayout, ledger.StatusSuccess, p.ExpectedPayout, reference, description)
				entry.Metadata = map[string]string{
					MetaPositionID: p.ID.String(),
					MetaOfferingID: p.OfferingID.String(),
				}
				if _, err := s.ledger.Append(ctx, entry); err != nil {
					if errors.Is(err, ledger.ErrDuplicateReference) {
						return position.ErrAlreadyCompleted
					}
					return err
				}
				result.Entry = entry
			}

			result.Position, err = s.positions.MarkCompleted(ctx, p.ID)
			return err
		})
		if err != nil {
			return err
		}

		log.Info("yield paid",
			"position_id", positionID,
			"user_id", result.Position.UserID,
			"amount", result.Position.ExpectedPayout.StringFixed(2),
		)
		if result.Entry != nil {
			s.metrics.AddAmount(WorkflowPayYield, result.Entry.Magnitude())
			s.publish(ctx, WorkflowPayYield, result.Entry)
		}
		return nil
	})
	return result, err
}

// ResolveBankAccount looks up the holder name of a bank account
func (s *Service) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	bankCode = strings.TrimSpace(bankCode)
	if accountNumber == "" || bankCode == "" {
		return "", ErrInvalidAccountInput
	}

	name, err := s.gateway.ResolveAccountName(ctx, accountNumber, bankCode)
	if err != nil {
		return "", asGatewayError(err, ErrUnresolvedAccount)
	}
	return name, nil
}

// GetBalance returns a user's spendable balance
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.wallets.GetBalance(ctx, userID)
}

// History lists a user's ledger entries newest-first
func (s *Service) History(ctx context.Context, userID uuid.UUID, filter ledger.Filter) ([]*ledger.Entry, error) {
	return s.ledger.History(ctx, userID, filter)
}

// ListWithdrawals lists withdrawal entries across users, optionally by status
func (s *Service) ListWithdrawals(ctx context.Context, status *ledger.Status, limit, offset int) ([]*ledger.Entry, error) {
	kind := ledger.KindWithdrawal
	return s.ledger.Find(ctx, ledger.Filter{Kind: &kind, Status: status, Limit: limit, Offset: offset})
}

// CheckDeletable blocks user deletion while money is still attached to the
// account. The wallet row stays locked until the caller's transaction ends.
func (s *Service) CheckDeletable(ctx context.Context, userID uuid.UUID) error {
	w, err := s.wallets.Lock(ctx, userID)
	if err != nil && !errors.Is(err, wallet.ErrWalletNotFound) {
		return err
	}
	if w != nil && !w.Balance.IsZero() {
		return fmt.Errorf("%w: balance is %s", user.ErrUserHasHoldings, w.Balance.StringFixed(2))
	}

	active, err := s.positions.HasActive(ctx, userID)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("%w: active positions", user.ErrUserHasHoldings)
	}

	pending, err := s.ledger.HasPending(ctx, userID)
	if err != nil {
		return err
	}
	if pending {
		return fmt.Errorf("%w: pending ledger entries", user.ErrUserHasHoldings)
	}
	return nil
}

// run wraps a workflow with timing, outcome logging and metrics
func (s *Service) run(ctx context.Context, workflow string, fn func(log *logger.Logger) error) error {
	start := time.Now()
	log := s.logger.WithContext(ctx).WithWorkflow(workflow)

	err := fn(log)

	d := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(apperrors.Kind(err))
		switch apperrors.Kind(err) {
		case apperrors.ErrCodeStorage, apperrors.ErrCodeGatewayUnavailable, apperrors.ErrCodeVerificationUnavailable:
			log.WithDuration(d).WithError(err).Error("workflow failed")
		default:
			log.WithDuration(d).Info("workflow rejected", "reason", apperrors.Kind(err), "error", err.Error())
		}
	}
	s.metrics.ObserveWorkflow(workflow, outcome, d)
	return err
}

func (s *Service) publish(ctx context.Context, workflow string, entries ...*ledger.Entry) {
	events := make([]EntryCommitted, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		events = append(events, EntryCommitted{
			EntryID:    e.ID,
			UserID:     e.UserID,
			Kind:       e.Kind,
			Status:     e.Status,
			Amount:     e.Amount,
			Reference:  e.ReferenceValue(),
			Workflow:   workflow,
			OccurredAt: s.now(),
		})
	}
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.WithError(err).Warn("failed to publish ledger events", "workflow", workflow, "count", len(events))
	}
}

func checkPayable(p *position.Position) error {
	switch p.Status {
	case position.StatusActive:
		return nil
	case position.StatusCompleted:
		return position.ErrAlreadyCompleted
	default:
		return position.ErrNotActive
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// asGatewayError keeps errors already of the fallback kind and folds
// anything else into it
func asGatewayError(err, fallback error) error {
	switch apperrors.Kind(err) {
	case apperrors.Kind(fallback), apperrors.ErrCodeValidation:
		return err
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func newULID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
