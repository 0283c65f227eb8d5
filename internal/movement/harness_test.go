package movement_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

// ==================== Gateway mock ====================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitiateCharge(ctx context.Context, req movement.ChargeRequest) (*movement.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Checkout), args.Error(1)
}

func (m *MockGateway) VerifyCharge(ctx context.Context, reference string) (*movement.ChargeVerification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.ChargeVerification), args.Error(1)
}

func (m *MockGateway) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	return args.String(0), args.Error(1)
}

// ==================== Event recorder ====================

type recordingPublisher struct {
	mu     sync.Mutex
	events []movement.EntryCommitted
}

func (p *recordingPublisher) Publish(_ context.Context, events ...movement.EntryCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) all() []movement.EntryCommitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]movement.EntryCommitted(nil), p.events...)
}

// ==================== Harness ====================

type harness struct {
	store     *memStore
	gateway   *MockGateway
	events    *recordingPublisher
	ledger    *ledger.Service
	wallets   *wallet.Service
	offerings *offering.Service
	positions *position.Service
	engine    *movement.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	h := &harness{
		store:     store,
		gateway:   new(MockGateway),
		events:    &recordingPublisher{},
		ledger:    ledger.NewService(memLedger{store}),
		wallets:   wallet.NewService(memWallets{store}),
		offerings: offering.NewService(memOfferings{store}, nil),
		positions: position.NewService(memPositions{store}),
	}
	h.engine = movement.NewService(movement.Deps{
		Tx:        store,
		Ledger:    h.ledger,
		Wallets:   h.wallets,
		Offerings: h.offerings,
		Positions: h.positions,
		Gateway:   h.gateway,
		Events:    h.events,
	}, movement.Config{MinWithdrawal: decimal.NewFromInt(1000)}, logger.NewNop())

	return h
}

func (h *harness) newUser(t *testing.T) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := h.wallets.Create(context.Background(), userID)
	require.NoError(t, err)
	return userID
}

// fund credits the user through the real confirm workflow
func (h *harness) fund(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	reference := "FND-" + uuid.NewString()
	h.gateway.On("VerifyCharge", mock.Anything, reference).Return(&movement.ChargeVerification{
		Status:    movement.ChargeSucceeded,
		Amount:    decimal.RequireFromString(amount),
		Reference: reference,
		UserID:    userID,
	}, nil).Once()

	_, err := h.engine.ConfirmFunding(context.Background(), userID, reference)
	require.NoError(t, err)
}

func (h *harness) newOffering(t *testing.T, price, rate string, units int) *offering.Offering {
	t.Helper()
	o, err := h.offerings.Create(context.Background(), offering.CreateInput{
		Title:      "Maize farm, Kaduna",
		UnitPrice:  decimal.RequireFromString(price),
		YieldRate:  decimal.RequireFromString(rate),
		TermMonths: 12,
		TotalUnits: units,
	})
	require.NoError(t, err)
	return o
}

func (h *harness) balance(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	b, err := h.engine.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b.StringFixed(2)
}

// assertBalancesReconcile checks the wallet/ledger invariant for every wallet
func (h *harness) assertBalancesReconcile(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	wallets, err := h.wallets.List(ctx, 1000, 0)
	require.NoError(t, err)
	for _, w := range wallets {
		sum, err := h.ledger.BalanceSum(ctx, w.UserID)
		require.NoError(t, err)
		assert.True(t, w.Balance.Equal(sum), "wallet %s balance %s != ledger sum %s", w.UserID, w.Balance, sum)
		assert.False(t, w.Balance.IsNegative())
	}
}

func (h *harness) entries(t *testing.T, userID uuid.UUID) []*ledger.Entry {
	t.Helper()
	list, err := h.engine.History(context.Background(), userID, ledger.Filter{})
	require.NoError(t, err)
	return list
}

func testBank() movement.BankDetails {
	return movement.BankDetails{
		BankCode:      "058",
		BankName:      "GTBank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
	}
}
