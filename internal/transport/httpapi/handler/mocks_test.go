package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/user"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/middleware"
)

// ==================== Engine mock ====================

type MockMovement struct {
	mock.Mock
}

func (m *MockMovement) InitiateFunding(ctx context.Context, userID uuid.UUID, email string, amount decimal.Decimal) (*movement.Checkout, error) {
	args := m.Called(ctx, userID, email, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Checkout), args.Error(1)
}

func (m *MockMovement) ConfirmFunding(ctx context.Context, userID uuid.UUID, reference string) (*movement.FundingResult, error) {
	args := m.Called(ctx, userID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.FundingResult), args.Error(1)
}

func (m *MockMovement) Invest(ctx context.Context, userID, offeringID uuid.UUID, units int) (*movement.InvestmentResult, error) {
	args := m.Called(ctx, userID, offeringID, units)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.InvestmentResult), args.Error(1)
}

func (m *MockMovement) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bank movement.BankDetails) (*movement.WithdrawalResult, error) {
	args := m.Called(ctx, userID, amount, bank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.WithdrawalResult), args.Error(1)
}

func (m *MockMovement) ResolveWithdrawal(ctx context.Context, entryID uuid.UUID, decision movement.Decision) (*movement.ResolutionResult, error) {
	args := m.Called(ctx, entryID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.ResolutionResult), args.Error(1)
}

func (m *MockMovement) PayYield(ctx context.Context, positionID uuid.UUID) (*movement.PayoutResult, error) {
	args := m.Called(ctx, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.PayoutResult), args.Error(1)
}

func (m *MockMovement) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	return args.String(0), args.Error(1)
}

func (m *MockMovement) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMovement) History(ctx context.Context, userID uuid.UUID, filter ledger.Filter) ([]*ledger.Entry, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockMovement) ListWithdrawals(ctx context.Context, status *ledger.Status, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

// ==================== User / catalog / position mocks ====================

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Register(ctx context.Context, email, fullName, password string) (*user.User, error) {
	args := m.Called(ctx, email, fullName, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) Login(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Create(ctx context.Context, in offering.CreateInput) (*offering.Offering, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offering.Offering), args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offering.Offering), args.Error(1)
}

func (m *MockCatalog) List(ctx context.Context, filter offering.ListFilter) ([]*offering.Offering, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*offering.Offering), args.Error(1)
}

func (m *MockCatalog) Close(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offering.Offering), args.Error(1)
}

type MockPositions struct {
	mock.Mock
}

func (m *MockPositions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*position.Position), args.Error(1)
}

func (m *MockPositions) GetOwned(ctx context.Context, id, userID uuid.UUID) (*position.Position, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*position.Position), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) RunOnce(ctx context.Context) (*movement.ReconcileReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.ReconcileReport), args.Error(1)
}

// ==================== Request helpers ====================

type caller struct {
	id    uuid.UUID
	email string
	role  user.Role
}

func investor() caller {
	return caller{id: uuid.New(), email: "ada@example.com", role: user.RoleUser}
}

func admin() caller {
	return caller{id: uuid.New(), email: "ops@example.com", role: user.RoleAdmin}
}

// serve routes one request through a chi mux so URL params resolve.
// A nil caller sends the request unauthenticated.
func serve(t *testing.T, method, pattern, target, body string, who *caller, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if who != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), who.id, who.email, who.role))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
