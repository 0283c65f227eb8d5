package movement_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
)

// memStore is an in-memory database shared by the fake repositories.
// A transaction holds the store mutex for its whole duration and restores
// a snapshot when it fails, which gives the engine the same atomicity and
// per-row serialization the Postgres repositories provide.
type memStore struct {
	mu        sync.Mutex
	wallets   map[uuid.UUID]wallet.Wallet
	offerings map[uuid.UUID]offering.Offering
	positions map[uuid.UUID]position.Position
	entries   []ledger.Entry

	// failures injects an error into the named operation
	failures map[string]error
}

type txKey struct{}

func newMemStore() *memStore {
	return &memStore{
		wallets:   make(map[uuid.UUID]wallet.Wallet),
		offerings: make(map[uuid.UUID]offering.Offering),
		positions: make(map[uuid.UUID]position.Position),
		failures:  make(map[string]error),
	}
}

type memSnapshot struct {
	wallets   map[uuid.UUID]wallet.Wallet
	offerings map[uuid.UUID]offering.Offering
	positions map[uuid.UUID]position.Position
	entries   []ledger.Entry
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		wallets:   make(map[uuid.UUID]wallet.Wallet, len(s.wallets)),
		offerings: make(map[uuid.UUID]offering.Offering, len(s.offerings)),
		positions: make(map[uuid.UUID]position.Position, len(s.positions)),
		entries:   make([]ledger.Entry, len(s.entries)),
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.offerings {
		snap.offerings[k] = v
	}
	for k, v := range s.positions {
		snap.positions[k] = v
	}
	copy(snap.entries, s.entries)
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.wallets = snap.wallets
	s.offerings = snap.offerings
	s.positions = snap.positions
	s.entries = snap.entries
}

// WithinTx implements movement.Transactor
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// do runs one repository operation, taking the store lock unless the
// caller's transaction already holds it
func (s *memStore) do(ctx context.Context, op string, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err, ok := s.failures[op]; ok {
		return err
	}
	return fn()
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// ==================== Ledger ====================

type memLedger struct{ s *memStore }

func (r memLedger) Append(ctx context.Context, e *ledger.Entry) error {
	return r.s.do(ctx, "ledger.Append", func() error {
		if ref := e.ReferenceValue(); ref != "" {
			for _, existing := range r.s.entries {
				if existing.ReferenceValue() == ref {
					return ledger.ErrDuplicateReference
				}
			}
		}
		r.s.entries = append(r.s.entries, copyEntry(e))
		return nil
	})
}

func (r memLedger) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.s.do(ctx, "ledger.Get", func() error {
		for _, e := range r.s.entries {
			if e.ID == id {
				c := copyEntry(&e)
				out = &c
				return nil
			}
		}
		return ledger.ErrEntryNotFound
	})
	return out, err
}

func (r memLedger) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.s.do(ctx, "ledger.GetByReference", func() error {
		for _, e := range r.s.entries {
			if e.ReferenceValue() == reference {
				c := copyEntry(&e)
				out = &c
				return nil
			}
		}
		return ledger.ErrEntryNotFound
	})
	return out, err
}

func (r memLedger) Find(ctx context.Context, f ledger.Filter) ([]*ledger.Entry, error) {
	out := make([]*ledger.Entry, 0)
	err := r.s.do(ctx, "ledger.Find", func() error {
		for i := len(r.s.entries) - 1; i >= 0; i-- {
			e := r.s.entries[i]
			if f.UserID != nil && e.UserID != *f.UserID {
				continue
			}
			if f.Kind != nil && e.Kind != *f.Kind {
				continue
			}
			if f.Status != nil && e.Status != *f.Status {
				continue
			}
			c := copyEntry(&e)
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if f.Offset >= len(out) {
		return []*ledger.Entry{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memLedger) UpdateStatus(ctx context.Context, id uuid.UUID, from, to ledger.Status) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.s.do(ctx, "ledger.UpdateStatus", func() error {
		for i := range r.s.entries {
			if r.s.entries[i].ID != id {
				continue
			}
			if r.s.entries[i].Status != from {
				return ledger.ErrInvalidTransition
			}
			r.s.entries[i].Status = to
			r.s.entries[i].UpdatedAt = time.Now().UTC()
			c := copyEntry(&r.s.entries[i])
			out = &c
			return nil
		}
		return ledger.ErrEntryNotFound
	})
	return out, err
}

func (r memLedger) BalanceSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.s.do(ctx, "ledger.BalanceSum", func() error {
		for _, e := range r.s.entries {
			if e.UserID == userID && e.CountsTowardBalance() {
				sum = sum.Add(e.Amount)
			}
		}
		return nil
	})
	return sum, err
}

func (r memLedger) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.s.do(ctx, "ledger.CountPending", func() error {
		for _, e := range r.s.entries {
			if e.UserID == userID && e.Status == ledger.StatusPending {
				n++
			}
		}
		return nil
	})
	return n, err
}

func copyEntry(e *ledger.Entry) ledger.Entry {
	c := *e
	if e.Reference != nil {
		ref := *e.Reference
		c.Reference = &ref
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// ==================== Wallets ====================

type memWallets struct{ s *memStore }

func (r memWallets) Create(ctx context.Context, w *wallet.Wallet) error {
	return r.s.do(ctx, "wallet.Create", func() error {
		if _, ok := r.s.wallets[w.UserID]; ok {
			return wallet.ErrWalletExists
		}
		r.s.wallets[w.UserID] = *w
		return nil
	})
}

func (r memWallets) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.s.do(ctx, "wallet.Get", func() error {
		w, ok := r.s.wallets[userID]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r memWallets) GetForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r memWallets) Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.s.do(ctx, "wallet.Adjust", func() error {
		w, ok := r.s.wallets[userID]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		next := w.Balance.Add(delta)
		if next.IsNegative() {
			return wallet.ErrInsufficientFunds
		}
		w.Balance = next
		w.UpdatedAt = time.Now().UTC()
		r.s.wallets[userID] = w
		balance = next
		return nil
	})
	return balance, err
}

func (r memWallets) List(ctx context.Context, limit, offset int) ([]*wallet.Wallet, error) {
	out := make([]*wallet.Wallet, 0)
	err := r.s.do(ctx, "wallet.List", func() error {
		ids := make([]uuid.UUID, 0, len(r.s.wallets))
		for id := range r.s.wallets {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for i := offset; i < len(ids) && len(out) < limit; i++ {
			w := r.s.wallets[ids[i]]
			out = append(out, &w)
		}
		return nil
	})
	return out, err
}

// ==================== Offerings ====================

type memOfferings struct{ s *memStore }

func (r memOfferings) Create(ctx context.Context, o *offering.Offering) error {
	return r.s.do(ctx, "offering.Create", func() error {
		r.s.offerings[o.ID] = *o
		return nil
	})
}

func (r memOfferings) Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	var out *offering.Offering
	err := r.s.do(ctx, "offering.Get", func() error {
		o, ok := r.s.offerings[id]
		if !ok {
			return offering.ErrOfferingNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r memOfferings) List(ctx context.Context, f offering.ListFilter) ([]*offering.Offering, error) {
	out := make([]*offering.Offering, 0)
	err := r.s.do(ctx, "offering.List", func() error {
		for _, o := range r.s.offerings {
			if f.Status != nil && o.Status != *f.Status {
				continue
			}
			o := o
			out = append(out, &o)
		}
		return nil
	})
	return out, err
}

func (r memOfferings) ReserveUnits(ctx context.Context, id uuid.UUID, units int) (*offering.Offering, error) {
	var out *offering.Offering
	err := r.s.do(ctx, "offering.ReserveUnits", func() error {
		o, ok := r.s.offerings[id]
		if !ok {
			return offering.ErrOfferingNotFound
		}
		if !o.IsOpen() {
			return offering.ErrNotOpen
		}
		if o.RemainingUnits < units {
			return offering.ErrInsufficientCapacity
		}
		o.RemainingUnits -= units
		o.Investors++
		if o.RemainingUnits == 0 {
			o.Status = offering.StatusSoldOut
		}
		r.s.offerings[id] = o
		out = &o
		return nil
	})
	return out, err
}

func (r memOfferings) Close(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	var out *offering.Offering
	err := r.s.do(ctx, "offering.Close", func() error {
		o, ok := r.s.offerings[id]
		if !ok {
			return offering.ErrOfferingNotFound
		}
		switch o.Status {
		case offering.StatusClosed:
			return offering.ErrAlreadyClosed
		case offering.StatusSoldOut:
			return offering.ErrCloseSoldOut
		}
		o.Status = offering.StatusClosed
		r.s.offerings[id] = o
		out = &o
		return nil
	})
	return out, err
}

// ==================== Positions ====================

type memPositions struct{ s *memStore }

func (r memPositions) Create(ctx context.Context, p *position.Position) error {
	return r.s.do(ctx, "position.Create", func() error {
		r.s.positions[p.ID] = *p
		return nil
	})
}

func (r memPositions) Get(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	var out *position.Position
	err := r.s.do(ctx, "position.Get", func() error {
		p, ok := r.s.positions[id]
		if !ok {
			return position.ErrPositionNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPositions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error) {
	out := make([]*position.Position, 0)
	err := r.s.do(ctx, "position.ListByUser", func() error {
		for _, p := range r.s.positions {
			if p.UserID == userID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r memPositions) ListActive(ctx context.Context, f position.ActiveFilter) ([]*position.Position, error) {
	all := make([]*position.Position, 0)
	err := r.s.do(ctx, "position.ListActive", func() error {
		for _, p := range r.s.positions {
			if p.Status != position.StatusActive {
				continue
			}
			if f.CreatedBefore != nil && !p.CreatedAt.Before(*f.CreatedBefore) {
				continue
			}
			p := p
			all = append(all, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if f.Offset >= len(all) {
		return []*position.Position{}, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r memPositions) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.s.do(ctx, "position.CountActiveByUser", func() error {
		for _, p := range r.s.positions {
			if p.UserID == userID && p.Status == position.StatusActive {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memPositions) MarkCompleted(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	return r.transition(ctx, id, position.StatusCompleted, position.ErrAlreadyCompleted)
}

func (r memPositions) MarkCancelled(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	return r.transition(ctx, id, position.StatusCancelled, position.ErrNotActive)
}

func (r memPositions) transition(ctx context.Context, id uuid.UUID, to position.Status, stateErr error) (*position.Position, error) {
	var out *position.Position
	err := r.s.do(ctx, "position."+string(to), func() error {
		p, ok := r.s.positions[id]
		if !ok {
			return position.ErrPositionNotFound
		}
		if p.Status != position.StatusActive {
			return stateErr
		}
		now := time.Now().UTC()
		p.Status = to
		p.UpdatedAt = now
		if to == position.StatusCompleted {
			p.CompletedAt = &now
		}
		r.s.positions[id] = p
		out = &p
		return nil
	})
	return out, err
}
