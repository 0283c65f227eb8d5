package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
)

const ledgerReferenceConstraint = "ledger_entries_reference_key"

const ledgerColumns = `id, user_id, amount::text, kind, status, reference, description, metadata, created_at, updated_at`

// LedgerRepository implements ledger.Repository using PostgreSQL
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// Append inserts a new entry. The UNIQUE(reference) constraint makes the
// idempotency check race-free.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (id, user_id, amount, kind, status, reference, description, metadata, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10)
	`

	q := getQueryer(ctx, r.pool)
	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Amount.StringFixed(2),
		string(entry.Kind),
		string(entry.Status),
		entry.Reference,
		entry.Description,
		metadataJSON,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, ledgerReferenceConstraint) {
			return ledger.ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

// Get retrieves an entry by ID
func (r *LedgerRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`

	entry, err := scanLedgerEntry(getQueryer(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// GetByReference retrieves an entry by its unique reference
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE reference = $1`

	entry, err := scanLedgerEntry(getQueryer(ctx, r.pool).QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry by reference: %w", err)
	}
	return entry, nil
}

// Find lists entries newest-first with filters and pagination
func (r *LedgerRepository) Find(ctx context.Context, filter ledger.Filter) ([]*ledger.Entry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE 1=1`

	args := make([]interface{}, 0)
	argPos := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argPos)
		args = append(args, *filter.UserID)
		argPos++
	}

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argPos)
		args = append(args, string(*filter.Kind))
		argPos++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*filter.Status))
		argPos++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := getQueryer(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// UpdateStatus transitions an entry with a conditional update, so two
// concurrent resolutions of the same pending entry cannot both win.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to ledger.Status) (*ledger.Entry, error) {
	query := `
		UPDATE ledger_entries
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + ledgerColumns

	q := getQueryer(ctx, r.pool)
	entry, err := scanLedgerEntry(q.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update ledger entry status: %w", err)
	}

	// No row matched: tell a missing entry apart from one in the wrong state
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ledger.ErrInvalidTransition
}

// BalanceSum returns the reconciling sum of a user's entries: every
// success entry plus withdrawals in any status.
func (r *LedgerRepository) BalanceSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM ledger_entries
		WHERE user_id = $1 AND (status = 'success' OR kind = 'withdrawal')
	`

	var sumStr string
	if err := getQueryer(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&sumStr); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return parseDecimal(sumStr, "ledger sum")
}

// CountPending counts a user's pending entries
func (r *LedgerRepository) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1 AND status = 'pending'`

	var n int
	if err := getQueryer(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return n, nil
}

// scanLedgerEntry scans a single entry from a row
func scanLedgerEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	var amountStr string
	var metadataJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&amountStr,
		&entry.Kind,
		&entry.Status,
		&entry.Reference,
		&entry.Description,
		&metadataJSON,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entry.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &entry, nil
}
