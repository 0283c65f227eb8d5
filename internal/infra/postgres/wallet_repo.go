package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/platform/wallet"
)

// WalletRepository implements the wallet repository using PostgreSQL
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

var _ wallet.Repository = (*WalletRepository)(nil)

// Create creates a new zero-balance wallet
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4)
	`

	_, err := getQueryer(ctx, r.pool).Exec(ctx, query,
		w.UserID,
		w.Balance.StringFixed(2),
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		// Check for unique constraint violation
		if isUniqueViolation(err, "") {
			return wallet.ErrWalletExists
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByUserID retrieves the wallet of a user
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return r.get(ctx, userID, false)
}

// GetForUpdate retrieves the wallet with a row lock held until the
// surrounding transaction ends
func (r *WalletRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return r.get(ctx, userID, true)
}

func (r *WalletRepository) get(ctx context.Context, userID uuid.UUID, forUpdate bool) (*wallet.Wallet, error) {
	query := `
		SELECT user_id, balance::text, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	w, err := scanWallet(getQueryer(ctx, r.pool).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// Adjust applies delta in a single conditional UPDATE. The row lock taken
// by the UPDATE serializes concurrent adjustments on the same wallet, and the
// balance check is evaluated against the locked row, so no lost update or
// overdraw is possible.
func (r *WalletRepository) Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $2::numeric, updated_at = NOW()
		WHERE user_id = $1 AND balance + $2::numeric >= 0
		RETURNING balance::text
	`

	q := getQueryer(ctx, r.pool)

	var balanceStr string
	err := q.QueryRow(ctx, query, userID, delta.StringFixed(2)).Scan(&balanceStr)
	if err == nil {
		return parseDecimal(balanceStr, "balance")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to adjust wallet: %w", err)
	}

	// No row updated: either the wallet is missing or the debit is too large
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("failed to check wallet: %w", err)
	}
	if !exists {
		return decimal.Zero, wallet.ErrWalletNotFound
	}
	return decimal.Zero, wallet.ErrInsufficientFunds
}

// List returns wallets ordered by user id
func (r *WalletRepository) List(ctx context.Context, limit, offset int) ([]*wallet.Wallet, error) {
	query := `
		SELECT user_id, balance::text, created_at, updated_at
		FROM wallets
		ORDER BY user_id
		LIMIT $1 OFFSET $2
	`

	rows, err := getQueryer(ctx, r.pool).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	wallets := make([]*wallet.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	w := &wallet.Wallet{}
	var balanceStr string

	if err := row.Scan(&w.UserID, &balanceStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}

	balance, err := parseDecimal(balanceStr, "balance")
	if err != nil {
		return nil, err
	}
	w.Balance = balance
	return w, nil
}
