package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/agrovest/internal/platform/position"
)

const positionColumns = `id, user_id, offering_id, units, committed_amount::text, yield_rate::text,
	expected_payout::text, maturity_date, status, created_at, updated_at, completed_at`

// PositionRepository implements position.Repository using PostgreSQL
type PositionRepository struct {
	pool *pgxpool.Pool
}

// NewPositionRepository creates a new PostgreSQL position repository
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

var _ position.Repository = (*PositionRepository)(nil)

// Create inserts a new position
func (r *PositionRepository) Create(ctx context.Context, p *position.Position) error {
	query := `
		INSERT INTO positions (id, user_id, offering_id, units, committed_amount, yield_rate,
			expected_payout, maturity_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11)
	`

	_, err := getQueryer(ctx, r.pool).Exec(ctx, query,
		p.ID,
		p.UserID,
		p.OfferingID,
		p.Units,
		p.CommittedAmount.StringFixed(2),
		p.YieldRate.String(),
		p.ExpectedPayout.StringFixed(2),
		p.MaturityDate,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// Get retrieves a position by ID
func (r *PositionRepository) Get(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(getQueryer(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, position.ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// ListByUser returns a user's positions newest-first
func (r *PositionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

// ListActive pages through active positions, oldest first
func (r *PositionRepository) ListActive(ctx context.Context, filter position.ActiveFilter) ([]*position.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE status = 'active'`
	args := make([]interface{}, 0, 3)
	argPos := 1

	if filter.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argPos)
		args = append(args, *filter.CreatedBefore)
		argPos++
	}

	query += " ORDER BY created_at ASC, id ASC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	return r.list(ctx, query, args...)
}

// CountActiveByUser counts a user's active positions
func (r *PositionRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE user_id = $1 AND status = 'active'`

	var n int
	if err := getQueryer(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active positions: %w", err)
	}
	return n, nil
}

// MarkCompleted transitions active -> completed in one conditional update
func (r *PositionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	query := `
		UPDATE positions
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + positionColumns

	return r.transition(ctx, query, id, position.ErrAlreadyCompleted)
}

// MarkCancelled transitions active -> cancelled in one conditional update
func (r *PositionRepository) MarkCancelled(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	query := `
		UPDATE positions
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + positionColumns

	return r.transition(ctx, query, id, position.ErrNotActive)
}

func (r *PositionRepository) transition(ctx context.Context, query string, id uuid.UUID, stateErr error) (*position.Position, error) {
	p, err := scanPosition(getQueryer(ctx, r.pool).QueryRow(ctx, query, id))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, stateErr
}

func (r *PositionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*position.Position, error) {
	rows, err := getQueryer(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*position.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

func scanPosition(row pgx.Row) (*position.Position, error) {
	var p position.Position
	var committedStr, rateStr, payoutStr string
	var completedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.OfferingID,
		&p.Units,
		&committedStr,
		&rateStr,
		&payoutStr,
		&p.MaturityDate,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.CommittedAmount, err = parseDecimal(committedStr, "committed_amount"); err != nil {
		return nil, err
	}
	if p.YieldRate, err = parseDecimal(rateStr, "yield_rate"); err != nil {
		return nil, err
	}
	if p.ExpectedPayout, err = parseDecimal(payoutStr, "expected_payout"); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}
