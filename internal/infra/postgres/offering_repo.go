package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/agrovest/internal/platform/offering"
)

const offeringColumns = `id, title, description, location, image_url, unit_price::text, yield_rate::text,
	term_months, total_units, remaining_units, investors, status, created_at, updated_at`

// OfferingRepository implements offering.Repository using PostgreSQL
type OfferingRepository struct {
	pool *pgxpool.Pool
}

// NewOfferingRepository creates a new PostgreSQL offering repository
func NewOfferingRepository(pool *pgxpool.Pool) *OfferingRepository {
	return &OfferingRepository{pool: pool}
}

var _ offering.Repository = (*OfferingRepository)(nil)

// Create inserts a new offering
func (r *OfferingRepository) Create(ctx context.Context, o *offering.Offering) error {
	query := `
		INSERT INTO offerings (id, title, description, location, image_url, unit_price, yield_rate,
			term_months, total_units, remaining_units, investors, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := getQueryer(ctx, r.pool).Exec(ctx, query,
		o.ID,
		o.Title,
		o.Description,
		o.Location,
		o.ImageURL,
		o.UnitPrice.StringFixed(2),
		o.YieldRate.String(),
		o.TermMonths,
		o.TotalUnits,
		o.RemainingUnits,
		o.Investors,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert offering: %w", err)
	}
	return nil
}

// Get retrieves an offering by ID
func (r *OfferingRepository) Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	query := `SELECT ` + offeringColumns + ` FROM offerings WHERE id = $1`

	o, err := scanOffering(getQueryer(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offering.ErrOfferingNotFound
		}
		return nil, fmt.Errorf("failed to get offering: %w", err)
	}
	return o, nil
}

// List returns offerings newest-first
func (r *OfferingRepository) List(ctx context.Context, filter offering.ListFilter) ([]*offering.Offering, error) {
	query := `SELECT ` + offeringColumns + ` FROM offerings`
	args := make([]interface{}, 0, 1)

	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := getQueryer(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offerings: %w", err)
	}
	defer rows.Close()

	offerings := make([]*offering.Offering, 0)
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering: %w", err)
		}
		offerings = append(offerings, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offerings: %w", err)
	}

	return offerings, nil
}

// ReserveUnits decrements remaining capacity in one conditional UPDATE.
// The status flips to sold_out in the same statement when capacity hits zero.
func (r *OfferingRepository) ReserveUnits(ctx context.Context, id uuid.UUID, units int) (*offering.Offering, error) {
	query := `
		UPDATE offerings
		SET remaining_units = remaining_units - $2,
		    investors = investors + 1,
		    status = CASE WHEN remaining_units - $2 = 0 THEN 'sold_out' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'open' AND remaining_units >= $2
		RETURNING ` + offeringColumns

	q := getQueryer(ctx, r.pool)
	o, err := scanOffering(q.QueryRow(ctx, query, id, units))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve units: %w", err)
	}

	// Nothing updated: report why
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, offering.ErrNotOpen
	}
	return nil, offering.ErrInsufficientCapacity
}

// Close moves an open offering to closed. A sold-out offering keeps its
// status so that sold-out still means no remaining units.
func (r *OfferingRepository) Close(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	query := `
		UPDATE offerings
		SET status = 'closed', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING ` + offeringColumns

	o, err := scanOffering(getQueryer(ctx, r.pool).QueryRow(ctx, query, id))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to close offering: %w", err)
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == offering.StatusSoldOut {
		return nil, offering.ErrCloseSoldOut
	}
	return nil, offering.ErrAlreadyClosed
}

func scanOffering(row pgx.Row) (*offering.Offering, error) {
	var o offering.Offering
	var unitPriceStr, yieldRateStr string

	err := row.Scan(
		&o.ID,
		&o.Title,
		&o.Description,
		&o.Location,
		&o.ImageURL,
		&unitPriceStr,
		&yieldRateStr,
		&o.TermMonths,
		&o.TotalUnits,
		&o.RemainingUnits,
		&o.Investors,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.UnitPrice, err = parseDecimal(unitPriceStr, "unit_price"); err != nil {
		return nil, err
	}
	if o.YieldRate, err = parseDecimal(yieldRateStr, "yield_rate"); err != nil {
		return nil, err
	}
	return &o, nil
}
