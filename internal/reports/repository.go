package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// Repository reads report inputs from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LedgerRows returns active ledger rows of active orders.
func (r *Repository) LedgerRows(ctx context.Context, f Filter) ([]LedgerRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.order_id, o.order_number, o.party_id, p.party_name, o.quality_id, q.quality_name,
	o.rate_per_piece::text, t.design_number, t.total_sets, t.allocated_sets, t.remaining_sets
FROM design_set_tracking t
JOIN orders o ON o.id = t.order_id AND o.is_active
JOIN parties p ON p.id = o.party_id
JOIN qualities q ON q.id = o.quality_id
WHERE t.is_active AND ($1::bigint = 0 OR t.order_id = $1) AND ($2::bigint = 0 OR o.party_id = $2)
ORDER BY o.order_number, t.design_number`, f.OrderID, f.PartyID)
	if err != nil {
		return nil, shared.NewPersistenceError("ledger rows", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LedgerRecord, error) {
		var rec LedgerRecord
		var rate string
		if err := row.Scan(&rec.OrderID, &rec.OrderNumber, &rec.PartyID, &rec.PartyName, &rec.QualityID, &rec.QualityName,
			&rate, &rec.DesignNumber, &rec.TotalSets, &rec.AllocatedSets, &rec.RemainingSets); err != nil {
			return LedgerRecord{}, err
		}
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return LedgerRecord{}, fmt.Errorf("parse rate_per_piece: %w", err)
		}
		rec.RatePerPiece = parsed
		return rec, nil
	})
	if err != nil {
		return nil, shared.NewPersistenceError("ledger rows", err)
	}
	return out, nil
}

// BeamConfigs returns active beam rows of active orders.
func (r *Repository) BeamConfigs(ctx context.Context, f Filter) ([]design.BeamConfig, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.order_id, b.design_number, b.beam_color_id, b.beam_multiplier,
	COALESCE(c.color_code, ''), COALESCE(c.color_name, '')
FROM design_beam_config b
JOIN orders o ON o.id = b.order_id AND o.is_active
LEFT JOIN colors c ON c.id = b.beam_color_id
WHERE b.is_active AND ($1::bigint = 0 OR b.order_id = $1) AND ($2::bigint = 0 OR o.party_id = $2)
ORDER BY b.order_id, b.design_number, b.beam_color_id`, f.OrderID, f.PartyID)
	if err != nil {
		return nil, shared.NewPersistenceError("beam configs", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (design.BeamConfig, error) {
		var c design.BeamConfig
		err := row.Scan(&c.ID, &c.OrderID, &c.DesignNumber, &c.BeamColorID, &c.BeamMultiplier, &c.BeamColorCode, &c.BeamColorName)
		return c, err
	})
	if err != nil {
		return nil, shared.NewPersistenceError("beam configs", err)
	}
	return out, nil
}

// LotStatusCounts counts active lots per status.
func (r *Repository) LotStatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM lot_register WHERE is_active GROUP BY status`)
	if err != nil {
		return nil, shared.NewPersistenceError("lot status counts", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, shared.NewPersistenceError("lot status counts", err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistenceError("lot status counts", err)
	}
	return out, nil
}

const registerFrom = `
FROM lot_design_allocations a
JOIN lot_register l ON l.id = a.lot_id AND l.is_active
JOIN orders o ON o.id = a.order_id
JOIN parties p ON p.id = l.party_id
JOIN qualities q ON q.id = l.quality_id
WHERE a.is_active`

// LotRegister returns one page of lot-design allocations, newest lots first.
// A limit of zero returns every row.
func (r *Repository) LotRegister(ctx context.Context, page, limit int) ([]LotRegisterRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+registerFrom).Scan(&total); err != nil {
		return nil, 0, shared.NewPersistenceError("count lot register", err)
	}
	query := `SELECT l.id, l.lot_number, l.lot_date, p.party_name, q.quality_name, l.status, COALESCE(l.bill_number, ''),
	o.order_number, a.design_number, a.allocated_sets,
	(SELECT COUNT(*) FROM order_ground_colors g WHERE g.order_id = a.order_id)` + registerFrom + `
ORDER BY l.lot_date DESC, l.id DESC, a.design_number`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, shared.Offset(page, limit))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("lot register", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LotRegisterRow, error) {
		var lr LotRegisterRow
		err := row.Scan(&lr.LotID, &lr.LotNumber, &lr.LotDate, &lr.PartyName, &lr.QualityName, &lr.Status, &lr.BillNumber,
			&lr.OrderNumber, &lr.DesignNumber, &lr.AllocatedSets, &lr.GroundColorsCount)
		return lr, err
	})
	if err != nil {
		return nil, 0, shared.NewPersistenceError("lot register", err)
	}
	return out, total, nil
}
