package lots

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/platform/db"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// TxRepository exposes lot writes performed inside the allocation transaction.
type TxRepository interface {
	InsertLot(ctx context.Context, lot Lot) (Lot, error)
	InsertAllocations(ctx context.Context, lotID int64, allocations []Allocation) ([]Allocation, error)
	UpdateLot(ctx context.Context, id int64, patch UpdateLotInput) (Lot, error)
	Deactivate(ctx context.Context, id int64) error
	Designs() design.Store
}

// Repository persists lots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn at read committed so the conditional ledger updates wait on
// and then re-check rows held by concurrent lots.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Designs returns a non-transactional ledger store.
func (r *Repository) Designs() design.Store {
	return design.NewRepository(r.pool)
}

const lotColumns = `l.id, l.lot_number, l.lot_date, l.party_id, l.quality_id, l.total_pieces, COALESCE(l.bill_number, ''), l.actual_pieces,
	l.delivery_date, l.status, COALESCE(l.notes, ''), l.is_active, l.created_at, l.updated_at`

func scanLot(row pgx.Row, extra ...any) (Lot, error) {
	var l Lot
	dest := append([]any{&l.ID, &l.LotNumber, &l.LotDate, &l.PartyID, &l.QualityID, &l.TotalPieces, &l.BillNumber, &l.ActualPieces,
		&l.DeliveryDate, &l.Status, &l.Notes, &l.IsActive, &l.CreatedAt, &l.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	return l, err
}

// Get loads an active lot with names and allocation rows.
func (r *Repository) Get(ctx context.Context, id int64) (LotWithDetails, error) {
	var out LotWithDetails
	lot, err := scanLot(r.pool.QueryRow(ctx, `SELECT `+lotColumns+`, p.party_name, q.quality_name
FROM lot_register l
JOIN parties p ON p.id = l.party_id
JOIN qualities q ON q.id = l.quality_id
WHERE l.id = $1 AND l.is_active`, id), &out.PartyName, &out.QualityName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LotWithDetails{}, shared.NotFound("lot", id)
		}
		return LotWithDetails{}, shared.NewPersistenceError("get lot", err)
	}
	out.Lot = lot

	rows, err := r.pool.Query(ctx, `SELECT a.id, a.lot_id, a.order_id, o.order_number, a.design_number, a.allocated_sets
FROM lot_design_allocations a
JOIN orders o ON o.id = a.order_id
WHERE a.lot_id = $1 AND a.is_active
ORDER BY a.order_id, a.design_number`, id)
	if err != nil {
		return LotWithDetails{}, shared.NewPersistenceError("list lot allocations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.LotID, &a.OrderID, &a.OrderNumber, &a.DesignNumber, &a.AllocatedSets); err != nil {
			return LotWithDetails{}, shared.NewPersistenceError("scan lot allocation", err)
		}
		out.Allocations = append(out.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return LotWithDetails{}, shared.NewPersistenceError("list lot allocations", err)
	}
	return out, nil
}

// List returns active lots newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]LotWithDetails, int, error) {
	where := ` WHERE l.is_active`
	var args []any
	if filters.PartyID > 0 {
		args = append(args, filters.PartyID)
		where += ` AND l.party_id = $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		where += ` AND l.status = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (l.lot_number ILIKE $` + strconv.Itoa(len(args)) + ` OR l.bill_number ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	from := ` FROM lot_register l JOIN parties p ON p.id = l.party_id JOIN qualities q ON q.id = l.quality_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, shared.NewPersistenceError("count lots", err)
	}
	page, limit := shared.NormalizePage(filters.Page, filters.Limit)
	args = append(args, limit, shared.Offset(page, limit))
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+`, p.party_name, q.quality_name`+from+where+
		` ORDER BY l.lot_date DESC, l.id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("list lots", err)
	}
	defer rows.Close()

	var out []LotWithDetails
	for rows.Next() {
		var item LotWithDetails
		lot, err := scanLot(rows, &item.PartyName, &item.QualityName)
		if err != nil {
			return nil, 0, shared.NewPersistenceError("scan lot", err)
		}
		item.Lot = lot
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, shared.NewPersistenceError("list lots", err)
	}
	return out, total, nil
}

func (t *txRepo) InsertLot(ctx context.Context, lot Lot) (Lot, error) {
	created, err := scanLot(t.tx.QueryRow(ctx, `INSERT INTO lot_register AS l (lot_number, lot_date, party_id, quality_id, total_pieces, bill_number,
	actual_pieces, delivery_date, status, notes, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''), TRUE, NOW(), NOW())
RETURNING `+lotColumns,
		lot.LotNumber, lot.LotDate, lot.PartyID, lot.QualityID, lot.TotalPieces, lot.BillNumber,
		lot.ActualPieces, lot.DeliveryDate, string(lot.Status), lot.Notes))
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Lot{}, fmt.Errorf("lot %s: %w", lot.LotNumber, shared.ErrDuplicate)
		case db.IsForeignKeyViolation(err):
			return Lot{}, fmt.Errorf("lot references missing party or quality: %w", shared.ErrNotFound)
		}
		return Lot{}, shared.NewPersistenceError("insert lot", err)
	}
	return created, nil
}

func (t *txRepo) InsertAllocations(ctx context.Context, lotID int64, allocations []Allocation) ([]Allocation, error) {
	out := make([]Allocation, 0, len(allocations))
	for _, a := range allocations {
		a.LotID = lotID
		err := t.tx.QueryRow(ctx, `INSERT INTO lot_design_allocations (lot_id, order_id, design_number, allocated_sets, is_active, created_at)
VALUES ($1, $2, $3, $4, TRUE, NOW()) RETURNING id`, lotID, a.OrderID, a.DesignNumber, a.AllocatedSets).Scan(&a.ID)
		if err != nil {
			return nil, shared.NewPersistenceError("insert lot allocation", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *txRepo) UpdateLot(ctx context.Context, id int64, patch UpdateLotInput) (Lot, error) {
	set := `updated_at = NOW()`
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set += `, ` + column + ` = $` + strconv.Itoa(len(args))
	}
	if patch.BillNumber != nil {
		add("bill_number", *patch.BillNumber)
	}
	if patch.ActualPieces != nil {
		add("actual_pieces", *patch.ActualPieces)
	}
	if patch.DeliveryDate != nil {
		add("delivery_date", *patch.DeliveryDate)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	lot, err := scanLot(t.tx.QueryRow(ctx, `UPDATE lot_register AS l SET `+set+` WHERE l.id = $1 AND l.is_active RETURNING `+lotColumns, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, shared.NotFound("lot", id)
		}
		return Lot{}, shared.NewPersistenceError("update lot", err)
	}
	return lot, nil
}

// Deactivate soft-deletes the lot and its allocation rows. Ledger balances are not restored.
func (t *txRepo) Deactivate(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE lot_register SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return shared.NewPersistenceError("deactivate lot", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("lot", id)
	}
	if _, err := t.tx.Exec(ctx, `UPDATE lot_design_allocations SET is_active = FALSE WHERE lot_id = $1`, id); err != nil {
		return shared.NewPersistenceError("deactivate lot allocations", err)
	}
	return nil
}

func (t *txRepo) Designs() design.Store {
	return design.NewRepository(t.tx)
}
