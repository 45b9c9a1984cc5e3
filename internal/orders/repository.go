package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/platform/db"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// TxRepository exposes the writes performed while creating or deleting an order.
type TxRepository interface {
	NextOrderNumber(ctx context.Context, at time.Time) (string, error)
	InsertOrder(ctx context.Context, order Order) (Order, error)
	InsertCuts(ctx context.Context, orderID int64, cuts []string) error
	InsertGroundColors(ctx context.Context, orderID int64, colors []GroundColor) error
	Deactivate(ctx context.Context, orderID int64) error
	Designs() design.Store
}

// Repository persists orders in PostgreSQL.
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

// WithTx executes fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Designs returns a non-transactional ledger store.
func (r *Repository) Designs() design.Store {
	return design.NewRepository(r.pool)
}

const orderColumns = `o.id, o.order_number, o.party_id, o.quality_id, o.sets, o.pick, o.rate_per_piece::text, o.total_designs, o.total_pieces,
	o.total_value::text, o.order_date, COALESCE(o.notes, ''), o.is_active, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, extra ...any) (Order, error) {
	var (
		o           Order
		rate, value string
	)
	dest := append([]any{&o.ID, &o.OrderNumber, &o.PartyID, &o.QualityID, &o.Sets, &o.Pick, &rate, &o.TotalDesigns, &o.TotalPieces,
		&value, &o.OrderDate, &o.Notes, &o.IsActive, &o.CreatedAt, &o.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Order{}, err
	}
	var err error
	if o.RatePerPiece, err = decimal.NewFromString(rate); err != nil {
		return Order{}, fmt.Errorf("parse rate_per_piece: %w", err)
	}
	if o.TotalValue, err = decimal.NewFromString(value); err != nil {
		return Order{}, fmt.Errorf("parse total_value: %w", err)
	}
	return o, nil
}

// Get loads an active order with party/quality names, cuts and ground colors.
func (r *Repository) Get(ctx context.Context, id int64) (OrderWithDetails, error) {
	var out OrderWithDetails
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+`, p.party_name, q.quality_name
FROM orders o
JOIN parties p ON p.id = o.party_id
JOIN qualities q ON q.id = o.quality_id
WHERE o.id = $1 AND o.is_active`, id), &out.PartyName, &out.QualityName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderWithDetails{}, shared.NotFound("order", id)
		}
		return OrderWithDetails{}, shared.NewPersistenceError("get order", err)
	}
	out.Order = order

	rows, err := r.pool.Query(ctx, `SELECT cut_value FROM order_cuts WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return OrderWithDetails{}, shared.NewPersistenceError("list order cuts", err)
	}
	out.Cuts, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return OrderWithDetails{}, shared.NewPersistenceError("scan order cuts", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT ground_color_name, beam_color_id FROM order_ground_colors WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return OrderWithDetails{}, shared.NewPersistenceError("list ground colors", err)
	}
	out.GroundColors, err = pgx.CollectRows(rows, pgx.RowToStructByPos[GroundColor])
	if err != nil {
		return OrderWithDetails{}, shared.NewPersistenceError("scan ground colors", err)
	}
	return out, nil
}

// List returns active orders newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]OrderWithDetails, int, error) {
	where := ` WHERE o.is_active`
	var args []any
	if filters.PartyID > 0 {
		args = append(args, filters.PartyID)
		where += ` AND o.party_id = $` + strconv.Itoa(len(args))
	}
	if filters.QualityID > 0 {
		args = append(args, filters.QualityID)
		where += ` AND o.quality_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (o.order_number ILIKE $` + strconv.Itoa(len(args)) + ` OR p.party_name ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	from := ` FROM orders o JOIN parties p ON p.id = o.party_id JOIN qualities q ON q.id = o.quality_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, shared.NewPersistenceError("count orders", err)
	}

	page, limit := shared.NormalizePage(filters.Page, filters.Limit)
	args = append(args, limit, shared.Offset(page, limit))
	query := `SELECT ` + orderColumns + `, p.party_name, q.quality_name` + from + where +
		` ORDER BY o.order_date DESC, o.id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("list orders", err)
	}
	defer rows.Close()

	var out []OrderWithDetails
	for rows.Next() {
		var item OrderWithDetails
		order, err := scanOrder(rows, &item.PartyName, &item.QualityName)
		if err != nil {
			return nil, 0, shared.NewPersistenceError("scan order", err)
		}
		item.Order = order
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, shared.NewPersistenceError("list orders", err)
	}
	return out, total, nil
}

// NextOrderNumber returns ORD-YYYY-MM-NNN. The advisory lock serialises
// numbering per month until the transaction ends.
func (t *txRepo) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	month := at.Format("2006-01")
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "orders:"+month); err != nil {
		return "", shared.NewPersistenceError("lock order number", err)
	}
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE order_number LIKE $1`, "ORD-"+month+"-%").Scan(&count)
	if err != nil {
		return "", shared.NewPersistenceError("count monthly orders", err)
	}
	return FormatOrderNumber(at, count+1), nil
}

// FormatOrderNumber renders the monthly sequence number.
func FormatOrderNumber(at time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%03d", at.Format("2006-01"), seq)
}

func (t *txRepo) InsertOrder(ctx context.Context, order Order) (Order, error) {
	created, err := scanOrder(t.tx.QueryRow(ctx, `INSERT INTO orders AS o (order_number, party_id, quality_id, sets, pick, rate_per_piece, total_designs, total_pieces,
	total_value, order_date, notes, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9::numeric, $10, NULLIF($11, ''), TRUE, NOW(), NOW())
RETURNING `+orderColumns,
		order.OrderNumber, order.PartyID, order.QualityID, order.Sets, order.Pick, order.RatePerPiece.String(), order.TotalDesigns,
		order.TotalPieces, order.TotalValue.String(), order.OrderDate, order.Notes))
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Order{}, fmt.Errorf("order %s: %w", order.OrderNumber, shared.ErrDuplicate)
		case db.IsForeignKeyViolation(err):
			return Order{}, fmt.Errorf("order references missing party or quality: %w", shared.ErrNotFound)
		}
		return Order{}, shared.NewPersistenceError("insert order", err)
	}
	return created, nil
}

func (t *txRepo) InsertCuts(ctx context.Context, orderID int64, cuts []string) error {
	rows := make([][]any, 0, len(cuts))
	for _, c := range cuts {
		rows = append(rows, []any{orderID, c})
	}
	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{"order_cuts"}, []string{"order_id", "cut_value"}, pgx.CopyFromRows(rows))
	return shared.NewPersistenceError("insert order cuts", err)
}

func (t *txRepo) InsertGroundColors(ctx context.Context, orderID int64, colors []GroundColor) error {
	batch := &pgx.Batch{}
	for _, gc := range colors {
		batch.Queue(`INSERT INTO order_ground_colors (order_id, ground_color_name, beam_color_id) VALUES ($1, $2, $3)`, orderID, gc.GroundColorName, gc.BeamColorID)
	}
	return shared.NewPersistenceError("insert ground colors", t.tx.SendBatch(ctx, batch).Close())
}

func (t *txRepo) Deactivate(ctx context.Context, orderID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, orderID)
	if err != nil {
		return shared.NewPersistenceError("deactivate order", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order", orderID)
	}
	return nil
}

func (t *txRepo) Designs() design.Store {
	return design.NewRepository(t.tx)
}
