package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/weavetrack/weavetrack/internal/platform/db"
	"github.com/weavetrack/weavetrack/internal/shared"
)

type repo struct {
	db db.Querier
}

// NewRepository constructs the PostgreSQL master data repository.
func NewRepository(q db.Querier) Repository {
	return &repo{db: q}
}

// listQuery appends search and paging clauses shared by every listing.
func listQuery(base, count string, searchCols []string, filters ListFilters, order string) (string, string, []any, []any) {
	where := ` WHERE is_active`
	var args []any
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (`
		for i, col := range searchCols {
			if i > 0 {
				where += ` OR `
			}
			where += col + ` ILIKE $1`
		}
		where += `)`
	}
	countArgs := append([]any(nil), args...)
	page, limit := shared.NormalizePage(filters.Page, filters.Limit)
	query := base + where + ` ORDER BY ` + order
	args = append(args, limit, shared.Offset(page, limit))
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return query, count + where, args, countArgs
}

func translate(entity string, id any, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.NotFound(entity, id)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s %v: %w", entity, id, shared.ErrDuplicate)
	default:
		return shared.NewPersistenceError(entity, err)
	}
}

const partyColumns = `id, party_name, contact_number, COALESCE(broker_name, ''), COALESCE(gst, ''), COALESCE(address, ''), is_active, created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.PartyName, &p.ContactNumber, &p.BrokerName, &p.GST, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repo) ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error) {
	query, countQuery, args, countArgs := listQuery(`SELECT `+partyColumns+` FROM parties`, `SELECT COUNT(*) FROM parties`,
		[]string{"party_name", "contact_number", "broker_name"}, filters, "party_name")
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translate("parties", "count", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate("parties", "list", err)
	}
	defer rows.Close()
	var out []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, 0, translate("parties", "scan", err)
		}
		out = append(out, p)
	}
	return out, total, translate("parties", "rows", rows.Err())
}

func (r *repo) GetParty(ctx context.Context, id int64) (Party, error) {
	p, err := scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1 AND is_active`, id))
	return p, translate("party", id, err)
}

func (r *repo) CreateParty(ctx context.Context, party Party) (Party, error) {
	p, err := scanParty(r.db.QueryRow(ctx, `INSERT INTO parties (party_name, contact_number, broker_name, gst, address, is_active, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), TRUE, NOW(), NOW())
RETURNING `+partyColumns, party.PartyName, party.ContactNumber, party.BrokerName, party.GST, party.Address))
	return p, translate("party", party.PartyName, err)
}

const colorColumns = `id, color_code, color_name, is_active, created_at, updated_at`

func scanColor(row pgx.Row) (Color, error) {
	var c Color
	err := row.Scan(&c.ID, &c.ColorCode, &c.ColorName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repo) ListColors(ctx context.Context, filters ListFilters) ([]Color, int, error) {
	query, countQuery, args, countArgs := listQuery(`SELECT `+colorColumns+` FROM colors`, `SELECT COUNT(*) FROM colors`,
		[]string{"color_code", "color_name"}, filters, "color_code")
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translate("colors", "count", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate("colors", "list", err)
	}
	defer rows.Close()
	var out []Color
	for rows.Next() {
		c, err := scanColor(rows)
		if err != nil {
			return nil, 0, translate("colors", "scan", err)
		}
		out = append(out, c)
	}
	return out, total, translate("colors", "rows", rows.Err())
}

func (r *repo) GetColor(ctx context.Context, id int64) (Color, error) {
	c, err := scanColor(r.db.QueryRow(ctx, `SELECT `+colorColumns+` FROM colors WHERE id = $1 AND is_active`, id))
	return c, translate("color", id, err)
}

func (r *repo) ColorsByID(ctx context.Context, ids []int64) (map[int64]Color, error) {
	out := make(map[int64]Color, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+colorColumns+` FROM colors WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, translate("colors", ids, err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanColor(rows)
		if err != nil {
			return nil, translate("colors", ids, err)
		}
		out[c.ID] = c
	}
	return out, translate("colors", ids, rows.Err())
}

func (r *repo) CreateColor(ctx context.Context, color Color) (Color, error) {
	c, err := scanColor(r.db.QueryRow(ctx, `INSERT INTO colors (color_code, color_name, is_active, created_at, updated_at)
VALUES ($1, $2, TRUE, NOW(), NOW()) RETURNING `+colorColumns, color.ColorCode, color.ColorName))
	return c, translate("color", color.ColorCode, err)
}

const qualityColumns = `id, quality_name, feeder_count, COALESCE(specification, ''), is_active, created_at, updated_at`

func scanQuality(row pgx.Row) (Quality, error) {
	var q Quality
	err := row.Scan(&q.ID, &q.QualityName, &q.FeederCount, &q.Specification, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *repo) ListQualities(ctx context.Context, filters ListFilters) ([]Quality, int, error) {
	query, countQuery, args, countArgs := listQuery(`SELECT `+qualityColumns+` FROM qualities`, `SELECT COUNT(*) FROM qualities`,
		[]string{"quality_name", "specification"}, filters, "quality_name")
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translate("qualities", "count", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate("qualities", "list", err)
	}
	defer rows.Close()
	var out []Quality
	for rows.Next() {
		q, err := scanQuality(rows)
		if err != nil {
			return nil, 0, translate("qualities", "scan", err)
		}
		out = append(out, q)
	}
	return out, total, translate("qualities", "rows", rows.Err())
}

func (r *repo) GetQuality(ctx context.Context, id int64) (Quality, error) {
	q, err := scanQuality(r.db.QueryRow(ctx, `SELECT `+qualityColumns+` FROM qualities WHERE id = $1 AND is_active`, id))
	return q, translate("quality", id, err)
}

func (r *repo) CreateQuality(ctx context.Context, quality Quality) (Quality, error) {
	q, err := scanQuality(r.db.QueryRow(ctx, `INSERT INTO qualities (quality_name, feeder_count, specification, is_active, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), TRUE, NOW(), NOW()) RETURNING `+qualityColumns, quality.QualityName, quality.FeederCount, quality.Specification))
	return q, translate("quality", quality.QualityName, err)
}

const cutColumns = `id, cut_value, is_active, created_at, updated_at`

func scanCut(row pgx.Row) (Cut, error) {
	var c Cut
	err := row.Scan(&c.ID, &c.CutValue, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repo) ListCuts(ctx context.Context, filters ListFilters) ([]Cut, int, error) {
	query, countQuery, args, countArgs := listQuery(`SELECT `+cutColumns+` FROM cuts`, `SELECT COUNT(*) FROM cuts`,
		[]string{"cut_value"}, filters, "cut_value")
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translate("cuts", "count", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate("cuts", "list", err)
	}
	defer rows.Close()
	var out []Cut
	for rows.Next() {
		c, err := scanCut(rows)
		if err != nil {
			return nil, 0, translate("cuts", "scan", err)
		}
		out = append(out, c)
	}
	return out, total, translate("cuts", "rows", rows.Err())
}

func (r *repo) GetCut(ctx context.Context, id int64) (Cut, error) {
	c, err := scanCut(r.db.QueryRow(ctx, `SELECT `+cutColumns+` FROM cuts WHERE id = $1 AND is_active`, id))
	return c, translate("cut", id, err)
}

func (r *repo) CreateCut(ctx context.Context, cut Cut) (Cut, error) {
	c, err := scanCut(r.db.QueryRow(ctx, `INSERT INTO cuts (cut_value, is_active, created_at, updated_at)
VALUES ($1, TRUE, NOW(), NOW()) RETURNING `+cutColumns, cut.CutValue))
	return c, translate("cut", cut.CutValue, err)
}

func (r *repo) Deactivate(ctx context.Context, kind Kind, id int64) error {
	if !kind.IsValid() {
		return shared.NewValidationError("kind", "unknown master data kind")
	}
	// kind is one of the fixed table names checked above.
	tag, err := r.db.Exec(ctx, `UPDATE `+string(kind)+` SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return translate(string(kind), id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(string(kind), id)
	}
	return nil
}
