// Package orders registers customer orders and seeds their design ledger.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/design"
)

// Order is a customer purchase commitment.
type Order struct {
	ID           int64           `json:"id" db:"id"`
	OrderNumber  string          `json:"order_number" db:"order_number"`
	PartyID      int64           `json:"party_id" db:"party_id"`
	QualityID    int64           `json:"quality_id" db:"quality_id"`
	Sets         int             `json:"sets" db:"sets"`
	Pick         int             `json:"pick" db:"pick"`
	RatePerPiece decimal.Decimal `json:"rate_per_piece" db:"rate_per_piece"`
	TotalDesigns int             `json:"total_designs" db:"total_designs"`
	TotalPieces  int             `json:"total_pieces" db:"total_pieces"`
	TotalValue   decimal.Decimal `json:"total_value" db:"total_value"`
	OrderDate    time.Time       `json:"order_date" db:"order_date"`
	Notes        string          `json:"notes,omitempty" db:"notes"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderWithDetails adds display names and child rows.
type OrderWithDetails struct {
	Order
	PartyName    string              `json:"party_name"`
	QualityName  string              `json:"quality_name"`
	Cuts         []string            `json:"cuts"`
	GroundColors []GroundColor       `json:"ground_colors"`
	Designs      []design.Tracking   `json:"designs,omitempty"`
	Beams        []design.BeamConfig `json:"beams,omitempty"`
}

// CreateOrderInput carries everything needed to register an order.
type CreateOrderInput struct {
	PartyID       int64
	QualityID     int64
	Sets          int
	Pick          int
	RatePerPiece  decimal.Decimal
	OrderDate     time.Time
	Notes         string
	Cuts          []string
	DesignNumbers []string
	GroundColors  []GroundColor
}

// ListFilters narrows order listings.
type ListFilters struct {
	PartyID   int64
	QualityID int64
	Search    string
	Page      int
	Limit     int
}

// BeamPreview is the per-beam-color line of an order preview.
type BeamPreview struct {
	BeamColorID      int64  `json:"beam_color_id"`
	BeamColorCode    string `json:"beam_color_code"`
	BeamColorName    string `json:"beam_color_name"`
	SelectionCount   int    `json:"selection_count"`
	CalculatedPieces int    `json:"calculated_pieces"`
}

// Preview summarises an order before it is saved.
type Preview struct {
	Sets         int           `json:"sets"`
	TotalDesigns int           `json:"total_designs"`
	PiecesPerSet int           `json:"pieces_per_set"`
	TotalPieces  int           `json:"total_pieces"`
	Beams        []BeamPreview `json:"beams"`
}

const maxNotesLength = 1000
