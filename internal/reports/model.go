// Package reports projects the design ledger and beam configuration into
// read-only summaries.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filter narrows ledger based reports. Zero values mean no restriction.
type Filter struct {
	OrderID int64
	PartyID int64
}

// LedgerRecord is an active ledger row joined with its order header.
type LedgerRecord struct {
	OrderID       int64
	OrderNumber   string
	PartyID       int64
	PartyName     string
	QualityID     int64
	QualityName   string
	RatePerPiece  decimal.Decimal
	DesignNumber  string
	TotalSets     int
	AllocatedSets int
	RemainingSets int
}

// BeamPiece is the remaining output of one design on one beam color.
type BeamPiece struct {
	BeamColorID    int64  `json:"beam_color_id"`
	BeamColorCode  string `json:"beam_color_code"`
	BeamColorName  string `json:"beam_color_name"`
	BeamMultiplier int    `json:"beam_multiplier"`
	Pieces         int    `json:"pieces"`
}

// DesignRow is one line of the design-wise report.
type DesignRow struct {
	OrderID         int64       `json:"order_id"`
	OrderNumber     string      `json:"order_number"`
	PartyID         int64       `json:"party_id"`
	PartyName       string      `json:"party_name"`
	QualityName     string      `json:"quality_name"`
	DesignNumber    string      `json:"design_number"`
	TotalSets       int         `json:"total_sets"`
	AllocatedSets   int         `json:"allocated_sets"`
	RemainingSets   int         `json:"remaining_sets"`
	RemainingPieces int         `json:"remaining_pieces"`
	BeamPieces      []BeamPiece `json:"beam_pieces"`
}

// DesignWise is the design-wise allocation report.
type DesignWise struct {
	Rows                 []DesignRow `json:"rows"`
	TotalDesigns         int         `json:"total_designs"`
	TotalRemainingSets   int         `json:"total_remaining_sets"`
	TotalRemainingPieces int         `json:"total_remaining_pieces"`
}

// BeamTotal sums remaining pieces of one beam color within a quality.
type BeamTotal struct {
	BeamColorID   int64  `json:"beam_color_id"`
	BeamColorCode string `json:"beam_color_code"`
	BeamColorName string `json:"beam_color_name"`
	TotalPieces   int    `json:"total_pieces"`
	DesignsCount  int    `json:"designs_count"`
}

// QualityBeams groups beam totals under a quality.
type QualityBeams struct {
	QualityName string      `json:"quality_name"`
	Beams       []BeamTotal `json:"beams"`
	TotalPieces int         `json:"total_pieces"`
}

// BeamSummary is the quality then beam color fold of the design-wise report.
type BeamSummary struct {
	Qualities  []QualityBeams `json:"qualities"`
	GrandTotal int            `json:"grand_total"`
}

// LotCounts buckets active lots by status. Completed includes delivered lots.
type LotCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// AllocationSummary reports overall progress across every active design.
type AllocationSummary struct {
	TotalOrders          int       `json:"total_orders"`
	TotalPieces          int       `json:"total_pieces"`
	AllocatedPieces      int       `json:"allocated_pieces"`
	RemainingPieces      int       `json:"remaining_pieces"`
	AllocationPercentage float64   `json:"allocation_percentage"`
	Lots                 LotCounts `json:"lots"`
}

// LotRegisterRow is one lot-design allocation line of the lot register.
type LotRegisterRow struct {
	LotID             int64     `json:"lot_id"`
	LotNumber         string    `json:"lot_number"`
	LotDate           time.Time `json:"lot_date"`
	PartyName         string    `json:"party_name"`
	QualityName       string    `json:"quality_name"`
	Status            string    `json:"status"`
	BillNumber        string    `json:"bill_number,omitempty"`
	OrderNumber       string    `json:"order_number"`
	DesignNumber      string    `json:"design_number"`
	AllocatedSets     int       `json:"allocated_sets"`
	GroundColorsCount int       `json:"ground_colors_count"`
	TotalPieces       int       `json:"total_pieces"`
}

// LotRegister is a page of the lot register with page totals.
type LotRegister struct {
	Rows        []LotRegisterRow `json:"rows"`
	TotalSets   int              `json:"total_sets"`
	TotalPieces int              `json:"total_pieces"`
	Total       int              `json:"-"`
}

// PartyDesign is the outstanding balance of one design for a party.
type PartyDesign struct {
	OrderNumber     string          `json:"order_number"`
	QualityName     string          `json:"quality_name"`
	DesignNumber    string          `json:"design_number"`
	RemainingSets   int             `json:"remaining_sets"`
	RemainingPieces int             `json:"remaining_pieces"`
	RatePerPiece    decimal.Decimal `json:"rate_per_piece"`
	Value           decimal.Decimal `json:"value"`
}

// PartyBalance sums the outstanding designs of one party.
type PartyBalance struct {
	PartyID         int64           `json:"party_id"`
	PartyName       string          `json:"party_name"`
	Designs         []PartyDesign   `json:"designs"`
	RemainingPieces int             `json:"remaining_pieces"`
	Value           decimal.Decimal `json:"value"`
}

// PartyWise is the per-party outstanding report.
type PartyWise struct {
	Parties     []PartyBalance  `json:"parties"`
	TotalPieces int             `json:"total_pieces"`
	TotalValue  decimal.Decimal `json:"total_value"`
}
