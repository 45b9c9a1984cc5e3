// Package lots records production lots and consumes design sets from the ledger.
package lots

import (
	"time"
)

// Status is the free-form progress marker of a lot.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDelivered  Status = "DELIVERED"
)

// IsValid reports whether s is one of the allowed values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelivered:
		return true
	default:
		return false
	}
}

// Lot is a production batch.
type Lot struct {
	ID           int64      `json:"id" db:"id"`
	LotNumber    string     `json:"lot_number" db:"lot_number"`
	LotDate      time.Time  `json:"lot_date" db:"lot_date"`
	PartyID      int64      `json:"party_id" db:"party_id"`
	QualityID    int64      `json:"quality_id" db:"quality_id"`
	TotalPieces  int        `json:"total_pieces" db:"total_pieces"`
	BillNumber   string     `json:"bill_number,omitempty" db:"bill_number"`
	ActualPieces *int       `json:"actual_pieces,omitempty" db:"actual_pieces"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty" db:"delivery_date"`
	Status       Status     `json:"status" db:"status"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Allocation records how many sets a lot took from one design.
type Allocation struct {
	ID            int64       `json:"id" db:"id"`
	LotID         int64       `json:"lot_id" db:"lot_id"`
	OrderID       int64       `json:"order_id" db:"order_id"`
	OrderNumber   string      `json:"order_number,omitempty" db:"order_number"`
	DesignNumber  string      `json:"design_number" db:"design_number"`
	AllocatedSets int         `json:"allocated_sets" db:"allocated_sets"`
	Pieces        int         `json:"pieces"`
	BeamPieces    []BeamPiece `json:"beam_pieces,omitempty"`
}

// BeamPiece is the share of an allocation produced on one beam color.
type BeamPiece struct {
	BeamColorID    int64  `json:"beam_color_id"`
	BeamColorCode  string `json:"beam_color_code"`
	BeamColorName  string `json:"beam_color_name"`
	BeamMultiplier int    `json:"beam_multiplier"`
	Pieces         int    `json:"pieces"`
}

// LotWithDetails adds display names and allocation rows.
type LotWithDetails struct {
	Lot
	PartyName   string       `json:"party_name"`
	QualityName string       `json:"quality_name"`
	Allocations []Allocation `json:"allocations"`
}

// AllocationRequest asks for sets from one design.
type AllocationRequest struct {
	OrderID      int64  `json:"order_id" validate:"required,gt=0"`
	DesignNumber string `json:"design_number" validate:"required"`
	Sets         int    `json:"sets" validate:"required,gt=0,lte=2147483647"`
}

// Header holds the lot fields shared by every creation path.
type Header struct {
	PartyID        int64
	QualityID      int64
	LotDate        time.Time
	LotNumber      string
	BillNumber     string
	ActualPieces   *int
	DeliveryDate   *time.Time
	Status         Status
	Notes          string
	IdempotencyKey string
}

// CreateLotInput is the canonical set-based creation request.
type CreateLotInput struct {
	Header
	Allocations []AllocationRequest
}

// UpdateLotInput patches lot metadata. Nil fields are left untouched.
type UpdateLotInput struct {
	BillNumber   *string
	ActualPieces *int
	DeliveryDate *time.Time
	Status       *Status
	Notes        *string
}

// Empty reports whether the patch changes nothing.
func (u UpdateLotInput) Empty() bool {
	return u.BillNumber == nil && u.ActualPieces == nil && u.DeliveryDate == nil && u.Status == nil && u.Notes == nil
}

// ListFilters narrows lot listings.
type ListFilters struct {
	PartyID int64
	Status  Status
	Search  string
	Page    int
	Limit   int
}

// PieceAllocation is the result of allocating by piece count.
type PieceAllocation struct {
	Lot          LotWithDetails `json:"lot"`
	PiecesPerSet int            `json:"pieces_per_set"`
	Sets         int            `json:"sets"`
	Breakdown    []BeamPiece    `json:"breakdown"`
}
