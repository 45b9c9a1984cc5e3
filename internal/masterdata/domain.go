package masterdata

import (
	"context"
	"time"
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
}

// Party is a customer placing orders.
type Party struct {
	ID            int64     `json:"id" db:"id"`
	PartyName     string    `json:"party_name" db:"party_name"`
	ContactNumber string    `json:"contact_number" db:"contact_number"`
	BrokerName    string    `json:"broker_name,omitempty" db:"broker_name"`
	GST           string    `json:"gst,omitempty" db:"gst"`
	Address       string    `json:"address,omitempty" db:"address"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Color is a beam color resource.
type Color struct {
	ID        int64     `json:"id" db:"id"`
	ColorCode string    `json:"color_code" db:"color_code"`
	ColorName string    `json:"color_name" db:"color_name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Quality is a fabric quality.
type Quality struct {
	ID            int64     `json:"id" db:"id"`
	QualityName   string    `json:"quality_name" db:"quality_name"`
	FeederCount   int       `json:"feeder_count" db:"feeder_count"`
	Specification string    `json:"specification,omitempty" db:"specification"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Cut is a cut length label offered on orders.
type Cut struct {
	ID        int64     `json:"id" db:"id"`
	CutValue  string    `json:"cut_value" db:"cut_value"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Repository persists master data.
type Repository interface {
	ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error)
	GetParty(ctx context.Context, id int64) (Party, error)
	CreateParty(ctx context.Context, party Party) (Party, error)

	ListColors(ctx context.Context, filters ListFilters) ([]Color, int, error)
	GetColor(ctx context.Context, id int64) (Color, error)
	ColorsByID(ctx context.Context, ids []int64) (map[int64]Color, error)
	CreateColor(ctx context.Context, color Color) (Color, error)

	ListQualities(ctx context.Context, filters ListFilters) ([]Quality, int, error)
	GetQuality(ctx context.Context, id int64) (Quality, error)
	CreateQuality(ctx context.Context, quality Quality) (Quality, error)

	ListCuts(ctx context.Context, filters ListFilters) ([]Cut, int, error)
	GetCut(ctx context.Context, id int64) (Cut, error)
	CreateCut(ctx context.Context, cut Cut) (Cut, error)

	Deactivate(ctx context.Context, kind Kind, id int64) error
}

// Kind names a master data table.
type Kind string

const (
	KindParty   Kind = "parties"
	KindColor   Kind = "colors"
	KindQuality Kind = "qualities"
	KindCut     Kind = "cuts"
)

// IsValid reports whether k names a known table.
func (k Kind) IsValid() bool {
	switch k {
	case KindParty, KindColor, KindQuality, KindCut:
		return true
	default:
		return false
	}
}
