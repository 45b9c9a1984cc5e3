// Package design owns the per-design set ledger and the beam configuration
// table seeded when an order is created.
package design

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxQuantity is the largest set or piece count the INTEGER columns hold.
const MaxQuantity = math.MaxInt32

// Product multiplies non-negative factors. ok is false once the result
// would exceed MaxQuantity.
func Product(factors ...int) (n int, ok bool) {
	n = 1
	for _, f := range factors {
		if f < 0 {
			return 0, false
		}
		if f != 0 && n > MaxQuantity/f {
			return 0, false
		}
		n *= f
	}
	return n, true
}

// Tracking is one ledger row for an (order, design) pair.
type Tracking struct {
	ID            int64     `json:"id" db:"id"`
	OrderID       int64     `json:"order_id" db:"order_id"`
	DesignNumber  string    `json:"design_number" db:"design_number"`
	TotalSets     int       `json:"total_sets" db:"total_sets"`
	AllocatedSets int       `json:"allocated_sets" db:"allocated_sets"`
	RemainingSets int       `json:"remaining_sets" db:"remaining_sets"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Balanced reports whether allocated + remaining equals total with no negative side.
func (t Tracking) Balanced() bool {
	return t.RemainingSets >= 0 && t.AllocatedSets >= 0 && t.AllocatedSets+t.RemainingSets == t.TotalSets
}

// BeamConfig is the static multiplier of one beam color for one design.
type BeamConfig struct {
	ID             int64  `json:"id" db:"id"`
	OrderID        int64  `json:"order_id" db:"order_id"`
	DesignNumber   string `json:"design_number" db:"design_number"`
	BeamColorID    int64  `json:"beam_color_id" db:"beam_color_id"`
	BeamMultiplier int    `json:"beam_multiplier" db:"beam_multiplier"`
	BeamColorCode  string `json:"beam_color_code,omitempty" db:"color_code"`
	BeamColorName  string `json:"beam_color_name,omitempty" db:"color_name"`
}

// Key identifies a design within an order.
type Key struct {
	OrderID      int64
	DesignNumber string
}

// Filter narrows ledger and beam queries. Zero values mean "any".
type Filter struct {
	OrderID      int64
	DesignNumber string
}

// PiecesPerSet sums beam multipliers per design. A set of a design yields
// that many pieces across all of its beam colors.
func PiecesPerSet(configs []BeamConfig) map[Key]int {
	out := make(map[Key]int)
	for _, c := range configs {
		out[Key{OrderID: c.OrderID, DesignNumber: c.DesignNumber}] += c.BeamMultiplier
	}
	return out
}

// NormalizeNumber trims and upper-cases a design number. Casers carry state,
// so one is built per call.
func NormalizeNumber(raw string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(raw))
}
