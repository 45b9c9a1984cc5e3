package orders

import (
	"sort"
	"strconv"
	"strings"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// GroundColor maps a free-text ground color onto one beam color.
type GroundColor struct {
	GroundColorName string `json:"ground_color_name" db:"ground_color_name" validate:"required,max=100"`
	BeamColorID     int64  `json:"beam_color_id" db:"beam_color_id" validate:"required,gt=0"`
}

// BuildInput is the quantity part of an order.
type BuildInput struct {
	Sets          int
	DesignNumbers []string
	GroundColors  []GroundColor
}

// Aggregate is the derived production plan of an order. Every design shares
// the same beam multipliers.
type Aggregate struct {
	Sets          int
	DesignNumbers []string
	TotalDesigns  int
	// BeamMultipliers counts ground colors per beam color.
	BeamMultipliers map[int64]int
	// BeamColorIDs lists the distinct beam colors in ascending order.
	BeamColorIDs []int64
	PiecesPerSet int
	TotalPieces  int
}

// DesignBeams returns the per-design beam multiplier map.
func (a Aggregate) DesignBeams() map[string]map[int64]int {
	out := make(map[string]map[int64]int, len(a.DesignNumbers))
	for _, d := range a.DesignNumbers {
		m := make(map[int64]int, len(a.BeamMultipliers))
		for id, mult := range a.BeamMultipliers {
			m[id] = mult
		}
		out[d] = m
	}
	return out
}

// Build derives the beam multipliers and total pieces:
// total_pieces = sets × total_designs × Σ multipliers.
func Build(in BuildInput) (Aggregate, error) {
	if in.Sets <= 0 {
		return Aggregate{}, shared.NewValidationError("sets", "must be greater than 0")
	}
	if in.Sets > design.MaxQuantity {
		return Aggregate{}, shared.NewValidationError("sets", "must not exceed "+strconv.Itoa(design.MaxQuantity))
	}
	if len(in.DesignNumbers) == 0 {
		return Aggregate{}, shared.NewValidationError("design_numbers", "at least one design number is required")
	}
	if len(in.GroundColors) == 0 {
		return Aggregate{}, shared.NewValidationError("ground_colors", "at least one ground color is required")
	}

	designs := make([]string, 0, len(in.DesignNumbers))
	seen := make(map[string]struct{}, len(in.DesignNumbers))
	for _, raw := range in.DesignNumbers {
		d := design.NormalizeNumber(raw)
		if d == "" {
			return Aggregate{}, shared.NewValidationError("design_numbers", "design numbers cannot be empty")
		}
		if _, dup := seen[d]; dup {
			return Aggregate{}, shared.NewValidationError("design_numbers", "duplicate design number "+d)
		}
		seen[d] = struct{}{}
		designs = append(designs, d)
	}

	multipliers := make(map[int64]int)
	for _, gc := range in.GroundColors {
		if strings.TrimSpace(gc.GroundColorName) == "" {
			return Aggregate{}, shared.NewValidationError("ground_colors", "ground color name is required")
		}
		if gc.BeamColorID <= 0 {
			return Aggregate{}, shared.NewValidationError("ground_colors", "beam color is required")
		}
		multipliers[gc.BeamColorID]++
	}
	ids := make([]int64, 0, len(multipliers))
	perSet := 0
	for id, mult := range multipliers {
		ids = append(ids, id)
		perSet += mult
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	total, ok := design.Product(in.Sets, len(designs), perSet)
	if !ok {
		return Aggregate{}, shared.NewValidationError("sets", "total pieces would exceed "+strconv.Itoa(design.MaxQuantity))
	}

	return Aggregate{
		Sets:            in.Sets,
		DesignNumbers:   designs,
		TotalDesigns:    len(designs),
		BeamMultipliers: multipliers,
		BeamColorIDs:    ids,
		PiecesPerSet:    perSet,
		TotalPieces:     total,
	}, nil
}
