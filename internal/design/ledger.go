package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/weavetrack/weavetrack/internal/shared"
)

// Ledger enforces the set bookkeeping rules on top of a Store.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger}
}

// Seed creates the ledger row for a new design with nothing allocated.
func (l *Ledger) Seed(ctx context.Context, orderID int64, designNumber string, totalSets int) (Tracking, error) {
	designNumber = NormalizeNumber(designNumber)
	if orderID <= 0 {
		return Tracking{}, shared.NewValidationError("order_id", "must be positive")
	}
	if designNumber == "" {
		return Tracking{}, shared.NewValidationError("design_number", "is required")
	}
	if totalSets <= 0 {
		return Tracking{}, shared.NewValidationError("total_sets", "must be greater than 0")
	}
	if totalSets > MaxQuantity {
		return Tracking{}, shared.NewValidationError("total_sets", "must not exceed "+strconv.Itoa(MaxQuantity))
	}
	row, err := l.store.InsertTracking(ctx, Tracking{
		OrderID:       orderID,
		DesignNumber:  designNumber,
		TotalSets:     totalSets,
		AllocatedSets: 0,
		RemainingSets: totalSets,
		IsActive:      true,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Tracking{}, fmt.Errorf("design %s already tracked for order %d: %w", designNumber, orderID, shared.ErrDuplicate)
		}
		return Tracking{}, wrapStore("seed tracking", err)
	}
	return row, nil
}

// SeedBeam records the multiplier of a beam color for a design.
func (l *Ledger) SeedBeam(ctx context.Context, orderID int64, designNumber string, beamColorID int64, multiplier int) (BeamConfig, error) {
	designNumber = NormalizeNumber(designNumber)
	if multiplier < 1 {
		return BeamConfig{}, shared.NewValidationError("beam_multiplier", "must be at least 1")
	}
	if beamColorID <= 0 {
		return BeamConfig{}, shared.NewValidationError("beam_color_id", "must be positive")
	}
	cfg, err := l.store.InsertBeamConfig(ctx, BeamConfig{
		OrderID:        orderID,
		DesignNumber:   designNumber,
		BeamColorID:    beamColorID,
		BeamMultiplier: multiplier,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return BeamConfig{}, fmt.Errorf("beam %d already configured for %s: %w", beamColorID, designNumber, shared.ErrDuplicate)
		}
		return BeamConfig{}, wrapStore("seed beam config", err)
	}
	return cfg, nil
}

// Get returns the active rows of an order, optionally narrowed to one design.
func (l *Ledger) Get(ctx context.Context, orderID int64, designNumber string) ([]Tracking, error) {
	rows, err := l.store.ListTracking(ctx, Filter{OrderID: orderID, DesignNumber: NormalizeNumber(designNumber)})
	if err != nil {
		return nil, wrapStore("list tracking", err)
	}
	return rows, nil
}

// BeamConfigs returns beam rows of an order, optionally narrowed to one design.
func (l *Ledger) BeamConfigs(ctx context.Context, orderID int64, designNumber string) ([]BeamConfig, error) {
	rows, err := l.store.ListBeamConfigs(ctx, Filter{OrderID: orderID, DesignNumber: NormalizeNumber(designNumber)})
	if err != nil {
		return nil, wrapStore("list beam configs", err)
	}
	return rows, nil
}

// Check verifies that sets can be taken from a design without changing anything.
func (l *Ledger) Check(ctx context.Context, orderID int64, designNumber string, sets int) (Tracking, error) {
	designNumber = NormalizeNumber(designNumber)
	if err := validateAllocation(orderID, designNumber, sets); err != nil {
		return Tracking{}, err
	}
	row, err := l.one(ctx, orderID, designNumber)
	if err != nil {
		return Tracking{}, err
	}
	if row.RemainingSets < sets {
		return row, &shared.InsufficientCapacityError{
			OrderID:      orderID,
			DesignNumber: designNumber,
			Requested:    sets,
			Available:    row.RemainingSets,
		}
	}
	return row, nil
}

// Allocate moves sets from remaining to allocated. The store applies the
// sufficiency check and the write together; on refusal the row is re-read
// to tell a missing design, a short balance and a lost race apart.
func (l *Ledger) Allocate(ctx context.Context, orderID int64, designNumber string, sets int) (Tracking, error) {
	designNumber = NormalizeNumber(designNumber)
	if err := validateAllocation(orderID, designNumber, sets); err != nil {
		return Tracking{}, err
	}
	row, applied, err := l.store.DecrementRemaining(ctx, orderID, designNumber, sets)
	if err != nil {
		return Tracking{}, wrapStore("decrement remaining", err)
	}
	if applied {
		if !row.Balanced() {
			l.logger.Error("ledger row out of balance",
				slog.Int64("order_id", orderID),
				slog.String("design_number", designNumber),
				slog.Int("total_sets", row.TotalSets),
				slog.Int("allocated_sets", row.AllocatedSets),
				slog.Int("remaining_sets", row.RemainingSets))
			return Tracking{}, shared.NewPersistenceError("decrement remaining", errors.New("ledger row out of balance"))
		}
		return row, nil
	}

	current, err := l.one(ctx, orderID, designNumber)
	if err != nil {
		return Tracking{}, err
	}
	if current.RemainingSets < sets {
		l.logger.Warn("allocation refused",
			slog.Int64("order_id", orderID),
			slog.String("design_number", designNumber),
			slog.Int("requested", sets),
			slog.Int("available", current.RemainingSets))
		return Tracking{}, &shared.InsufficientCapacityError{
			OrderID:      orderID,
			DesignNumber: designNumber,
			Requested:    sets,
			Available:    current.RemainingSets,
		}
	}
	return Tracking{}, fmt.Errorf("allocate %s on order %d: %w", designNumber, orderID, shared.ErrConflict)
}

// DeactivateOrder soft-deletes every ledger and beam row of an order.
func (l *Ledger) DeactivateOrder(ctx context.Context, orderID int64) error {
	return wrapStore("deactivate order designs", l.store.DeactivateOrder(ctx, orderID))
}

func (l *Ledger) one(ctx context.Context, orderID int64, designNumber string) (Tracking, error) {
	rows, err := l.store.ListTracking(ctx, Filter{OrderID: orderID, DesignNumber: designNumber})
	if err != nil {
		return Tracking{}, wrapStore("load tracking", err)
	}
	if len(rows) == 0 {
		return Tracking{}, shared.NotFound("design tracking", fmt.Sprintf("%d/%s", orderID, designNumber))
	}
	return rows[0], nil
}

func validateAllocation(orderID int64, designNumber string, sets int) error {
	if orderID <= 0 {
		return shared.NewValidationError("order_id", "must be positive")
	}
	if designNumber == "" {
		return shared.NewValidationError("design_number", "is required")
	}
	if sets <= 0 {
		return shared.NewValidationError("sets", "must be greater than 0")
	}
	if sets > MaxQuantity {
		return shared.NewValidationError("sets", "must not exceed "+strconv.Itoa(MaxQuantity))
	}
	return nil
}

// wrapStore keeps taxonomy errors intact and wraps anything else as a persistence failure.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{shared.ErrValidation, shared.ErrNotFound, shared.ErrDuplicate, shared.ErrConflict, shared.ErrPersistence, shared.ErrInsufficientCapacity} {
		if errors.Is(err, known) {
			return err
		}
	}
	return shared.NewPersistenceError(op, err)
}
