package design

import "context"

// Store persists ledger and beam configuration rows.
//
// DecrementRemaining must apply the check and the write as one operation: it
// only changes the row when remaining_sets >= sets and reports whether it did.
type Store interface {
	InsertTracking(ctx context.Context, t Tracking) (Tracking, error)
	InsertBeamConfig(ctx context.Context, c BeamConfig) (BeamConfig, error)
	ListTracking(ctx context.Context, f Filter) ([]Tracking, error)
	ListBeamConfigs(ctx context.Context, f Filter) ([]BeamConfig, error)
	DecrementRemaining(ctx context.Context, orderID int64, designNumber string, sets int) (Tracking, bool, error)
	DeactivateOrder(ctx context.Context, orderID int64) error
}
