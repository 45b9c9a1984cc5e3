// Package designtest provides an in-memory design.Store for tests.
package designtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// Store keeps ledger and beam rows in memory. DecrementRemaining holds the
// mutex across its check and write, mirroring the conditional UPDATE.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	tracking map[design.Key]design.Tracking
	beams    []design.BeamConfig
	colors   map[int64][2]string

	// FailOn makes the named method return the error once.
	FailOn map[string]error
	// Decrements counts successful DecrementRemaining calls.
	Decrements int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		tracking: make(map[design.Key]design.Tracking),
		colors:   make(map[int64][2]string),
		FailOn:   make(map[string]error),
	}
}

// SetColor registers display data returned with beam rows.
func (s *Store) SetColor(id int64, code, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors[id] = [2]string{code, name}
}

// Snapshot is an opaque copy of the store state.
type Snapshot struct {
	nextID   int64
	tracking map[design.Key]design.Tracking
	beams    []design.BeamConfig
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{nextID: s.nextID, tracking: make(map[design.Key]design.Tracking, len(s.tracking))}
	for k, v := range s.tracking {
		snap.tracking[k] = v
	}
	snap.beams = append([]design.BeamConfig(nil), s.beams...)
	return snap
}

// Restore resets the store to a snapshot, emulating a rollback.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tracking = snap.tracking
	s.beams = snap.beams
}

// Row returns the tracking row for a design regardless of its active flag.
func (s *Store) Row(orderID int64, designNumber string) (design.Tracking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracking[design.Key{OrderID: orderID, DesignNumber: designNumber}]
	return t, ok
}

func (s *Store) fail(op string) error {
	if err, ok := s.FailOn[op]; ok {
		delete(s.FailOn, op)
		return err
	}
	return nil
}

func (s *Store) InsertTracking(_ context.Context, t design.Tracking) (design.Tracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertTracking"); err != nil {
		return design.Tracking{}, err
	}
	key := design.Key{OrderID: t.OrderID, DesignNumber: t.DesignNumber}
	if _, exists := s.tracking[key]; exists {
		return design.Tracking{}, fmt.Errorf("insert tracking: %w", shared.ErrDuplicate)
	}
	s.nextID++
	now := time.Now().UTC()
	t.ID = s.nextID
	t.IsActive = true
	t.CreatedAt, t.UpdatedAt = now, now
	s.tracking[key] = t
	return t, nil
}

func (s *Store) InsertBeamConfig(_ context.Context, c design.BeamConfig) (design.BeamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertBeamConfig"); err != nil {
		return design.BeamConfig{}, err
	}
	for _, b := range s.beams {
		if b.OrderID == c.OrderID && b.DesignNumber == c.DesignNumber && b.BeamColorID == c.BeamColorID {
			return design.BeamConfig{}, fmt.Errorf("insert beam config: %w", shared.ErrDuplicate)
		}
	}
	s.nextID++
	c.ID = s.nextID
	s.beams = append(s.beams, c)
	return c, nil
}

func (s *Store) ListTracking(_ context.Context, f design.Filter) ([]design.Tracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListTracking"); err != nil {
		return nil, err
	}
	var out []design.Tracking
	for k, t := range s.tracking {
		if !t.IsActive || (f.OrderID != 0 && k.OrderID != f.OrderID) || (f.DesignNumber != "" && k.DesignNumber != f.DesignNumber) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].DesignNumber < out[j].DesignNumber
	})
	return out, nil
}

func (s *Store) ListBeamConfigs(_ context.Context, f design.Filter) ([]design.BeamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListBeamConfigs"); err != nil {
		return nil, err
	}
	var out []design.BeamConfig
	for _, b := range s.beams {
		if (f.OrderID != 0 && b.OrderID != f.OrderID) || (f.DesignNumber != "" && b.DesignNumber != f.DesignNumber) {
			continue
		}
		if t, ok := s.tracking[design.Key{OrderID: b.OrderID, DesignNumber: b.DesignNumber}]; ok && !t.IsActive {
			continue
		}
		if c, ok := s.colors[b.BeamColorID]; ok {
			b.BeamColorCode, b.BeamColorName = c[0], c[1]
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID < out[j].OrderID
		}
		if out[i].DesignNumber != out[j].DesignNumber {
			return out[i].DesignNumber < out[j].DesignNumber
		}
		return out[i].BeamColorID < out[j].BeamColorID
	})
	return out, nil
}

func (s *Store) DecrementRemaining(_ context.Context, orderID int64, designNumber string, sets int) (design.Tracking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DecrementRemaining"); err != nil {
		return design.Tracking{}, false, err
	}
	key := design.Key{OrderID: orderID, DesignNumber: designNumber}
	t, ok := s.tracking[key]
	if !ok || !t.IsActive || t.RemainingSets < sets {
		return design.Tracking{}, false, nil
	}
	t.AllocatedSets += sets
	t.RemainingSets -= sets
	t.UpdatedAt = time.Now().UTC()
	s.tracking[key] = t
	s.Decrements++
	return t, true, nil
}

func (s *Store) DeactivateOrder(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeactivateOrder"); err != nil {
		return err
	}
	for k, t := range s.tracking {
		if k.OrderID == orderID {
			t.IsActive = false
			s.tracking[k] = t
		}
	}
	return nil
}

var _ design.Store = (*Store)(nil)
