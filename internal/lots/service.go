package lots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/shared"
)

const (
	idempotencyModule = "lots"
	maxNotesLength    = 1000
)

// Allocation outcomes reported to the AllocationObserver.
const (
	OutcomeAllocated    = "allocated"
	OutcomeInsufficient = "insufficient"
	OutcomeFailed       = "failed"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (LotWithDetails, error)
	List(ctx context.Context, filters ListFilters) ([]LotWithDetails, int, error)
	Designs() design.Store
}

// MasterData resolves the party and quality a lot belongs to.
type MasterData interface {
	GetParty(ctx context.Context, id int64) (masterdata.Party, error)
	GetQuality(ctx context.Context, id int64) (masterdata.Quality, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards lot creation against replayed requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ChangeNotifier is told whenever ledger balances or lots change.
type ChangeNotifier interface {
	LedgerChanged(ctx context.Context)
}

// AllocationObserver receives the outcome of every lot creation attempt.
type AllocationObserver interface {
	ObserveAllocation(outcome string, sets int)
}

// Service records lots and consumes ledger sets for them.
type Service struct {
	repo        RepositoryPort
	master      MasterData
	audit       AuditPort
	idempotency IdempotencyPort
	notifier    ChangeNotifier
	observer    AllocationObserver
	logger      *slog.Logger
	clock       func() time.Time
}

// NewService builds Service. audit and idem may be nil.
func NewService(repo RepositoryPort, master MasterData, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		master:      master,
		audit:       audit,
		idempotency: idem,
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier registers the listener for ledger changes.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// SetObserver registers the allocation outcome observer.
func (s *Service) SetObserver(o AllocationObserver) {
	s.observer = o
}

// WithNow overrides the clock used for default lot dates.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.clock = now
	}
}

// CreateLot allocates every requested design and records the lot. Either all
// allocations succeed and the lot is stored, or nothing changes.
func (s *Service) CreateLot(ctx context.Context, in CreateLotInput) (LotWithDetails, error) {
	header, err := s.normalizeHeader(in.Header)
	if err != nil {
		return LotWithDetails{}, err
	}
	plan, err := normalizeAllocations(in.Allocations)
	if err != nil {
		return LotWithDetails{}, err
	}
	party, err := s.master.GetParty(ctx, header.PartyID)
	if err != nil {
		return LotWithDetails{}, err
	}
	quality, err := s.master.GetQuality(ctx, header.QualityID)
	if err != nil {
		return LotWithDetails{}, err
	}

	key := shared.ScopedKey(idempotencyModule, header.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return LotWithDetails{}, err
		}
	}

	requested := 0
	for _, a := range plan {
		requested += a.Sets
	}

	result := LotWithDetails{PartyName: party.PartyName, QualityName: quality.QualityName}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ledger := design.NewLedger(tx.Designs(), s.logger)
		for _, a := range plan {
			if _, err := ledger.Check(ctx, a.OrderID, a.DesignNumber, a.Sets); err != nil {
				return err
			}
		}

		orderIDs := make([]int64, 0, len(plan))
		for _, a := range plan {
			orderIDs = append(orderIDs, a.OrderID)
		}
		beams, err := beamsFor(ctx, ledger, orderIDs)
		if err != nil {
			return err
		}
		allocations := make([]Allocation, 0, len(plan))
		total := 0
		for _, a := range plan {
			if _, err := ledger.Allocate(ctx, a.OrderID, a.DesignNumber, a.Sets); err != nil {
				return err
			}
			pieces, ok := design.Product(a.Sets, design.PiecesPerSet(beams[a.OrderID])[design.Key{OrderID: a.OrderID, DesignNumber: a.DesignNumber}])
			if !ok || total > design.MaxQuantity-pieces {
				return shared.NewValidationError("sets", "lot pieces would exceed "+strconv.Itoa(design.MaxQuantity))
			}
			total += pieces
			allocations = append(allocations, Allocation{
				OrderID:       a.OrderID,
				DesignNumber:  a.DesignNumber,
				AllocatedSets: a.Sets,
			})
		}

		lot, err := tx.InsertLot(ctx, Lot{
			LotNumber:    header.LotNumber,
			LotDate:      header.LotDate,
			PartyID:      header.PartyID,
			QualityID:    header.QualityID,
			TotalPieces:  total,
			BillNumber:   header.BillNumber,
			ActualPieces: header.ActualPieces,
			DeliveryDate: header.DeliveryDate,
			Status:       header.Status,
			Notes:        header.Notes,
		})
		if err != nil {
			return err
		}
		saved, err := tx.InsertAllocations(ctx, lot.ID, allocations)
		if err != nil {
			return err
		}
		result.Lot = lot
		result.Allocations = enrich(saved, beams)
		return nil
	})
	if err != nil {
		s.observe(err, requested)
		if key != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("lot_number", header.LotNumber), slog.Any("error", delErr))
			}
		}
		return LotWithDetails{}, err
	}

	s.observe(nil, requested)
	s.logger.Info("lot created",
		slog.Int64("lot_id", result.ID),
		slog.String("lot_number", result.LotNumber),
		slog.Int("allocations", len(result.Allocations)),
		slog.Int("total_pieces", result.TotalPieces))
	s.record(ctx, shared.AuditActionCreate, result.ID, map[string]any{
		"lot_number":   result.LotNumber,
		"sets":         requested,
		"total_pieces": result.TotalPieces,
	})
	s.changed(ctx)
	return result, nil
}

// CreateLotForOrder allocates sets from every active design of an order. A
// sets value of zero takes whatever each design still has.
func (s *Service) CreateLotForOrder(ctx context.Context, header Header, orderID int64, sets int) (LotWithDetails, error) {
	if orderID <= 0 {
		return LotWithDetails{}, shared.NewValidationError("order_id", "invalid order ID")
	}
	if sets < 0 {
		return LotWithDetails{}, shared.NewValidationError("sets", "must not be negative")
	}
	rows, err := design.NewLedger(s.repo.Designs(), s.logger).Get(ctx, orderID, "")
	if err != nil {
		return LotWithDetails{}, err
	}
	if len(rows) == 0 {
		return LotWithDetails{}, shared.NotFound("order designs", orderID)
	}
	requests := make([]AllocationRequest, 0, len(rows))
	for _, row := range rows {
		n := sets
		if n == 0 {
			if row.RemainingSets == 0 {
				continue
			}
			n = row.RemainingSets
		}
		requests = append(requests, AllocationRequest{OrderID: orderID, DesignNumber: row.DesignNumber, Sets: n})
	}
	if len(requests) == 0 {
		return LotWithDetails{}, shared.NewValidationError("sets", "order has no remaining sets")
	}
	return s.CreateLot(ctx, CreateLotInput{Header: header, Allocations: requests})
}

// CreateLotForDesign allocates sets from a single design. A sets value of
// zero takes the whole remaining balance.
func (s *Service) CreateLotForDesign(ctx context.Context, header Header, orderID int64, designNumber string, sets int) (LotWithDetails, error) {
	if sets < 0 {
		return LotWithDetails{}, shared.NewValidationError("sets", "must not be negative")
	}
	if sets == 0 {
		row, err := s.tracking(ctx, orderID, designNumber)
		if err != nil {
			return LotWithDetails{}, err
		}
		if row.RemainingSets == 0 {
			return LotWithDetails{}, shared.NewValidationError("sets", "design has no remaining sets")
		}
		sets = row.RemainingSets
	}
	return s.CreateLot(ctx, CreateLotInput{
		Header:      header,
		Allocations: []AllocationRequest{{OrderID: orderID, DesignNumber: designNumber, Sets: sets}},
	})
}

// AllocatePieces converts a piece count into sets of one design and records a
// lot for them. pieces must be a whole number of sets.
func (s *Service) AllocatePieces(ctx context.Context, header Header, orderID int64, designNumber string, pieces int) (PieceAllocation, error) {
	if orderID <= 0 {
		return PieceAllocation{}, shared.NewValidationError("order_id", "invalid order ID")
	}
	if pieces <= 0 {
		return PieceAllocation{}, shared.NewValidationError("pieces", "must be greater than 0")
	}
	if pieces > design.MaxQuantity {
		return PieceAllocation{}, shared.NewValidationError("pieces", "must not exceed "+strconv.Itoa(design.MaxQuantity))
	}
	designNumber = design.NormalizeNumber(designNumber)
	configs, err := design.NewLedger(s.repo.Designs(), s.logger).BeamConfigs(ctx, orderID, designNumber)
	if err != nil {
		return PieceAllocation{}, err
	}
	if len(configs) == 0 {
		return PieceAllocation{}, shared.NotFound("beam configuration", fmt.Sprintf("%d/%s", orderID, designNumber))
	}
	perSet := 0
	for _, c := range configs {
		perSet += c.BeamMultiplier
	}
	if pieces%perSet != 0 {
		return PieceAllocation{}, shared.NewValidationError("pieces", "must be a multiple of "+strconv.Itoa(perSet))
	}
	sets := pieces / perSet

	lot, err := s.CreateLot(ctx, CreateLotInput{
		Header:      header,
		Allocations: []AllocationRequest{{OrderID: orderID, DesignNumber: designNumber, Sets: sets}},
	})
	if err != nil {
		return PieceAllocation{}, err
	}
	return PieceAllocation{
		Lot:          lot,
		PiecesPerSet: perSet,
		Sets:         sets,
		Breakdown:    beamPieces(configs, sets),
	}, nil
}

// Get returns a lot with its allocations and their beam breakdown.
func (s *Service) Get(ctx context.Context, id int64) (LotWithDetails, error) {
	if id <= 0 {
		return LotWithDetails{}, shared.NewValidationError("lot_id", "invalid lot ID")
	}
	lot, err := s.repo.Get(ctx, id)
	if err != nil {
		return LotWithDetails{}, err
	}
	ledger := design.NewLedger(s.repo.Designs(), s.logger)
	orderIDs := make([]int64, 0, len(lot.Allocations))
	for _, a := range lot.Allocations {
		orderIDs = append(orderIDs, a.OrderID)
	}
	beams, err := beamsFor(ctx, ledger, orderIDs)
	if err != nil {
		return LotWithDetails{}, err
	}
	lot.Allocations = enrich(lot.Allocations, beams)
	return lot, nil
}

// List returns lots matching filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]LotWithDetails, int, error) {
	if filters.Status != "" && !filters.Status.IsValid() {
		return nil, 0, shared.NewValidationError("status", "must be one of PENDING IN_PROGRESS COMPLETED DELIVERED")
	}
	filters.Page, filters.Limit = shared.NormalizePage(filters.Page, filters.Limit)
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.List(ctx, filters)
}

// UpdateLot patches lot metadata. Ledger balances are never touched.
func (s *Service) UpdateLot(ctx context.Context, id int64, patch UpdateLotInput) (Lot, error) {
	if id <= 0 {
		return Lot{}, shared.NewValidationError("lot_id", "invalid lot ID")
	}
	if patch.Empty() {
		return Lot{}, shared.NewValidationError("body", "nothing to update")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return Lot{}, shared.NewValidationError("status", "must be one of PENDING IN_PROGRESS COMPLETED DELIVERED")
	}
	if patch.ActualPieces != nil && *patch.ActualPieces < 0 {
		return Lot{}, shared.NewValidationError("actual_pieces", "must not be negative")
	}
	if patch.BillNumber != nil {
		v := strings.TrimSpace(*patch.BillNumber)
		patch.BillNumber = &v
	}
	if patch.Notes != nil {
		v := strings.TrimSpace(*patch.Notes)
		if len(v) > maxNotesLength {
			return Lot{}, shared.NewValidationError("notes", "must be at most "+strconv.Itoa(maxNotesLength)+" characters")
		}
		patch.Notes = &v
	}

	var updated Lot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lot, err := tx.UpdateLot(ctx, id, patch)
		if err != nil {
			return err
		}
		updated = lot
		return nil
	})
	if err != nil {
		return Lot{}, err
	}
	s.record(ctx, shared.AuditActionUpdate, id, map[string]any{"status": string(updated.Status)})
	s.changed(ctx)
	return updated, nil
}

// DeleteLot soft-deletes a lot and its allocation rows. Sets already taken
// from the ledger stay allocated.
func (s *Service) DeleteLot(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("lot_id", "invalid lot ID")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Deactivate(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditActionDelete, id, nil)
	s.changed(ctx)
	return nil
}

func (s *Service) tracking(ctx context.Context, orderID int64, designNumber string) (design.Tracking, error) {
	if orderID <= 0 {
		return design.Tracking{}, shared.NewValidationError("order_id", "invalid order ID")
	}
	designNumber = design.NormalizeNumber(designNumber)
	if designNumber == "" {
		return design.Tracking{}, shared.NewValidationError("design_number", "is required")
	}
	rows, err := design.NewLedger(s.repo.Designs(), s.logger).Get(ctx, orderID, designNumber)
	if err != nil {
		return design.Tracking{}, err
	}
	if len(rows) == 0 {
		return design.Tracking{}, shared.NotFound("design tracking", fmt.Sprintf("%d/%s", orderID, designNumber))
	}
	return rows[0], nil
}

func (s *Service) normalizeHeader(h Header) (Header, error) {
	if h.PartyID <= 0 {
		return h, shared.NewValidationError("party_id", "is required")
	}
	if h.QualityID <= 0 {
		return h, shared.NewValidationError("quality_id", "is required")
	}
	h.LotNumber = strings.TrimSpace(h.LotNumber)
	if h.LotNumber == "" {
		return h, shared.NewValidationError("lot_number", "is required")
	}
	if h.LotDate.IsZero() {
		h.LotDate = s.clock()
	}
	if h.Status == "" {
		h.Status = StatusPending
	}
	if !h.Status.IsValid() {
		return h, shared.NewValidationError("status", "must be one of PENDING IN_PROGRESS COMPLETED DELIVERED")
	}
	if h.ActualPieces != nil && *h.ActualPieces < 0 {
		return h, shared.NewValidationError("actual_pieces", "must not be negative")
	}
	h.BillNumber = strings.TrimSpace(h.BillNumber)
	h.Notes = strings.TrimSpace(h.Notes)
	if len(h.Notes) > maxNotesLength {
		return h, shared.NewValidationError("notes", "must be at most "+strconv.Itoa(maxNotesLength)+" characters")
	}
	return h, nil
}

// normalizeAllocations validates requests and orders them by (order, design)
// so concurrent lots lock ledger rows in the same sequence.
func normalizeAllocations(in []AllocationRequest) ([]AllocationRequest, error) {
	if len(in) == 0 {
		return nil, shared.NewValidationError("allocations", "at least one allocation is required")
	}
	out := make([]AllocationRequest, 0, len(in))
	seen := make(map[design.Key]struct{}, len(in))
	for _, a := range in {
		a.DesignNumber = design.NormalizeNumber(a.DesignNumber)
		if a.OrderID <= 0 {
			return nil, shared.NewValidationError("order_id", "must be positive")
		}
		if a.DesignNumber == "" {
			return nil, shared.NewValidationError("design_number", "is required")
		}
		if a.Sets <= 0 {
			return nil, shared.NewValidationError("sets", "must be greater than 0")
		}
		if a.Sets > design.MaxQuantity {
			return nil, shared.NewValidationError("sets", "must not exceed "+strconv.Itoa(design.MaxQuantity))
		}
		k := design.Key{OrderID: a.OrderID, DesignNumber: a.DesignNumber}
		if _, dup := seen[k]; dup {
			return nil, shared.NewValidationError("allocations", fmt.Sprintf("duplicate allocation for order %d design %s", a.OrderID, a.DesignNumber))
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].DesignNumber < out[j].DesignNumber
	})
	return out, nil
}

// beamsFor loads the beam configuration of every listed order once.
func beamsFor(ctx context.Context, ledger *design.Ledger, orderIDs []int64) (map[int64][]design.BeamConfig, error) {
	out := make(map[int64][]design.BeamConfig, len(orderIDs))
	for _, id := range orderIDs {
		if _, ok := out[id]; ok {
			continue
		}
		configs, err := ledger.BeamConfigs(ctx, id, "")
		if err != nil {
			return nil, err
		}
		out[id] = configs
	}
	return out, nil
}

// enrich fills the piece figures of allocations from their beam configuration.
func enrich(allocations []Allocation, beams map[int64][]design.BeamConfig) []Allocation {
	out := make([]Allocation, 0, len(allocations))
	for _, a := range allocations {
		var configs []design.BeamConfig
		for _, c := range beams[a.OrderID] {
			if c.DesignNumber == a.DesignNumber {
				configs = append(configs, c)
			}
		}
		a.BeamPieces = beamPieces(configs, a.AllocatedSets)
		a.Pieces = 0
		for _, bp := range a.BeamPieces {
			a.Pieces += bp.Pieces
		}
		out = append(out, a)
	}
	return out
}

func beamPieces(configs []design.BeamConfig, sets int) []BeamPiece {
	out := make([]BeamPiece, 0, len(configs))
	for _, c := range configs {
		out = append(out, BeamPiece{
			BeamColorID:    c.BeamColorID,
			BeamColorCode:  c.BeamColorCode,
			BeamColorName:  c.BeamColorName,
			BeamMultiplier: c.BeamMultiplier,
			Pieces:         sets * c.BeamMultiplier,
		})
	}
	return out
}

func (s *Service) observe(err error, sets int) {
	if s.observer == nil {
		return
	}
	switch {
	case err == nil:
		s.observer.ObserveAllocation(OutcomeAllocated, sets)
	case errors.Is(err, shared.ErrInsufficientCapacity):
		s.observer.ObserveAllocation(OutcomeInsufficient, sets)
	default:
		s.observer.ObserveAllocation(OutcomeFailed, sets)
	}
}

func (s *Service) record(ctx context.Context, action string, lotID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "lot",
		EntityID: strconv.FormatInt(lotID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit lot", slog.String("action", action), slog.Int64("lot_id", lotID), slog.Any("error", err))
	}
}

func (s *Service) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.LedgerChanged(ctx)
	}
}
