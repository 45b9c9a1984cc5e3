package orders

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (OrderWithDetails, error)
	List(ctx context.Context, filters ListFilters) ([]OrderWithDetails, int, error)
	Designs() design.Store
}

// MasterData resolves the reference rows an order points at.
type MasterData interface {
	GetParty(ctx context.Context, id int64) (masterdata.Party, error)
	GetQuality(ctx context.Context, id int64) (masterdata.Quality, error)
	ColorsByID(ctx context.Context, ids []int64) (map[int64]masterdata.Color, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told whenever ledger balances change.
type ChangeNotifier interface {
	LedgerChanged(ctx context.Context)
}

// Service coordinates order registration and ledger reads.
type Service struct {
	repo     RepositoryPort
	master   MasterData
	audit    AuditPort
	notifier ChangeNotifier
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService builds Service. audit and notifier may be nil.
func NewService(repo RepositoryPort, master MasterData, audit AuditPort, notifier ChangeNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		master:   master,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Preview runs the builder without saving anything.
func (s *Service) Preview(ctx context.Context, in BuildInput) (Preview, error) {
	agg, err := Build(in)
	if err != nil {
		return Preview{}, err
	}
	colors, err := s.master.ColorsByID(ctx, agg.BeamColorIDs)
	if err != nil {
		return Preview{}, err
	}
	out := Preview{
		Sets:         agg.Sets,
		TotalDesigns: agg.TotalDesigns,
		PiecesPerSet: agg.PiecesPerSet,
		TotalPieces:  agg.TotalPieces,
		Beams:        make([]BeamPreview, 0, len(agg.BeamColorIDs)),
	}
	for _, id := range agg.BeamColorIDs {
		count := agg.BeamMultipliers[id]
		out.Beams = append(out.Beams, BeamPreview{
			BeamColorID:      id,
			BeamColorCode:    colors[id].ColorCode,
			BeamColorName:    colors[id].ColorName,
			SelectionCount:   count,
			CalculatedPieces: agg.Sets * count * agg.TotalDesigns,
		})
	}
	return out, nil
}

// CreateOrder validates the order, then inserts it together with its cuts,
// ground colors, ledger rows and beam configuration in one transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderWithDetails, error) {
	in, err := s.normalize(in)
	if err != nil {
		return OrderWithDetails{}, err
	}
	agg, err := Build(BuildInput{Sets: in.Sets, DesignNumbers: in.DesignNumbers, GroundColors: in.GroundColors})
	if err != nil {
		return OrderWithDetails{}, err
	}

	party, err := s.master.GetParty(ctx, in.PartyID)
	if err != nil {
		return OrderWithDetails{}, err
	}
	quality, err := s.master.GetQuality(ctx, in.QualityID)
	if err != nil {
		return OrderWithDetails{}, err
	}
	if _, err := s.master.ColorsByID(ctx, agg.BeamColorIDs); err != nil {
		return OrderWithDetails{}, err
	}

	result := OrderWithDetails{
		PartyName:    party.PartyName,
		QualityName:  quality.QualityName,
		Cuts:         in.Cuts,
		GroundColors: in.GroundColors,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextOrderNumber(ctx, in.OrderDate)
		if err != nil {
			return err
		}
		order, err := tx.InsertOrder(ctx, Order{
			OrderNumber:  number,
			PartyID:      in.PartyID,
			QualityID:    in.QualityID,
			Sets:         in.Sets,
			Pick:         in.Pick,
			RatePerPiece: in.RatePerPiece,
			TotalDesigns: agg.TotalDesigns,
			TotalPieces:  agg.TotalPieces,
			TotalValue:   in.RatePerPiece.Mul(decimal.NewFromInt(int64(agg.TotalPieces))),
			OrderDate:    in.OrderDate,
			Notes:        in.Notes,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertCuts(ctx, order.ID, in.Cuts); err != nil {
			return err
		}
		if err := tx.InsertGroundColors(ctx, order.ID, in.GroundColors); err != nil {
			return err
		}

		ledger := design.NewLedger(tx.Designs(), s.logger)
		for _, d := range agg.DesignNumbers {
			row, err := ledger.Seed(ctx, order.ID, d, agg.Sets)
			if err != nil {
				return err
			}
			result.Designs = append(result.Designs, row)
			for _, colorID := range agg.BeamColorIDs {
				cfg, err := ledger.SeedBeam(ctx, order.ID, d, colorID, agg.BeamMultipliers[colorID])
				if err != nil {
					return err
				}
				result.Beams = append(result.Beams, cfg)
			}
		}
		result.Order = order
		return nil
	})
	if err != nil {
		s.logger.Error("create order", slog.Int64("party_id", in.PartyID), slog.Any("error", err))
		return OrderWithDetails{}, err
	}

	s.logger.Info("order created",
		slog.String("order_number", result.OrderNumber),
		slog.Int("total_designs", result.TotalDesigns),
		slog.Int("total_pieces", result.TotalPieces))
	s.record(ctx, shared.AuditActionCreate, result.ID, map[string]any{
		"order_number": result.OrderNumber,
		"total_pieces": result.TotalPieces,
	})
	s.changed(ctx)
	return result, nil
}

// Get returns an order with its ledger and beam rows.
func (s *Service) Get(ctx context.Context, id int64) (OrderWithDetails, error) {
	if id <= 0 {
		return OrderWithDetails{}, shared.NewValidationError("order_id", "invalid order ID")
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return OrderWithDetails{}, err
	}
	ledger := design.NewLedger(s.repo.Designs(), s.logger)
	if order.Designs, err = ledger.Get(ctx, id, ""); err != nil {
		return OrderWithDetails{}, err
	}
	if order.Beams, err = ledger.BeamConfigs(ctx, id, ""); err != nil {
		return OrderWithDetails{}, err
	}
	return order, nil
}

// List returns orders matching filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]OrderWithDetails, int, error) {
	filters.Page, filters.Limit = shared.NormalizePage(filters.Page, filters.Limit)
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.List(ctx, filters)
}

// Delete soft-deletes an order along with its ledger and beam rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("order_id", "invalid order ID")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Deactivate(ctx, id); err != nil {
			return err
		}
		return design.NewLedger(tx.Designs(), s.logger).DeactivateOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditActionDelete, id, nil)
	s.changed(ctx)
	return nil
}

// DesignTracking returns the ledger rows of an order, optionally one design.
func (s *Service) DesignTracking(ctx context.Context, orderID int64, designNumber string) ([]design.Tracking, error) {
	if orderID <= 0 {
		return nil, shared.NewValidationError("order_id", "invalid order ID")
	}
	return design.NewLedger(s.repo.Designs(), s.logger).Get(ctx, orderID, designNumber)
}

// BeamConfig returns the beam multipliers of an order, optionally one design.
func (s *Service) BeamConfig(ctx context.Context, orderID int64, designNumber string) ([]design.BeamConfig, error) {
	if orderID <= 0 {
		return nil, shared.NewValidationError("order_id", "invalid order ID")
	}
	return design.NewLedger(s.repo.Designs(), s.logger).BeamConfigs(ctx, orderID, designNumber)
}

// AllocateSets takes sets from one design without recording a lot.
func (s *Service) AllocateSets(ctx context.Context, orderID int64, designNumber string, sets int) (design.Tracking, error) {
	row, err := design.NewLedger(s.repo.Designs(), s.logger).Allocate(ctx, orderID, designNumber, sets)
	if err != nil {
		return design.Tracking{}, err
	}
	s.changed(ctx)
	return row, nil
}

func (s *Service) normalize(in CreateOrderInput) (CreateOrderInput, error) {
	if in.PartyID <= 0 {
		return in, shared.NewValidationError("party_id", "is required")
	}
	if in.QualityID <= 0 {
		return in, shared.NewValidationError("quality_id", "is required")
	}
	if in.Pick <= 0 {
		return in, shared.NewValidationError("pick", "must be greater than 0")
	}
	if !in.RatePerPiece.IsPositive() {
		return in, shared.NewValidationError("rate_per_piece", "must be greater than 0")
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if len(in.Notes) > maxNotesLength {
		return in, shared.NewValidationError("notes", "must be at most "+strconv.Itoa(maxNotesLength)+" characters")
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = s.clock()
	}

	if len(in.Cuts) == 0 {
		return in, shared.NewValidationError("cuts", "at least one cut is required")
	}
	cuts := make([]string, 0, len(in.Cuts))
	seen := make(map[string]struct{}, len(in.Cuts))
	for _, c := range in.Cuts {
		c = strings.TrimSpace(c)
		if c == "" {
			return in, shared.NewValidationError("cuts", "cut values cannot be empty")
		}
		if _, dup := seen[c]; dup {
			return in, shared.NewValidationError("cuts", "duplicate cut "+c)
		}
		seen[c] = struct{}{}
		cuts = append(cuts, c)
	}
	in.Cuts = cuts

	colors := make([]GroundColor, 0, len(in.GroundColors))
	for _, gc := range in.GroundColors {
		gc.GroundColorName = strings.TrimSpace(gc.GroundColorName)
		colors = append(colors, gc)
	}
	in.GroundColors = colors
	return in, nil
}

func (s *Service) record(ctx context.Context, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit order", slog.String("action", action), slog.Int64("order_id", orderID), slog.Any("error", err))
	}
}

func (s *Service) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.LedgerChanged(ctx)
	}
}
