package masterdata

import (
	"context"
	"strings"

	"github.com/weavetrack/weavetrack/internal/shared"
)

// Service exposes master data operations.
type Service interface {
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

	Delete(ctx context.Context, kind Kind, id int64) error
}

// service implements Service.
type service struct {
	repo Repository
}

// NewService creates a new master data service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error) {
	return s.repo.ListParties(ctx, normalizeFilters(filters))
}

func (s *service) GetParty(ctx context.Context, id int64) (Party, error) {
	if id <= 0 {
		return Party{}, shared.NewValidationError("party_id", "invalid party ID")
	}
	return s.repo.GetParty(ctx, id)
}

func (s *service) CreateParty(ctx context.Context, party Party) (Party, error) {
	party.PartyName = strings.TrimSpace(party.PartyName)
	party.ContactNumber = strings.TrimSpace(party.ContactNumber)
	party.BrokerName = strings.TrimSpace(party.BrokerName)
	party.GST = strings.ToUpper(strings.TrimSpace(party.GST))
	party.Address = strings.TrimSpace(party.Address)
	if party.PartyName == "" {
		return Party{}, shared.NewValidationError("party_name", "is required")
	}
	if party.ContactNumber == "" {
		return Party{}, shared.NewValidationError("contact_number", "is required")
	}
	return s.repo.CreateParty(ctx, party)
}

func (s *service) ListColors(ctx context.Context, filters ListFilters) ([]Color, int, error) {
	return s.repo.ListColors(ctx, normalizeFilters(filters))
}

func (s *service) GetColor(ctx context.Context, id int64) (Color, error) {
	if id <= 0 {
		return Color{}, shared.NewValidationError("color_id", "invalid color ID")
	}
	return s.repo.GetColor(ctx, id)
}

// ColorsByID resolves every id or fails with a not-found error naming the first missing one.
func (s *service) ColorsByID(ctx context.Context, ids []int64) (map[int64]Color, error) {
	found, err := s.repo.ColorsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, shared.NotFound("color", id)
		}
	}
	return found, nil
}

func (s *service) CreateColor(ctx context.Context, color Color) (Color, error) {
	color.ColorCode = strings.ToUpper(strings.TrimSpace(color.ColorCode))
	color.ColorName = strings.TrimSpace(color.ColorName)
	if color.ColorCode == "" {
		return Color{}, shared.NewValidationError("color_code", "is required")
	}
	if color.ColorName == "" {
		return Color{}, shared.NewValidationError("color_name", "is required")
	}
	return s.repo.CreateColor(ctx, color)
}

func (s *service) ListQualities(ctx context.Context, filters ListFilters) ([]Quality, int, error) {
	return s.repo.ListQualities(ctx, normalizeFilters(filters))
}

func (s *service) GetQuality(ctx context.Context, id int64) (Quality, error) {
	if id <= 0 {
		return Quality{}, shared.NewValidationError("quality_id", "invalid quality ID")
	}
	return s.repo.GetQuality(ctx, id)
}

func (s *service) CreateQuality(ctx context.Context, quality Quality) (Quality, error) {
	quality.QualityName = strings.TrimSpace(quality.QualityName)
	quality.Specification = strings.TrimSpace(quality.Specification)
	if quality.QualityName == "" {
		return Quality{}, shared.NewValidationError("quality_name", "is required")
	}
	if quality.FeederCount <= 0 {
		return Quality{}, shared.NewValidationError("feeder_count", "must be greater than 0")
	}
	return s.repo.CreateQuality(ctx, quality)
}

func (s *service) ListCuts(ctx context.Context, filters ListFilters) ([]Cut, int, error) {
	return s.repo.ListCuts(ctx, normalizeFilters(filters))
}

func (s *service) GetCut(ctx context.Context, id int64) (Cut, error) {
	if id <= 0 {
		return Cut{}, shared.NewValidationError("cut_id", "invalid cut ID")
	}
	return s.repo.GetCut(ctx, id)
}

func (s *service) CreateCut(ctx context.Context, cut Cut) (Cut, error) {
	cut.CutValue = strings.TrimSpace(cut.CutValue)
	if cut.CutValue == "" {
		return Cut{}, shared.NewValidationError("cut_value", "is required")
	}
	return s.repo.CreateCut(ctx, cut)
}

func (s *service) Delete(ctx context.Context, kind Kind, id int64) error {
	if !kind.IsValid() {
		return shared.NewValidationError("kind", "unknown master data kind")
	}
	if id <= 0 {
		return shared.NewValidationError("id", "invalid ID")
	}
	return s.repo.Deactivate(ctx, kind, id)
}

func normalizeFilters(f ListFilters) ListFilters {
	f.Page, f.Limit = shared.NormalizePage(f.Page, f.Limit)
	f.Search = strings.TrimSpace(f.Search)
	return f
}
