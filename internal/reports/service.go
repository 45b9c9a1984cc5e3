package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// RepositoryPort exposes the reads reports are built from.
type RepositoryPort interface {
	LedgerRows(ctx context.Context, f Filter) ([]LedgerRecord, error)
	BeamConfigs(ctx context.Context, f Filter) ([]design.BeamConfig, error)
	LotStatusCounts(ctx context.Context) (map[string]int, error)
	LotRegister(ctx context.Context, page, limit int) ([]LotRegisterRow, int, error)
}

// Service builds reports, serving the ledger projections through the cache.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	builds singleflight.Group
}

// NewService wires a repository with a cache. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// DesignWise returns remaining pieces per design and beam color.
func (s *Service) DesignWise(ctx context.Context, f Filter) (DesignWise, error) {
	var out DesignWise
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		records, beams, err := s.load(ctx, f)
		if err != nil {
			return nil, err
		}
		return BuildDesignWise(records, beams), nil
	}, "design_wise", strconv.FormatInt(f.OrderID, 10), strconv.FormatInt(f.PartyID, 10))
	return out, err
}

// BeamSummary returns remaining pieces grouped by quality and beam color.
func (s *Service) BeamSummary(ctx context.Context) (BeamSummary, error) {
	var out BeamSummary
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		records, beams, err := s.load(ctx, Filter{})
		if err != nil {
			return nil, err
		}
		return SummarizeBeams(BuildDesignWise(records, beams).Rows), nil
	}, "beam_summary")
	return out, err
}

// AllocationSummary returns overall allocation progress and lot counts.
func (s *Service) AllocationSummary(ctx context.Context) (AllocationSummary, error) {
	var out AllocationSummary
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		var (
			records []LedgerRecord
			beams   []design.BeamConfig
			counts  map[string]int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			records, err = s.repo.LedgerRows(gctx, Filter{})
			return err
		})
		g.Go(func() (err error) {
			beams, err = s.repo.BeamConfigs(gctx, Filter{})
			return err
		})
		g.Go(func() (err error) {
			counts, err = s.repo.LotStatusCounts(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return Summarize(records, beams, CountLots(counts)), nil
	}, "allocation_summary")
	return out, err
}

// PartyWise returns outstanding pieces and value per party.
func (s *Service) PartyWise(ctx context.Context, partyID int64) (PartyWise, error) {
	var out PartyWise
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		records, beams, err := s.load(ctx, Filter{PartyID: partyID})
		if err != nil {
			return nil, err
		}
		return BuildPartyWise(records, beams), nil
	}, "party_wise", strconv.FormatInt(partyID, 10))
	return out, err
}

// LotRegister returns a page of the lot register. A limit of zero returns every row.
func (s *Service) LotRegister(ctx context.Context, page, limit int) (LotRegister, error) {
	if limit != 0 {
		page, limit = shared.NormalizePage(page, limit)
	}
	rows, total, err := s.repo.LotRegister(ctx, page, limit)
	if err != nil {
		return LotRegister{}, err
	}
	return TallyRegister(rows, total), nil
}

// Warm rebuilds the unfiltered cached reports.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.DesignWise(ctx, Filter{}); err != nil {
		return err
	}
	if _, err := s.BeamSummary(ctx); err != nil {
		return err
	}
	if _, err := s.AllocationSummary(ctx); err != nil {
		return err
	}
	_, err := s.PartyWise(ctx, 0)
	return err
}

func (s *Service) load(ctx context.Context, f Filter) ([]LedgerRecord, []design.BeamConfig, error) {
	var (
		records []LedgerRecord
		beams   []design.BeamConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = s.repo.LedgerRows(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		beams, err = s.repo.BeamConfigs(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, beams, nil
}

// cached serves dest from the report cache. Concurrent misses on the same key
// share one build. When Redis fails the report is built directly.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.direct(ctx, dest, loader)
	}
	val, err, _ := s.build(ctx, key, func(ctx context.Context) (any, error) {
		var loadErr error
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (any, error) {
			v, err := loader(ctx)
			loadErr = err
			return v, err
		})
		if err != nil && loadErr == nil {
			s.logger.Warn("report cache unavailable", slog.String("key", key), slog.Any("error", err))
			v, err := loader(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(v)
		}
		return []byte(raw), err
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(val.([]byte), dest)
}

func (s *Service) direct(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *Service) build(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := s.builds.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}
