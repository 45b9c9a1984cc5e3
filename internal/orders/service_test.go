package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/design/designtest"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/shared"
)

type mockRepository struct {
	designs *designtest.Store
	orders  map[int64]OrderWithDetails
	nextID  int64
	failTx  error
}

type mockTxRepo struct {
	repo    *mockRepository
	pending map[int64]OrderWithDetails
	deleted []int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{designs: designtest.NewStore(), orders: map[int64]OrderWithDetails{}}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := m.designs.Snapshot()
	nextID := m.nextID
	tx := &mockTxRepo{repo: m, pending: map[int64]OrderWithDetails{}}
	err := fn(ctx, tx)
	if err == nil {
		err = m.failTx
	}
	if err != nil {
		m.designs.Restore(snap)
		m.nextID = nextID
		return err
	}
	for id, o := range tx.pending {
		m.orders[id] = o
	}
	for _, id := range tx.deleted {
		o := m.orders[id]
		o.IsActive = false
		m.orders[id] = o
	}
	return nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (OrderWithDetails, error) {
	o, ok := m.orders[id]
	if !ok || !o.IsActive {
		return OrderWithDetails{}, shared.NotFound("order", id)
	}
	return o, nil
}

func (m *mockRepository) List(_ context.Context, f ListFilters) ([]OrderWithDetails, int, error) {
	var out []OrderWithDetails
	for _, o := range m.orders {
		if o.IsActive && (f.PartyID == 0 || o.PartyID == f.PartyID) {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Designs() design.Store { return m.designs }

func (tx *mockTxRepo) NextOrderNumber(_ context.Context, at time.Time) (string, error) {
	count := 0
	for _, o := range tx.repo.orders {
		if o.OrderDate.Format("2006-01") == at.Format("2006-01") {
			count++
		}
	}
	return FormatOrderNumber(at, count+1), nil
}

func (tx *mockTxRepo) InsertOrder(_ context.Context, o Order) (Order, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	o.IsActive = true
	tx.pending[o.ID] = OrderWithDetails{Order: o}
	return o, nil
}

func (tx *mockTxRepo) InsertCuts(_ context.Context, orderID int64, cuts []string) error {
	o := tx.pending[orderID]
	o.Cuts = cuts
	tx.pending[orderID] = o
	return nil
}

func (tx *mockTxRepo) InsertGroundColors(_ context.Context, orderID int64, colors []GroundColor) error {
	o := tx.pending[orderID]
	o.GroundColors = colors
	tx.pending[orderID] = o
	return nil
}

func (tx *mockTxRepo) Deactivate(_ context.Context, orderID int64) error {
	if o, ok := tx.repo.orders[orderID]; !ok || !o.IsActive {
		return shared.NotFound("order", orderID)
	}
	tx.deleted = append(tx.deleted, orderID)
	return nil
}

func (tx *mockTxRepo) Designs() design.Store { return tx.repo.designs }

type fakeMaster struct{}

func (fakeMaster) GetParty(_ context.Context, id int64) (masterdata.Party, error) {
	if id != 1 {
		return masterdata.Party{}, shared.NotFound("party", id)
	}
	return masterdata.Party{ID: 1, PartyName: "Acme"}, nil
}

func (fakeMaster) GetQuality(_ context.Context, id int64) (masterdata.Quality, error) {
	if id != 1 {
		return masterdata.Quality{}, shared.NotFound("quality", id)
	}
	return masterdata.Quality{ID: 1, QualityName: "Q60"}, nil
}

func (fakeMaster) ColorsByID(_ context.Context, ids []int64) (map[int64]masterdata.Color, error) {
	known := map[int64]masterdata.Color{
		1: {ID: 1, ColorCode: "RED", ColorName: "Red"},
		2: {ID: 2, ColorCode: "BLU", ColorName: "Blue"},
	}
	out := map[int64]masterdata.Color{}
	for _, id := range ids {
		c, ok := known[id]
		if !ok {
			return nil, shared.NotFound("color", id)
		}
		out[id] = c
	}
	return out, nil
}

type auditSpy struct{ logs []shared.AuditLog }

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type notifierSpy struct{ calls int }

func (n *notifierSpy) LedgerChanged(context.Context) { n.calls++ }

func sampleInput() CreateOrderInput {
	return CreateOrderInput{
		PartyID:       1,
		QualityID:     1,
		Sets:          10,
		Pick:          52,
		RatePerPiece:  decimal.RequireFromString("12.50"),
		OrderDate:     time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		Cuts:          []string{" 5.5 ", "6"},
		DesignNumbers: []string{"d1", "D2"},
		GroundColors: []GroundColor{
			{GroundColorName: "X", BeamColorID: 1},
			{GroundColorName: "Y", BeamColorID: 1},
			{GroundColorName: "Z", BeamColorID: 2},
		},
	}
}

func newTestService(repo *mockRepository) (*Service, *auditSpy, *notifierSpy) {
	audit := &auditSpy{}
	notifier := &notifierSpy{}
	return NewService(repo, fakeMaster{}, audit, notifier, nil), audit, notifier
}

func TestCreateOrderSeedsLedgerAndBeams(t *testing.T) {
	repo := newMockRepository()
	svc, audit, notifier := newTestService(repo)

	order, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-10-001", order.OrderNumber)
	assert.Equal(t, 2, order.TotalDesigns)
	assert.Equal(t, 60, order.TotalPieces)
	assert.True(t, decimal.RequireFromString("750").Equal(order.TotalValue))
	assert.Equal(t, []string{"5.5", "6"}, order.Cuts)
	assert.Equal(t, "Acme", order.PartyName)

	require.Len(t, order.Designs, 2)
	for _, row := range order.Designs {
		assert.Equal(t, 10, row.TotalSets)
		assert.Equal(t, 10, row.RemainingSets)
		assert.Zero(t, row.AllocatedSets)
	}
	require.Len(t, order.Beams, 4)
	mult := map[int64]int{}
	for _, b := range order.Beams {
		if b.DesignNumber == "D1" {
			mult[b.BeamColorID] = b.BeamMultiplier
		}
	}
	assert.Equal(t, map[int64]int{1: 2, 2: 1}, mult)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditActionCreate, audit.logs[0].Action)
	assert.Equal(t, 1, notifier.calls)

	second, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-10-002", second.OrderNumber)
}

func TestCreateOrderUnknownBeamColor(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	in := sampleInput()
	in.GroundColors = append(in.GroundColors, GroundColor{GroundColorName: "W", BeamColorID: 9})

	_, err := svc.CreateOrder(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, repo.orders)
}

func TestCreateOrderRollsBackOnSeedFailure(t *testing.T) {
	repo := newMockRepository()
	repo.designs.FailOn["InsertBeamConfig"] = errors.New("disk full")
	svc, audit, notifier := newTestService(repo)

	_, err := svc.CreateOrder(context.Background(), sampleInput())
	require.ErrorIs(t, err, shared.ErrPersistence)
	assert.Empty(t, repo.orders)
	_, ok := repo.designs.Row(1, "D1")
	assert.False(t, ok)
	assert.Empty(t, audit.logs)
	assert.Zero(t, notifier.calls)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())
	mutations := map[string]func(*CreateOrderInput){
		"zero rate":      func(in *CreateOrderInput) { in.RatePerPiece = decimal.Zero },
		"no cuts":        func(in *CreateOrderInput) { in.Cuts = nil },
		"duplicate cuts": func(in *CreateOrderInput) { in.Cuts = []string{"6", " 6"} },
		"duplicate design": func(in *CreateOrderInput) {
			in.DesignNumbers = []string{"D1", "d1"}
		},
		"no pick": func(in *CreateOrderInput) { in.Pick = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := sampleInput()
			mutate(&in)
			_, err := svc.CreateOrder(context.Background(), in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestDeleteOrderCascadesToLedger(t *testing.T) {
	repo := newMockRepository()
	svc, audit, _ := newTestService(repo)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))
	_, err = svc.Get(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	rows, err := svc.DesignTracking(ctx, order.ID, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Len(t, audit.logs, 2)

	require.ErrorIs(t, svc.Delete(ctx, order.ID), shared.ErrNotFound)
}

func TestGetIncludesLedger(t *testing.T) {
	repo := newMockRepository()
	svc, _, notifier := newTestService(repo)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	row, err := svc.AllocateSets(ctx, order.ID, "d2", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, row.RemainingSets)
	assert.Equal(t, 2, notifier.calls)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Designs, 2)
	assert.Equal(t, 4, got.Designs[1].AllocatedSets)
	assert.Len(t, got.Beams, 4)

	_, err = svc.AllocateSets(ctx, order.ID, "D2", 7)
	require.ErrorIs(t, err, shared.ErrInsufficientCapacity)
	assert.Equal(t, 2, notifier.calls)
}

func TestPreview(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())
	in := sampleInput()
	p, err := svc.Preview(context.Background(), BuildInput{Sets: in.Sets, DesignNumbers: in.DesignNumbers, GroundColors: in.GroundColors})
	require.NoError(t, err)
	assert.Equal(t, 60, p.TotalPieces)
	require.Len(t, p.Beams, 2)
	assert.Equal(t, BeamPreview{BeamColorID: 1, BeamColorCode: "RED", BeamColorName: "Red", SelectionCount: 2, CalculatedPieces: 40}, p.Beams[0])
	assert.Equal(t, 20, p.Beams[1].CalculatedPieces)
}
