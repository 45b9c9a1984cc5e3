package lots

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/design/designtest"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/shared"
)

type mockRepository struct {
	designs    *designtest.Store
	lots       map[int64]LotWithDetails
	nextID     int64
	failInsert error
}

type mockTxRepo struct {
	repo    *mockRepository
	pending map[int64]LotWithDetails
}

func newMockRepository() *mockRepository {
	return &mockRepository{designs: designtest.NewStore(), lots: map[int64]LotWithDetails{}}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := m.designs.Snapshot()
	nextID := m.nextID
	tx := &mockTxRepo{repo: m, pending: map[int64]LotWithDetails{}}
	if err := fn(ctx, tx); err != nil {
		m.designs.Restore(snap)
		m.nextID = nextID
		return err
	}
	for id, l := range tx.pending {
		m.lots[id] = l
	}
	return nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (LotWithDetails, error) {
	l, ok := m.lots[id]
	if !ok || !l.IsActive {
		return LotWithDetails{}, shared.NotFound("lot", id)
	}
	return l, nil
}

func (m *mockRepository) List(_ context.Context, f ListFilters) ([]LotWithDetails, int, error) {
	var out []LotWithDetails
	for _, l := range m.lots {
		if l.IsActive && (f.Status == "" || l.Status == f.Status) {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Designs() design.Store { return m.designs }

func (tx *mockTxRepo) InsertLot(_ context.Context, lot Lot) (Lot, error) {
	if tx.repo.failInsert != nil {
		err := tx.repo.failInsert
		tx.repo.failInsert = nil
		return Lot{}, err
	}
	for _, l := range tx.repo.lots {
		if l.IsActive && l.LotNumber == lot.LotNumber {
			return Lot{}, shared.ErrDuplicate
		}
	}
	tx.repo.nextID++
	lot.ID = tx.repo.nextID
	lot.IsActive = true
	tx.pending[lot.ID] = LotWithDetails{Lot: lot}
	return lot, nil
}

func (tx *mockTxRepo) InsertAllocations(_ context.Context, lotID int64, allocations []Allocation) ([]Allocation, error) {
	l := tx.pending[lotID]
	for i := range allocations {
		allocations[i].ID = int64(i + 1)
		allocations[i].LotID = lotID
	}
	l.Allocations = allocations
	tx.pending[lotID] = l
	return allocations, nil
}

func (tx *mockTxRepo) UpdateLot(_ context.Context, id int64, patch UpdateLotInput) (Lot, error) {
	l, ok := tx.repo.lots[id]
	if !ok || !l.IsActive {
		return Lot{}, shared.NotFound("lot", id)
	}
	if patch.Status != nil {
		l.Status = *patch.Status
	}
	if patch.BillNumber != nil {
		l.BillNumber = *patch.BillNumber
	}
	if patch.ActualPieces != nil {
		l.ActualPieces = patch.ActualPieces
	}
	if patch.DeliveryDate != nil {
		l.DeliveryDate = patch.DeliveryDate
	}
	if patch.Notes != nil {
		l.Notes = *patch.Notes
	}
	tx.pending[id] = l
	return l.Lot, nil
}

func (tx *mockTxRepo) Deactivate(_ context.Context, id int64) error {
	l, ok := tx.repo.lots[id]
	if !ok || !l.IsActive {
		return shared.NotFound("lot", id)
	}
	l.IsActive = false
	tx.pending[id] = l
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

type memoryKeys struct{ keys map[string]bool }

func (m *memoryKeys) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryKeys) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type observerSpy struct{ outcomes []string }

func (o *observerSpy) ObserveAllocation(outcome string, _ int) {
	o.outcomes = append(o.outcomes, outcome)
}

type auditSpy struct{ logs []shared.AuditLog }

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fixture struct {
	repo     *mockRepository
	svc      *Service
	audit    *auditSpy
	keys     *memoryKeys
	observer *observerSpy
}

// newFixture seeds order 1 with D1 (10 sets) and D2 (5 sets), each woven on
// beam 1 twice and beam 2 once.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepository()
	repo.designs.SetColor(1, "RED", "Red")
	repo.designs.SetColor(2, "BLU", "Blue")
	ledger := design.NewLedger(repo.designs, nil)
	ctx := context.Background()
	for d, sets := range map[string]int{"D1": 10, "D2": 5} {
		_, err := ledger.Seed(ctx, 1, d, sets)
		require.NoError(t, err)
		_, err = ledger.SeedBeam(ctx, 1, d, 1, 2)
		require.NoError(t, err)
		_, err = ledger.SeedBeam(ctx, 1, d, 2, 1)
		require.NoError(t, err)
	}

	f := &fixture{repo: repo, audit: &auditSpy{}, keys: &memoryKeys{keys: map[string]bool{}}, observer: &observerSpy{}}
	f.svc = NewService(repo, fakeMaster{}, f.audit, f.keys, nil)
	f.svc.SetObserver(f.observer)
	f.svc.WithNow(func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) })
	return f
}

func (f *fixture) remaining(t *testing.T, d string) int {
	t.Helper()
	row, ok := f.repo.designs.Row(1, d)
	require.True(t, ok)
	return row.RemainingSets
}

func header(number string) Header {
	return Header{PartyID: 1, QualityID: 1, LotNumber: number}
}

func TestCreateLotAllocatesEveryDesign(t *testing.T) {
	f := newFixture(t)

	lot, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header: header("L-001"),
		Allocations: []AllocationRequest{
			{OrderID: 1, DesignNumber: "d2", Sets: 2},
			{OrderID: 1, DesignNumber: "D1", Sets: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, f.remaining(t, "D1"))
	assert.Equal(t, 3, f.remaining(t, "D2"))
	assert.Equal(t, 15, lot.TotalPieces)
	assert.Equal(t, StatusPending, lot.Status)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), lot.LotDate)
	assert.Equal(t, "Acme", lot.PartyName)

	require.Len(t, lot.Allocations, 2)
	first := lot.Allocations[0]
	assert.Equal(t, "D1", first.DesignNumber)
	assert.Equal(t, 9, first.Pieces)
	require.Len(t, first.BeamPieces, 2)
	assert.Equal(t, "RED", first.BeamPieces[0].BeamColorCode)
	assert.Equal(t, 6, first.BeamPieces[0].Pieces)
	assert.Equal(t, 3, first.BeamPieces[1].Pieces)
	assert.Equal(t, 6, lot.Allocations[1].Pieces)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "lot", f.audit.logs[0].Entity)
	assert.Equal(t, []string{OutcomeAllocated}, f.observer.outcomes)
}

func TestCreateLotIsAllOrNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header: header("L-002"),
		Allocations: []AllocationRequest{
			{OrderID: 1, DesignNumber: "D1", Sets: 4},
			{OrderID: 1, DesignNumber: "D2", Sets: 100},
		},
	})
	require.Error(t, err)
	var capErr *shared.InsufficientCapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "D2", capErr.DesignNumber)
	assert.Equal(t, 100, capErr.Requested)
	assert.Equal(t, 5, capErr.Available)

	assert.Equal(t, 10, f.remaining(t, "D1"))
	assert.Equal(t, 5, f.remaining(t, "D2"))
	assert.Empty(t, f.repo.lots)
	assert.Equal(t, 0, f.repo.designs.Decrements)
	assert.Equal(t, []string{OutcomeInsufficient}, f.observer.outcomes)
}

func TestCreateLotRollsBackLedgerWhenLotInsertFails(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsert = shared.NewPersistenceError("insert lot", errors.New("connection reset"))

	_, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header:      header("L-003"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: 4}},
	})
	require.ErrorIs(t, err, shared.ErrPersistence)
	assert.Equal(t, 10, f.remaining(t, "D1"))
	assert.Empty(t, f.repo.lots)
	assert.Equal(t, []string{OutcomeFailed}, f.observer.outcomes)
}

func TestCreateLotValidation(t *testing.T) {
	f := newFixture(t)
	one := []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: 1}}

	cases := map[string]CreateLotInput{
		"no allocations":   {Header: header("L-9")},
		"duplicate design": {Header: header("L-9"), Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "d1", Sets: 1}, {OrderID: 1, DesignNumber: " D1 ", Sets: 2}}},
		"zero sets":        {Header: header("L-9"), Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1"}}},
		"missing number":   {Header: header("  "), Allocations: one},
		"bad status":       {Header: Header{PartyID: 1, QualityID: 1, LotNumber: "L-9", Status: "SHIPPED"}, Allocations: one},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateLot(context.Background(), in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	assert.Equal(t, 10, f.remaining(t, "D1"))
}

func TestCreateLotUnknownDesign(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header:      header("L-4"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D9", Sets: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateLotRejectsDuplicateLotNumber(t *testing.T) {
	f := newFixture(t)
	in := CreateLotInput{Header: header("L-5"), Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: 1}}}
	_, err := f.svc.CreateLot(context.Background(), in)
	require.NoError(t, err)

	_, err = f.svc.CreateLot(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Equal(t, 9, f.remaining(t, "D1"))
}

func TestCreateLotHonoursIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	h := header("L-6")
	h.IdempotencyKey = "req-42"

	_, err := f.svc.CreateLot(context.Background(), CreateLotInput{Header: h, Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D2", Sets: 50}}})
	require.ErrorIs(t, err, shared.ErrInsufficientCapacity)
	assert.Empty(t, f.keys.keys, "failed attempt releases its key")

	_, err = f.svc.CreateLot(context.Background(), CreateLotInput{Header: h, Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D2", Sets: 1}}})
	require.NoError(t, err)

	h.LotNumber = "L-7"
	_, err = f.svc.CreateLot(context.Background(), CreateLotInput{Header: h, Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D2", Sets: 1}}})
	require.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Equal(t, 4, f.remaining(t, "D2"))
}

func TestUpdateLotLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	lot, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header:      header("L-8"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: 3}},
	})
	require.NoError(t, err)
	before := f.repo.designs.Snapshot()
	decrements := f.repo.designs.Decrements

	delivered := StatusDelivered
	bill := " B-77 "
	updated, err := f.svc.UpdateLot(context.Background(), lot.ID, UpdateLotInput{Status: &delivered, BillNumber: &bill})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, updated.Status)
	assert.Equal(t, "B-77", updated.BillNumber)

	assert.Equal(t, before, f.repo.designs.Snapshot())
	assert.Equal(t, decrements, f.repo.designs.Decrements)
	assert.Equal(t, 7, f.remaining(t, "D1"))
}

func TestUpdateLotValidation(t *testing.T) {
	f := newFixture(t)
	bad := Status("LOST")
	negative := -1

	_, err := f.svc.UpdateLot(context.Background(), 1, UpdateLotInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.UpdateLot(context.Background(), 1, UpdateLotInput{Status: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.UpdateLot(context.Background(), 1, UpdateLotInput{ActualPieces: &negative})
	require.ErrorIs(t, err, shared.ErrValidation)

	delivered := StatusDelivered
	_, err = f.svc.UpdateLot(context.Background(), 99, UpdateLotInput{Status: &delivered})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteLotKeepsSetsAllocated(t *testing.T) {
	f := newFixture(t)
	lot, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		Header:      header("L-10"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteLot(context.Background(), lot.ID))
	assert.Equal(t, 7, f.remaining(t, "D1"))

	_, err = f.svc.Get(context.Background(), lot.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteLot(context.Background(), lot.ID), shared.ErrNotFound)
}

func TestCreateLotForOrderTakesEverythingLeft(t *testing.T) {
	f := newFixture(t)

	lot, err := f.svc.CreateLotForOrder(context.Background(), header("L-11"), 1, 0)
	require.NoError(t, err)
	assert.Len(t, lot.Allocations, 2)
	assert.Equal(t, 45, lot.TotalPieces)
	assert.Equal(t, 0, f.remaining(t, "D1"))
	assert.Equal(t, 0, f.remaining(t, "D2"))

	_, err = f.svc.CreateLotForOrder(context.Background(), header("L-12"), 1, 0)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateLotForOrder(context.Background(), header("L-13"), 42, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateLotForDesign(t *testing.T) {
	f := newFixture(t)

	lot, err := f.svc.CreateLotForDesign(context.Background(), header("L-14"), 1, "d2", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, lot.Allocations[0].AllocatedSets)
	assert.Equal(t, 0, f.remaining(t, "D2"))

	_, err = f.svc.CreateLotForDesign(context.Background(), header("L-15"), 1, "D2", 1)
	require.ErrorIs(t, err, shared.ErrInsufficientCapacity)
}

func TestAllocatePiecesConvertsToSets(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.AllocatePieces(context.Background(), header("L-16"), 1, "D1", 9)
	require.NoError(t, err)
	assert.Equal(t, 3, out.PiecesPerSet)
	assert.Equal(t, 3, out.Sets)
	require.Len(t, out.Breakdown, 2)
	assert.Equal(t, 6, out.Breakdown[0].Pieces)
	assert.Equal(t, 3, out.Breakdown[1].Pieces)
	assert.Equal(t, 9, out.Lot.TotalPieces)
	assert.Equal(t, 7, f.remaining(t, "D1"))

	_, err = f.svc.AllocatePieces(context.Background(), header("L-17"), 1, "D1", 10)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.AllocatePieces(context.Background(), header("L-17"), 1, "D7", 3)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerReportsInsufficientCapacity(t *testing.T) {
	f := newFixture(t)
	router := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(router)

	body := `{"party_id":1,"quality_id":1,"lot_number":"L-20","allocations":[{"order_id":1,"design_number":"D2","sets":6}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Extensions map[string]any `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.EqualValues(t, 5, problem.Extensions["available"])
	assert.EqualValues(t, 6, problem.Extensions["requested"])
	assert.Equal(t, 5, f.remaining(t, "D2"))
}

func TestHandlerLotLifecycle(t *testing.T) {
	f := newFixture(t)
	router := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(router)

	body := `{"party_id":1,"quality_id":1,"lot_number":"L-21","lot_date":"2026-10-01","allocations":[{"order_id":1,"design_number":"D1","sets":2}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created LotWithDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 6, created.TotalPieces)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/1", strings.NewReader(`{"status":"COMPLETED"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"COMPLETED"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/1", strings.NewReader(`{"status":"LOST"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLotRejectsOversizedQuantities(t *testing.T) {
	f := newFixture(t)
	ledger := design.NewLedger(f.repo.designs, nil)
	ctx := context.Background()
	_, err := ledger.Seed(ctx, 1, "D3", design.MaxQuantity)
	require.NoError(t, err)
	_, err = ledger.SeedBeam(ctx, 1, "D3", 1, 3)
	require.NoError(t, err)

	_, err = f.svc.CreateLot(ctx, CreateLotInput{
		Header:      header("L-20"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D1", Sets: design.MaxQuantity + 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateLot(ctx, CreateLotInput{
		Header:      header("L-21"),
		Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D3", Sets: design.MaxQuantity / 2}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, design.MaxQuantity, f.remaining(t, "D3"))
	assert.Empty(t, f.repo.lots)

	_, err = f.svc.AllocatePieces(ctx, header("L-22"), 1, "D1", design.MaxQuantity+1)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, 10, f.remaining(t, "D1"))
}

// strictKeys refuses work on a finished context, like a pgx-backed store.
type strictKeys struct{ memoryKeys }

func (k *strictKeys) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.memoryKeys.Delete(ctx, key)
}

func TestFailedLotReleasesKeyAfterClientLeaves(t *testing.T) {
	f := newFixture(t)
	keys := &strictKeys{memoryKeys{keys: map[string]bool{}}}
	svc := NewService(f.repo, fakeMaster{}, f.audit, keys, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := header("L-23")
	h.IdempotencyKey = "req-77"
	_, err := svc.CreateLot(ctx, CreateLotInput{Header: h, Allocations: []AllocationRequest{{OrderID: 1, DesignNumber: "D2", Sets: 50}}})
	require.ErrorIs(t, err, shared.ErrInsufficientCapacity)
	assert.Empty(t, keys.keys)
}

func TestHeaderRejectsUnparseableDates(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	_, err := headerRequest{PartyID: 1, QualityID: 1, LotNumber: "L-24", LotDate: "17/10/2026"}.header(r)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = headerRequest{PartyID: 1, QualityID: 1, LotNumber: "L-24", DeliveryDate: "2026-02-30"}.header(r)
	require.ErrorIs(t, err, shared.ErrValidation)

	h, err := headerRequest{PartyID: 1, QualityID: 1, LotNumber: "L-24", LotDate: "2026-10-01"}.header(r)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), h.LotDate)
}

func TestHandlerRejectsSetsBeyondColumnRange(t *testing.T) {
	f := newFixture(t)
	router := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(router)

	body := `{"party_id":1,"quality_id":1,"lot_number":"L-25","allocations":[{"order_id":1,"design_number":"D1","sets":2147483648}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 10, f.remaining(t, "D1"))
}
