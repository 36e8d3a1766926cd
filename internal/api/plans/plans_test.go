package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePlan() types.PlanContent {
	p1, p2 := uuid.New(), uuid.New()
	return types.PlanContent{
		Summary: "Two days in Lisbon",
		Days: []types.DayPlan{
			{Date: "2026-05-01", Stops: []types.Stop{
				{Order: 1, PlaceID: &p1, Arrival: "09:00", Departure: "10:30", StayMinutes: 90, Note: "castle",
					Place: &types.PlaceSnapshot{PlaceID: p1, Name: "Castelo", Location: &types.Coordinate{Latitude: 38.71, Longitude: -9.13}, Pinned: true}},
				{Order: 2, StayMinutes: 60, Note: "lunch"},
			}},
			{Date: "2026-05-02", Stops: []types.Stop{
				{Order: 1, PlaceID: &p2, StayMinutes: 45, Place: &types.PlaceSnapshot{PlaceID: p2, Name: "Belem"}},
			}},
		},
	}
}

func TestRepositorySave(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool, testLogger())
	itineraryID, planID := uuid.New(), uuid.New()
	now := time.Now()

	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(itineraryID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(itineraryID))
	pool.ExpectQuery(regexp.QuoteMeta("COALESCE(MAX(version), 0)")).WithArgs(itineraryID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2))
	pool.ExpectExec(regexp.QuoteMeta("UPDATE itinerary_plans SET active = FALSE")).WithArgs(itineraryID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO itinerary_plans")).WithArgs(itineraryID, 3, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(planID, now))
	pool.ExpectCommit()

	plan, err := repo.Save(context.Background(), itineraryID, samplePlan())
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Version)
	assert.True(t, plan.Active)
	assert.Equal(t, planID, plan.ID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositorySaveUnknownItinerary(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(pgx.ErrNoRows)
	pool.ExpectRollback()

	_, err = NewRepository(pool, testLogger()).Save(context.Background(), uuid.New(), samplePlan())
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositorySaveUniqueViolationIsConflict(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	itineraryID := uuid.New()
	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(itineraryID))
	pool.ExpectQuery(regexp.QuoteMeta("COALESCE")).WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(0))
	pool.ExpectExec(regexp.QuoteMeta("UPDATE itinerary_plans")).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO itinerary_plans")).WillReturnError(&pgconn.PgError{Code: "23505"})
	pool.ExpectRollback()

	_, err = NewRepository(pool, testLogger()).Save(context.Background(), itineraryID, samplePlan())
	assert.ErrorIs(t, err, types.ErrPersistenceConflict)
}

func TestRepositoryGetActiveRoundTrip(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	content := samplePlan()
	payload, err := json.Marshal(content)
	require.NoError(t, err)
	itineraryID := uuid.New()

	pool.ExpectQuery(regexp.QuoteMeta("WHERE itinerary_id = $1 AND active")).WithArgs(itineraryID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "itinerary_id", "version", "active", "content", "created_at"}).
			AddRow(uuid.New(), itineraryID, 1, true, payload, time.Now()))

	plan, err := NewRepository(pool, testLogger()).GetActive(context.Background(), itineraryID)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, content, plan.Content)
}

func TestRepositoryGetActiveNone(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery(regexp.QuoteMeta("AND active")).WillReturnError(pgx.ErrNoRows)
	plan, err := NewRepository(pool, testLogger()).GetActive(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, plan)
}

// memRepository widens the window between reading the max version and inserting,
// so unserialized writers would collide.
type memRepository struct {
	mu    sync.Mutex
	plans map[uuid.UUID][]types.StoredPlan
	saves int
}

func newMemRepository() *memRepository {
	return &memRepository{plans: make(map[uuid.UUID][]types.StoredPlan)}
}

func (m *memRepository) Save(_ context.Context, itineraryID uuid.UUID, content types.PlanContent) (*types.StoredPlan, error) {
	m.mu.Lock()
	next := len(m.plans[itineraryID]) + 1
	m.mu.Unlock()

	time.Sleep(time.Millisecond)

	payload, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	var stored types.PlanContent
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	for i := range m.plans[itineraryID] {
		if m.plans[itineraryID][i].Version == next {
			return nil, types.ErrPersistenceConflict
		}
		m.plans[itineraryID][i].Active = false
	}
	plan := types.StoredPlan{ID: uuid.New(), ItineraryID: itineraryID, Version: next, Active: true, Content: stored, CreatedAt: time.Now()}
	m.plans[itineraryID] = append(m.plans[itineraryID], plan)
	return &plan, nil
}

func (m *memRepository) GetActive(_ context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans[itineraryID] {
		if p.Active {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memRepository) GetHistory(_ context.Context, itineraryID uuid.UUID) ([]types.StoredPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]types.StoredPlan(nil), m.plans[itineraryID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func TestConcurrentSavesKeepVersionsMonotonic(t *testing.T) {
	repo := newMemRepository()
	svc := NewServiceImpl(repo, 0, testLogger())
	itineraryID := uuid.New()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := samplePlan()
			content.Summary = fmt.Sprintf("run %d", i)
			if _, err := svc.Save(context.Background(), itineraryID, content); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("save failed: %v", err)
	}

	history, err := svc.GetHistory(context.Background(), itineraryID)
	require.NoError(t, err)
	require.Len(t, history, writers)
	active := 0
	for i, p := range history {
		assert.Equal(t, writers-i, p.Version, "history is newest first with no gaps")
		if p.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.True(t, history[0].Active)
}

func TestSaveThenGetActiveRoundTrip(t *testing.T) {
	svc := NewServiceImpl(newMemRepository(), time.Minute, testLogger())
	itineraryID := uuid.New()

	none, err := svc.GetActive(context.Background(), itineraryID)
	require.NoError(t, err)
	assert.Nil(t, none)

	content := samplePlan()
	saved, err := svc.Save(context.Background(), itineraryID, content)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	active, err := svc.GetActive(context.Background(), itineraryID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, content, active.Content)

	second, err := svc.Save(context.Background(), itineraryID, types.PlanContent{Days: []types.DayPlan{}})
	require.NoError(t, err)
	active, err = svc.GetActive(context.Background(), itineraryID)
	require.NoError(t, err)
	assert.Equal(t, second.Version, active.Version, "cache follows the newest save")
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, itineraryID uuid.UUID, content types.PlanContent) (*types.StoredPlan, error) {
	args := m.Called(ctx, itineraryID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StoredPlan), args.Error(1)
}

func (m *MockRepository) GetActive(ctx context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StoredPlan), args.Error(1)
}

func (m *MockRepository) GetHistory(ctx context.Context, itineraryID uuid.UUID) ([]types.StoredPlan, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.StoredPlan), args.Error(1)
}

func TestSaveRetriesConflicts(t *testing.T) {
	itineraryID := uuid.New()

	t.Run("conflict is absorbed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewServiceImpl(repo, 0, testLogger())
		repo.On("Save", mock.Anything, itineraryID, mock.Anything).Return(nil, fmt.Errorf("x: %w", types.ErrPersistenceConflict)).Once()
		repo.On("Save", mock.Anything, itineraryID, mock.Anything).Return(&types.StoredPlan{Version: 2, Active: true}, nil).Once()

		plan, err := svc.Save(context.Background(), itineraryID, samplePlan())
		require.NoError(t, err)
		assert.Equal(t, 2, plan.Version)
		repo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewServiceImpl(repo, 0, testLogger())
		repo.On("Save", mock.Anything, itineraryID, mock.Anything).Return(nil, errors.New("connection reset")).Once()

		_, err := svc.Save(context.Background(), itineraryID, samplePlan())
		assert.Error(t, err)
		repo.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("gives up after bounded conflicts", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewServiceImpl(repo, 0, testLogger())
		repo.On("Save", mock.Anything, itineraryID, mock.Anything).Return(nil, types.ErrPersistenceConflict)

		_, err := svc.Save(context.Background(), itineraryID, samplePlan())
		assert.Error(t, err)
		repo.AssertNumberOfCalls(t, "Save", maxConflictRetries)
	})
}

// pausedReadRepo stalls the first GetActive after it has read from the store,
// leaving room for a Save to commit a newer version in between.
type pausedReadRepo struct {
	*memRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausedReadRepo) GetActive(ctx context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error) {
	plan, err := p.memRepository.GetActive(ctx, itineraryID)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return plan, err
}

func TestSlowReadDoesNotCacheSupersededPlan(t *testing.T) {
	repo := &pausedReadRepo{memRepository: newMemRepository(), read: make(chan struct{}), release: make(chan struct{})}
	svc := NewServiceImpl(repo, time.Minute, testLogger())
	itineraryID := uuid.New()
	ctx := context.Background()

	// v1 goes straight to the store so the cache starts empty.
	_, err := repo.Save(ctx, itineraryID, types.PlanContent{Summary: "v1", Days: []types.DayPlan{}})
	require.NoError(t, err)

	type result struct {
		plan *types.StoredPlan
		err  error
	}
	done := make(chan result, 1)
	go func() {
		plan, err := svc.GetActive(ctx, itineraryID)
		done <- result{plan, err}
	}()

	<-repo.read
	saved, err := svc.Save(ctx, itineraryID, types.PlanContent{Summary: "v2", Days: []types.DayPlan{}})
	require.NoError(t, err)
	require.Equal(t, 2, saved.Version)
	close(repo.release)

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.plan)
	assert.Equal(t, 2, res.plan.Version, "the newer cached version wins over the slow read")

	active, err := svc.GetActive(ctx, itineraryID)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, "v2", active.Content.Summary)
}
