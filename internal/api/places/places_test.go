package places

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockPlacesRepository struct {
	mock.Mock
}

func (m *MockPlacesRepository) InsertPlaceWithAssociation(ctx context.Context, itineraryID uuid.UUID, place types.Place) (*types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID, place)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ItineraryPlace), args.Error(1)
}

func (m *MockPlacesRepository) ListAssociations(ctx context.Context, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID, pinnedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryPlace), args.Error(1)
}

func (m *MockPlacesRepository) GetAssociations(ctx context.Context, itineraryID uuid.UUID, placeIDs []uuid.UUID) ([]types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID, placeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryPlace), args.Error(1)
}

func (m *MockPlacesRepository) UpdateInterest(ctx context.Context, itineraryID, placeID uuid.UUID, pinned *bool, note *string) (*types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID, placeID, pinned, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ItineraryPlace), args.Error(1)
}

type MockOwnershipChecker struct {
	mock.Mock
}

func (m *MockOwnershipChecker) IsOwner(ctx context.Context, itineraryID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, itineraryID, userID)
	return args.Bool(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidate(name string) types.CandidatePOI {
	return types.CandidatePOI{Name: name, Address: "addr", Description: "desc", Location: types.Coordinate{Latitude: 1, Longitude: 2}}
}

func TestMaterialize(t *testing.T) {
	ctx := context.Background()
	itineraryID := uuid.New()

	t.Run("skips failing candidates", func(t *testing.T) {
		repo := new(MockPlacesRepository)
		m := NewMaterializer(repo, testLogger())

		matchName := func(name string) interface{} {
			return mock.MatchedBy(func(p types.Place) bool { return p.Name == name && p.Source == types.PlaceSourceModelGenerated })
		}
		repo.On("InsertPlaceWithAssociation", mock.Anything, itineraryID, matchName("A")).
			Return(&types.ItineraryPlace{ItineraryID: itineraryID, PlaceID: uuid.New(), Name: "A"}, nil).Once()
		repo.On("InsertPlaceWithAssociation", mock.Anything, itineraryID, matchName("B")).
			Return(nil, errors.New("constraint violation")).Once()
		repo.On("InsertPlaceWithAssociation", mock.Anything, itineraryID, matchName("A")).
			Return(&types.ItineraryPlace{ItineraryID: itineraryID, PlaceID: uuid.New(), Name: "A"}, nil).Once()

		saved, err := m.Materialize(ctx, itineraryID, []types.CandidatePOI{candidate("A"), candidate("B"), candidate("A")})
		require.NoError(t, err)
		assert.Len(t, saved, 2, "duplicates by name are stored as distinct places")
		assert.NotEqual(t, saved[0].PlaceID, saved[1].PlaceID)
		repo.AssertExpectations(t)
	})

	t.Run("fails when nothing is stored", func(t *testing.T) {
		repo := new(MockPlacesRepository)
		m := NewMaterializer(repo, testLogger())
		repo.On("InsertPlaceWithAssociation", mock.Anything, itineraryID, mock.Anything).Return(nil, errors.New("db down")).Twice()

		saved, err := m.Materialize(ctx, itineraryID, []types.CandidatePOI{candidate("A"), candidate("B")})
		assert.Error(t, err)
		assert.Nil(t, saved)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		repo := new(MockPlacesRepository)
		saved, err := NewMaterializer(repo, testLogger()).Materialize(ctx, itineraryID, nil)
		require.NoError(t, err)
		assert.Empty(t, saved)
		repo.AssertNotCalled(t, "InsertPlaceWithAssociation", mock.Anything, mock.Anything, mock.Anything)
	})
}

func setupPlacesServiceTest() (*ServiceImpl, *MockPlacesRepository, *MockOwnershipChecker) {
	repo := new(MockPlacesRepository)
	owners := new(MockOwnershipChecker)
	return NewServiceImpl(repo, owners, testLogger()), repo, owners
}

func TestSetInterest(t *testing.T) {
	ctx := context.Background()
	userID, itineraryID, placeID := uuid.New(), uuid.New(), uuid.New()
	pinned := true

	t.Run("pins an owned place", func(t *testing.T) {
		s, repo, owners := setupPlacesServiceTest()
		owners.On("IsOwner", mock.Anything, itineraryID, userID).Return(true, nil).Once()
		repo.On("UpdateInterest", mock.Anything, itineraryID, placeID, &pinned, (*string)(nil)).
			Return(&types.ItineraryPlace{ItineraryID: itineraryID, PlaceID: placeID, Pinned: true}, nil).Once()

		ip, err := s.SetInterest(ctx, userID, itineraryID, placeID, types.SetInterestRequest{Pinned: &pinned})
		require.NoError(t, err)
		assert.True(t, ip.Pinned)
		repo.AssertExpectations(t)
		owners.AssertExpectations(t)
	})

	t.Run("not owner is forbidden", func(t *testing.T) {
		s, repo, owners := setupPlacesServiceTest()
		owners.On("IsOwner", mock.Anything, itineraryID, userID).Return(false, nil).Once()

		_, err := s.SetInterest(ctx, userID, itineraryID, placeID, types.SetInterestRequest{Pinned: &pinned})
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "UpdateInterest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty update rejected", func(t *testing.T) {
		s, _, owners := setupPlacesServiceTest()
		_, err := s.SetInterest(ctx, userID, itineraryID, placeID, types.SetInterestRequest{})
		assert.ErrorIs(t, err, types.ErrValidation)
		owners.AssertNotCalled(t, "IsOwner", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing itinerary", func(t *testing.T) {
		s, _, owners := setupPlacesServiceTest()
		owners.On("IsOwner", mock.Anything, itineraryID, userID).Return(false, types.ErrNotFound).Once()
		_, err := s.SetInterest(ctx, userID, itineraryID, placeID, types.SetInterestRequest{Pinned: &pinned})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestListPlacesPinnedOnly(t *testing.T) {
	s, repo, owners := setupPlacesServiceTest()
	userID, itineraryID := uuid.New(), uuid.New()
	owners.On("IsOwner", mock.Anything, itineraryID, userID).Return(true, nil).Once()
	repo.On("ListAssociations", mock.Anything, itineraryID, true).
		Return([]types.ItineraryPlace{{PlaceID: uuid.New(), Pinned: true}}, nil).Once()

	got, err := s.ListPlaces(context.Background(), userID, itineraryID, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

func TestRepositoryInsertPlaceWithAssociation(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool, testLogger())
	itineraryID, placeID := uuid.New(), uuid.New()
	now := time.Now()

	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO places")).
		WithArgs("Belem Tower", "Av. Brasilia", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), types.PlaceSourceModelGenerated).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(placeID, now))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO itinerary_places")).
		WithArgs(itineraryID, placeID, "Belem Tower", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"pinned", "added_at"}).AddRow(false, now))
	pool.ExpectCommit()

	place := candidate("Belem Tower").ToPlace()
	place.Address = "Av. Brasilia"
	assoc, err := repo.InsertPlaceWithAssociation(context.Background(), itineraryID, place)
	require.NoError(t, err)
	assert.Equal(t, placeID, assoc.PlaceID)
	assert.Equal(t, itineraryID, assoc.ItineraryID)
	assert.False(t, assoc.Pinned)
	require.NotNil(t, assoc.Place)
	assert.Equal(t, placeID, assoc.Place.ID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryInsertRollsBackOnAssociationFailure(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool, testLogger())
	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO places")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO itinerary_places")).
		WillReturnError(errors.New("fk violation"))
	pool.ExpectRollback()

	_, err = repo.InsertPlaceWithAssociation(context.Background(), uuid.New(), candidate("A").ToPlace())
	assert.Error(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryUpdateInterestNotFound(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool, testLogger())
	pool.ExpectQuery(regexp.QuoteMeta("UPDATE itinerary_places")).WillReturnError(pgx.ErrNoRows)

	pinned := false
	_, err = repo.UpdateInterest(context.Background(), uuid.New(), uuid.New(), &pinned, nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

type MockService struct {
	mock.Mock
}

func (m *MockService) ListPlaces(ctx context.Context, userID, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error) {
	args := m.Called(ctx, userID, itineraryID, pinnedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryPlace), args.Error(1)
}

func (m *MockService) SetInterest(ctx context.Context, userID, itineraryID, placeID uuid.UUID, req types.SetInterestRequest) (*types.ItineraryPlace, error) {
	args := m.Called(ctx, userID, itineraryID, placeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ItineraryPlace), args.Error(1)
}

func TestHandlerSetInterest(t *testing.T) {
	svc := new(MockService)
	h := NewHandlerImpl(svc, testLogger())
	r := chi.NewRouter()
	r.Put("/itineraries/{itineraryID}/places/{placeID}/interest", h.SetInterest)

	userID, itineraryID, placeID := uuid.New(), uuid.New(), uuid.New()
	svc.On("SetInterest", mock.Anything, userID, itineraryID, placeID, mock.MatchedBy(func(req types.SetInterestRequest) bool {
		return req.Pinned != nil && *req.Pinned
	})).Return(nil, types.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodPut, "/itineraries/"+itineraryID.String()+"/places/"+placeID.String()+"/interest", strings.NewReader(`{"pinned":true}`))
	req = req.WithContext(auth.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandlerListPlacesBadQuery(t *testing.T) {
	svc := new(MockService)
	h := NewHandlerImpl(svc, testLogger())
	r := chi.NewRouter()
	r.Get("/itineraries/{itineraryID}/places", h.ListPlaces)

	req := httptest.NewRequest(http.MethodGet, "/itineraries/"+uuid.NewString()+"/places?pinned=maybe", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ListPlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
