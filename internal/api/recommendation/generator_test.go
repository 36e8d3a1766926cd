package recommendation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/retry"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Generate(ctx context.Context, prompt generativeAI.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func setupGeneratorTest() (*GeneratorImpl, *MockGateway) {
	gw := new(MockGateway)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGenerator(gw, retry.Policy{MaxAttempts: MaxAttempts, Backoff: retry.NoBackoff}, logger), gw
}

func testTrip() types.TripContext {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return types.TripContext{Destination: "Lisbon", StartDate: start, EndDate: start.AddDate(0, 0, 3)}
}

func promptNamed(name string) interface{} {
	return mock.MatchedBy(func(p generativeAI.Prompt) bool { return p.Name == name })
}

const onePlace = `{"places":[{"name":"Belem Tower","address":"Av. Brasilia","description":"Fortified tower","location":{"lat":38.6916,"lng":-9.2160}}]}`

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("fails twice then succeeds on third attempt without a fourth call", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		gw.On("Generate", mock.Anything, promptNamed("poi_recommendation")).Return("", errors.New("backend timeout")).Once()
		gw.On("Generate", mock.Anything, promptNamed("poi_recommendation_retry")).Return("not json at all", nil).Once()
		gw.On("Generate", mock.Anything, promptNamed("poi_recommendation_retry")).Return(onePlace, nil).Once()

		places, outcome, err := g.Generate(ctx, testTrip(), 5)

		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "Belem Tower", places[0].Name)
		assert.Equal(t, 3, outcome.Attempts)
		assert.Len(t, outcome.Errors, 2)
		gw.AssertExpectations(t)
		gw.AssertNumberOfCalls(t, "Generate", 3)
	})

	t.Run("retry prompt carries previous errors", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		gw.On("Generate", mock.Anything, promptNamed("poi_recommendation")).Return("", errors.New("quota exceeded")).Once()
		gw.On("Generate", mock.Anything, mock.MatchedBy(func(p generativeAI.Prompt) bool {
			return p.Name == "poi_recommendation_retry" && strings.Contains(p.User, "quota exceeded")
		})).Return(onePlace, nil).Once()

		_, _, err := g.Generate(ctx, testTrip(), 5)
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("partial success keeps valid items", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		resp := `{"places":[
			{"name":"Valid","address":"A","description":"D","location":{"lat":-89.9,"lng":179.9}},
			{"name":"North of the pole","address":"A","description":"D","location":{"lat":95,"lng":0}},
			{"name":"","address":"A","description":"D","location":{"lat":1,"lng":1}},
			{"name":"No location","address":"A","description":"D"},
			{"name":"Blank address","address":"   ","description":"D","location":{"lat":1,"lng":1}}
		]}`
		gw.On("Generate", mock.Anything, mock.Anything).Return(resp, nil).Once()

		places, outcome, err := g.Generate(ctx, testTrip(), 10)
		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "Valid", places[0].Name)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Equal(t, 4, outcome.Rejected)
		gw.AssertNumberOfCalls(t, "Generate", 1)
	})

	t.Run("mistyped item is rejected alone", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		resp := `{"places":[
			{"name":"Belem Tower","address":"Av. Brasilia","description":"Fortified tower","location":{"lat":38.6916,"lng":-9.2160}},
			{"name":"Alfama","address":"Lisbon","description":"Old quarter","location":{"lat":"38.7","lng":-9.13}},
			null,
			"just a string"
		]}`
		gw.On("Generate", mock.Anything, mock.Anything).Return(resp, nil).Once()

		places, outcome, err := g.Generate(ctx, testTrip(), 5)
		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "Belem Tower", places[0].Name)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Equal(t, 3, outcome.Rejected)
		require.Len(t, outcome.Errors, 1)
		assert.Contains(t, outcome.Errors[0], "item 2: location.lat must be a number")
		assert.Contains(t, outcome.Errors[0], "item 3: item is null")
		assert.Contains(t, outcome.Errors[0], "item 4: item must be an object")
		gw.AssertNumberOfCalls(t, "Generate", 1)
	})

	t.Run("boundary coordinates accepted", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		resp := `{"places":[
			{"name":"N","address":"A","description":"D","location":{"lat":90,"lng":180}},
			{"name":"S","address":"A","description":"D","location":{"lat":-90,"lng":-180}}
		]}`
		gw.On("Generate", mock.Anything, mock.Anything).Return(resp, nil).Once()

		places, _, err := g.Generate(ctx, testTrip(), 10)
		require.NoError(t, err)
		assert.Len(t, places, 2)
	})

	t.Run("zero valid items on every attempt is exhaustion", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		gw.On("Generate", mock.Anything, mock.Anything).
			Return(`{"places":[{"name":"Bad","address":"A","description":"D","location":{"lat":95,"lng":0}}]}`, nil).Times(3)

		places, outcome, err := g.Generate(ctx, testTrip(), 3)
		require.Error(t, err)
		assert.Nil(t, places)
		assert.ErrorIs(t, err, types.ErrGenerationExhausted)
		assert.Contains(t, err.Error(), "latitude 95")
		assert.Equal(t, 3, outcome.Attempts)
		gw.AssertNumberOfCalls(t, "Generate", 3)
	})

	t.Run("truncates to max count", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		resp := `{"places":[
			{"name":"A","address":"A","description":"D","location":{"lat":1,"lng":1}},
			{"name":"B","address":"A","description":"D","location":{"lat":1,"lng":1}},
			{"name":"C","address":"A","description":"D","location":{"lat":1,"lng":1}}
		]}`
		gw.On("Generate", mock.Anything, mock.Anything).Return(resp, nil).Once()

		places, _, err := g.Generate(ctx, testTrip(), 2)
		require.NoError(t, err)
		assert.Len(t, places, 2)
	})

	t.Run("blank destination rejected before any call", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		tc := testTrip()
		tc.Destination = "  "

		_, _, err := g.Generate(ctx, tc, 3)
		assert.ErrorIs(t, err, types.ErrValidation)
		gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("max count below one rejected", func(t *testing.T) {
		g, gw := setupGeneratorTest()
		_, _, err := g.Generate(ctx, testTrip(), 0)
		assert.ErrorIs(t, err, types.ErrValidation)
		gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})
}

func TestPromptsResolveDefaults(t *testing.T) {
	tc := testTrip().WithDefaults()
	p := initialPrompt(tc, 4)
	assert.Contains(t, p.User, "Lisbon")
	assert.Contains(t, p.User, "Budget: not specified")
	assert.Contains(t, p.User, "Preferred categories: any")
	assert.Contains(t, p.User, "Travel mode: walking")
	assert.NotContains(t, p.User, "%!")
}

func TestPromptsKeepZeroBudget(t *testing.T) {
	tc := testTrip().WithDefaults()
	zero := int64(0)
	tc.Budget = &zero
	assert.Contains(t, initialPrompt(tc, 4).User, "Budget: 0.00 (minor units: 0)")

	amount := int64(150050)
	tc.Budget = &amount
	assert.Contains(t, initialPrompt(tc, 4).User, "Budget: 1500.50 (minor units: 150050)")
}
