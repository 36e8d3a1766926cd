package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"latitude 95 rejected", Coordinate{Latitude: 95, Longitude: 10}, true},
		{"near edges accepted", Coordinate{Latitude: -89.9, Longitude: 179.9}, false},
		{"upper bounds inclusive", Coordinate{Latitude: 90, Longitude: 180}, false},
		{"lower bounds inclusive", Coordinate{Latitude: -90, Longitude: -180}, false},
		{"longitude beyond range", Coordinate{Latitude: 0, Longitude: -180.0001}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDateSpanDays(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DateSpanDays(start, start))
	assert.Equal(t, 1, DateSpanDays(start, start.Add(2*time.Hour)))
	assert.Equal(t, 10, DateSpanDays(start, start.AddDate(0, 0, 10)))
}

func TestGenerationMetadataDecode(t *testing.T) {
	t.Run("round trip complete", func(t *testing.T) {
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		m := GenerationMetadata{StayingDays: 3, RecommendedPOICount: 9, Status: GenerationPending}.Complete(7, now)
		raw, err := EncodeGenerationMetadata(m)
		require.NoError(t, err)

		got, err := DecodeGenerationMetadata(raw)
		require.NoError(t, err)
		assert.Equal(t, GenerationComplete, got.Status)
		require.NotNil(t, got.GeneratedPlacesCount)
		assert.Equal(t, 7, *got.GeneratedPlacesCount)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := DecodeGenerationMetadata([]byte(`{"status":"pending","generaton_pending":true}`))
		assert.Error(t, err)
	})

	t.Run("error status requires message", func(t *testing.T) {
		_, err := DecodeGenerationMetadata([]byte(`{"status":"error"}`))
		assert.Error(t, err)
	})

	t.Run("pending with result rejected on encode", func(t *testing.T) {
		n := 1
		_, err := EncodeGenerationMetadata(GenerationMetadata{Status: GenerationPending, GeneratedPlacesCount: &n})
		assert.Error(t, err)
	})
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := NewValidationError("destination", "must not be blank")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "destination: must not be blank", err.Error())
}

func TestTripContextDefaults(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tc := TripContextFromItinerary(&Itinerary{Destination: "Porto", StartDate: start, EndDate: start})
	assert.Equal(t, TravelModeWalking, tc.TravelMode)
	assert.Equal(t, PaceModerate, tc.Pace)
	assert.Equal(t, IntensityModerate, tc.ActivityIntensity)
	assert.Equal(t, 1, tc.NumberOfTravelers)
	assert.Equal(t, 1, tc.StayingDays)
	assert.Nil(t, tc.Budget)

	zero := int64(0)
	tc = TripContextFromItinerary(&Itinerary{Destination: "Porto", StartDate: start, EndDate: start, Budget: &zero})
	require.NotNil(t, tc.Budget)
	assert.Equal(t, int64(0), *tc.Budget)
	zero = 500
	assert.Equal(t, int64(0), *tc.Budget, "trip context must not alias the itinerary budget")
	assert.NotNil(t, tc.PreferredCategories)
}

func TestRawStopDecodesLooseTypes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		placeID   string
		minutes   int
		transport int
	}{
		{name: "float minutes", input: `{"place_id":"a","duration_minutes":90.0}`, placeID: "a", minutes: 90},
		{name: "rounded minutes", input: `{"duration_minutes":44.6,"transport_duration_minutes":"15"}`, minutes: 45, transport: 15},
		{name: "numeric place id kept as text", input: `{"place_id":12,"duration_minutes":30}`, placeID: "12", minutes: 30},
		{name: "null place id", input: `{"place_id":null}`},
		{name: "unreadable minutes become zero", input: `{"place_id":"b","duration_minutes":"an hour"}`, placeID: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stop RawStop
			require.NoError(t, json.Unmarshal([]byte(tt.input), &stop))
			assert.Equal(t, tt.placeID, stop.PlaceID)
			assert.Equal(t, tt.minutes, stop.DurationMinutes)
			assert.Equal(t, tt.transport, stop.TransportDurationMinutes)
		})
	}
}
