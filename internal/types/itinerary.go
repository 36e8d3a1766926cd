package types

import (
	"time"

	"github.com/google/uuid"
)

type TravelMode string

const (
	TravelModeWalking       TravelMode = "walking"
	TravelModeDriving       TravelMode = "driving"
	TravelModePublicTransit TravelMode = "public_transit"
	TravelModeCycling       TravelMode = "cycling"
)

type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PacePacked   Pace = "packed"
)

type ActivityIntensity string

const (
	IntensityLight    ActivityIntensity = "light"
	IntensityModerate ActivityIntensity = "moderate"
	IntensityIntense  ActivityIntensity = "intense"
)

// TravelerPreferences is stored as a JSONB document on the itinerary row.
type TravelerPreferences struct {
	Pace                     Pace              `json:"pace"`
	ActivityIntensity        ActivityIntensity `json:"activity_intensity"`
	NumberOfTravelers        int               `json:"number_of_travelers"`
	HasChildren              bool              `json:"has_children"`
	HasElderly               bool              `json:"has_elderly"`
	PreferPopularAttractions bool              `json:"prefer_popular_attractions"`
	PreferredCategories      []string          `json:"preferred_categories"`
	AdditionalPreferences    string            `json:"additional_preferences"`
	DailyStart               string            `json:"daily_start,omitempty"` // HH:MM
	DailyEnd                 string            `json:"daily_end,omitempty"`   // HH:MM
}

type Itinerary struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	Destination string              `json:"destination"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	TravelMode  TravelMode          `json:"travel_mode"`
	Budget      *int64              `json:"budget,omitempty"` // minor currency units
	Preferences TravelerPreferences `json:"preferences"`
	Generation  GenerationMetadata  `json:"generation"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CreateItineraryRequest is the inbound trip request. Pointer fields are optional.
type CreateItineraryRequest struct {
	Destination              string            `json:"destination" validate:"required" example:"Lisbon"`
	StartDate                *time.Time        `json:"start_date" validate:"required" example:"2026-05-01T00:00:00Z"`
	EndDate                  *time.Time        `json:"end_date" validate:"required" example:"2026-05-04T00:00:00Z"`
	TravelMode               TravelMode        `json:"travel_mode,omitempty" validate:"omitempty,oneof=walking driving public_transit cycling"`
	Budget                   *int64            `json:"budget,omitempty" validate:"omitempty,gte=0" example:"150000"`
	Pace                     Pace              `json:"pace,omitempty" validate:"omitempty,oneof=relaxed moderate packed"`
	ActivityIntensity        ActivityIntensity `json:"activity_intensity,omitempty" validate:"omitempty,oneof=light moderate intense"`
	NumberOfTravelers        *int              `json:"number_of_travelers,omitempty" validate:"omitempty,gte=1"`
	HasChildren              bool              `json:"has_children,omitempty"`
	HasElderly               bool              `json:"has_elderly,omitempty"`
	PreferPopularAttractions *bool             `json:"prefer_popular_attractions,omitempty"`
	PreferredCategories      []string          `json:"preferred_categories,omitempty" validate:"omitempty,dive,required"`
	AdditionalPreferences    string            `json:"additional_preferences,omitempty" validate:"max=2000"`
	DailyStart               string            `json:"daily_start,omitempty" example:"09:00"`
	DailyEnd                 string            `json:"daily_end,omitempty" example:"20:00"`
}

// TripContext is the fully-defaulted input to recommendation generation.
type TripContext struct {
	Destination              string
	StartDate                time.Time
	EndDate                  time.Time
	StayingDays              int
	Budget                   *int64 // nil when the traveller gave none; zero is a real budget
	TravelMode               TravelMode
	Pace                     Pace
	ActivityIntensity        ActivityIntensity
	NumberOfTravelers        int
	HasChildren              bool
	HasElderly               bool
	PreferPopularAttractions bool
	PreferredCategories      []string
	AdditionalPreferences    string
}

// TripContextFromItinerary resolves every optional field to an explicit value.
func TripContextFromItinerary(it *Itinerary) TripContext {
	tc := TripContext{
		Destination:              it.Destination,
		StartDate:                it.StartDate,
		EndDate:                  it.EndDate,
		StayingDays:              it.Generation.StayingDays,
		TravelMode:               it.TravelMode,
		Pace:                     it.Preferences.Pace,
		ActivityIntensity:        it.Preferences.ActivityIntensity,
		NumberOfTravelers:        it.Preferences.NumberOfTravelers,
		HasChildren:              it.Preferences.HasChildren,
		HasElderly:               it.Preferences.HasElderly,
		PreferPopularAttractions: it.Preferences.PreferPopularAttractions,
		PreferredCategories:      it.Preferences.PreferredCategories,
		AdditionalPreferences:    it.Preferences.AdditionalPreferences,
	}
	if it.Budget != nil {
		budget := *it.Budget
		tc.Budget = &budget
	}
	return tc.WithDefaults()
}

func (tc TripContext) WithDefaults() TripContext {
	if tc.TravelMode == "" {
		tc.TravelMode = TravelModeWalking
	}
	if tc.Pace == "" {
		tc.Pace = PaceModerate
	}
	if tc.ActivityIntensity == "" {
		tc.ActivityIntensity = IntensityModerate
	}
	if tc.NumberOfTravelers < 1 {
		tc.NumberOfTravelers = 1
	}
	if tc.StayingDays < 1 {
		tc.StayingDays = DateSpanDays(tc.StartDate, tc.EndDate)
	}
	if tc.PreferredCategories == nil {
		tc.PreferredCategories = []string{}
	}
	return tc
}

// DateSpanDays counts calendar days between two dates, never less than 1.
func DateSpanDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(e.Sub(s).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// ValidateDailyWindow checks two HH:MM values with start not after end.
func ValidateDailyWindow(start, end string) error {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return NewValidationError("daily_start", "must be HH:MM")
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return NewValidationError("daily_end", "must be HH:MM")
	}
	if s.After(e) {
		return NewValidationError("daily_start", "must not be after daily_end")
	}
	return nil
}
