package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceSnapshot is the denormalized place attached to a stop for output.
type PlaceSnapshot struct {
	PlaceID     uuid.UUID   `json:"place_id"`
	Name        string      `json:"name"`
	Address     string      `json:"address,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    *Coordinate `json:"location,omitempty"`
	Pinned      bool        `json:"pinned"`
	Note        string      `json:"note,omitempty"`
}

// Stop is one scheduled entry in a day. A nil PlaceID marks a non-POI entry such as a meal break.
type Stop struct {
	Order       int            `json:"order"`
	PlaceID     *uuid.UUID     `json:"place_id"`
	Arrival     string         `json:"arrival_local,omitempty"`
	Departure   string         `json:"depart_local,omitempty"`
	StayMinutes int            `json:"stay_minutes"`
	Note        string         `json:"note,omitempty"`
	Place       *PlaceSnapshot `json:"place"`
}

type DayPlan struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Summary string `json:"summary,omitempty"`
	Stops   []Stop `json:"stops"`
}

type PlanContent struct {
	Summary string    `json:"summary,omitempty"`
	Days    []DayPlan `json:"days"`
}

// StopCount returns the number of stops across every day.
func (p PlanContent) StopCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Stops)
	}
	return n
}

type StoredPlan struct {
	ID          uuid.UUID   `json:"id"`
	ItineraryID uuid.UUID   `json:"itinerary_id"`
	Version     int         `json:"version"`
	Active      bool        `json:"active"`
	Content     PlanContent `json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SynthesizePlanRequest carries optional overrides for a planning run.
type SynthesizePlanRequest struct {
	PlaceIDs   []uuid.UUID `json:"interest_place_ids,omitempty"`
	TravelMode TravelMode  `json:"travel_mode,omitempty" validate:"omitempty,oneof=walking driving public_transit cycling"`
	DailyStart string      `json:"daily_start,omitempty" example:"09:00"`
	DailyEnd   string      `json:"daily_end,omitempty" example:"20:00"`
}

// PlanRequest is what the day-plan gateway receives. Every field is resolved.
type PlanRequest struct {
	ItineraryID           string      `json:"itinerary_id"`
	Destination           string      `json:"destination"`
	StartDate             string      `json:"start_date"`
	EndDate               string      `json:"end_date"`
	TravelMode            TravelMode  `json:"travel_mode"`
	Budget                *int64      `json:"budget,omitempty"`
	DailyStart            string      `json:"daily_start"`
	DailyEnd              string      `json:"daily_end"`
	Pace                  Pace        `json:"pace"`
	NumberOfTravelers     int         `json:"number_of_travelers"`
	AdditionalPreferences string      `json:"additional_preferences"`
	Places                []PlanPlace `json:"places"`
}

type PlanPlace struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	Pinned      bool    `json:"pinned"`
	Note        string  `json:"note"`
}

// RawPlan is the untrusted plan shape returned by a day-plan gateway.
type RawPlan struct {
	Summary string   `json:"summary"`
	Days    []RawDay `json:"days"`
}

type RawDay struct {
	Date    string    `json:"date"`
	Summary string    `json:"summary"`
	Stops   []RawStop `json:"stops"`
}

type RawStop struct {
	PlaceID                  string `json:"place_id"`
	PlaceName                string `json:"place_name"`
	ArrivalTime              string `json:"arrival_time"`
	DepartureTime            string `json:"departure_time"`
	DurationMinutes          int    `json:"duration_minutes"`
	Activity                 string `json:"activity"`
	TransportMode            string `json:"transport_mode"`
	TransportDurationMinutes int    `json:"transport_duration_minutes"`
}

// UnmarshalJSON tolerates the loose typing model output tends to have: minutes
// may come as 90.0 or "90" and place ids as numbers. A place id that is not a
// string is kept as its raw text so later id parsing can reject it.
func (s *RawStop) UnmarshalJSON(data []byte) error {
	var aux struct {
		PlaceID                  json.RawMessage `json:"place_id"`
		PlaceName                string          `json:"place_name"`
		ArrivalTime              string          `json:"arrival_time"`
		DepartureTime            string          `json:"departure_time"`
		DurationMinutes          json.RawMessage `json:"duration_minutes"`
		Activity                 string          `json:"activity"`
		TransportMode            string          `json:"transport_mode"`
		TransportDurationMinutes json.RawMessage `json:"transport_duration_minutes"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = RawStop{
		PlaceID:                  looseString(aux.PlaceID),
		PlaceName:                aux.PlaceName,
		ArrivalTime:              aux.ArrivalTime,
		DepartureTime:            aux.DepartureTime,
		DurationMinutes:          looseMinutes(aux.DurationMinutes),
		Activity:                 aux.Activity,
		TransportMode:            aux.TransportMode,
		TransportDurationMinutes: looseMinutes(aux.TransportDurationMinutes),
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return trimmed
}

// looseMinutes rounds numeric and numeric-string values; anything else is 0.
func looseMinutes(raw json.RawMessage) int {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0
	}
	trimmed = strings.Trim(trimmed, `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}
