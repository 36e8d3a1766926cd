package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const PlaceSourceModelGenerated = "model-generated"

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate accepts the closed ranges [-90,90] and [-180,180].
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

type Place struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	Location     *Coordinate `json:"location,omitempty"`
	Website      string      `json:"website,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Description  string      `json:"description,omitempty"`
	OpeningHours string      `json:"opening_hours,omitempty"`
	Source       string      `json:"source"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ItineraryPlace links one itinerary to one place.
type ItineraryPlace struct {
	ItineraryID uuid.UUID `json:"itinerary_id"`
	PlaceID     uuid.UUID `json:"place_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Pinned      bool      `json:"pinned"`
	Note        *string   `json:"note,omitempty"`
	AddedAt     time.Time `json:"added_at"`
	Place       *Place    `json:"place,omitempty"`
}

// CandidatePOI is a validated model suggestion that has not been persisted yet.
type CandidatePOI struct {
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Description  string     `json:"description"`
	Location     Coordinate `json:"location"`
	Website      string     `json:"website,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	OpeningHours string     `json:"opening_hours,omitempty"`
}

func (c CandidatePOI) ToPlace() Place {
	loc := c.Location
	return Place{
		Name:         c.Name,
		Address:      c.Address,
		Location:     &loc,
		Website:      c.Website,
		Phone:        c.Phone,
		Description:  c.Description,
		OpeningHours: c.OpeningHours,
		Source:       PlaceSourceModelGenerated,
	}
}

type SetInterestRequest struct {
	Pinned *bool   `json:"pinned,omitempty"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}
