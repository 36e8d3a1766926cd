package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

type GenerationStatus string

const (
	GenerationPending  GenerationStatus = "pending"
	GenerationComplete GenerationStatus = "complete"
	GenerationError    GenerationStatus = "error"
)

// GenerationMetadata is the typed shape of itineraries.generation_metadata.
type GenerationMetadata struct {
	StayingDays          int              `json:"staying_days"`
	RecommendedPOICount  int              `json:"recommended_poi_count"`
	Status               GenerationStatus `json:"status"`
	GeneratedPlacesCount *int             `json:"generated_places_count,omitempty"`
	Error                string           `json:"error,omitempty"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

func (m GenerationMetadata) Pending() bool { return m.Status == GenerationPending }

func (m GenerationMetadata) Validate() error {
	switch m.Status {
	case GenerationPending:
		if m.GeneratedPlacesCount != nil || m.Error != "" {
			return errors.New("pending metadata cannot carry a result")
		}
	case GenerationComplete:
		if m.GeneratedPlacesCount == nil {
			return errors.New("complete metadata requires generated_places_count")
		}
		if m.Error != "" {
			return errors.New("complete metadata cannot carry an error")
		}
	case GenerationError:
		if m.Error == "" {
			return errors.New("error metadata requires an error message")
		}
	default:
		return fmt.Errorf("unknown generation status %q", m.Status)
	}
	if m.StayingDays < 0 || m.RecommendedPOICount < 0 {
		return errors.New("counts must be non-negative")
	}
	return nil
}

// Complete returns a copy marked as successfully finished.
func (m GenerationMetadata) Complete(count int, at time.Time) GenerationMetadata {
	m.Status = GenerationComplete
	m.GeneratedPlacesCount = &count
	m.Error = ""
	m.UpdatedAt = &at
	return m
}

// Failed returns a copy marked as finished with an error.
func (m GenerationMetadata) Failed(reason string, at time.Time) GenerationMetadata {
	m.Status = GenerationError
	m.GeneratedPlacesCount = nil
	m.Error = reason
	m.UpdatedAt = &at
	return m
}

func EncodeGenerationMetadata(m GenerationMetadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation metadata: %w", err)
	}
	return json.Marshal(m)
}

// DecodeGenerationMetadata rejects unknown keys so a typo never passes silently.
func DecodeGenerationMetadata(raw []byte) (GenerationMetadata, error) {
	var m GenerationMetadata
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return GenerationMetadata{}, fmt.Errorf("decode generation metadata: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return GenerationMetadata{}, errors.New("decode generation metadata: trailing data")
	}
	if err := m.Validate(); err != nil {
		return GenerationMetadata{}, fmt.Errorf("invalid generation metadata: %w", err)
	}
	return m, nil
}

// GenerationTask is the message handed to background workers after commit.
type GenerationTask struct {
	ItineraryID uuid.UUID `json:"itinerary_id"`
	POICount    int       `json:"poi_count"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// GenerationOutcome summarises a recommendation run.
type GenerationOutcome struct {
	Attempts int      `json:"attempts"`
	Errors   []string `json:"errors,omitempty"`
	Rejected int      `json:"rejected"`
}
