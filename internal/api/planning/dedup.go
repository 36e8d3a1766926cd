package planning

import (
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// droppedStop records a stop removed because its place was already scheduled.
type droppedStop struct {
	PlaceID uuid.UUID
	Date    string
}

// parsePlaceID reads a stop's place reference. Empty, "null" and unparsable
// values all mean the stop is not tied to a place.
func parsePlaceID(raw string) (*uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// normalizePlan walks every stop in array order and keeps only the first
// occurrence of each place across the whole plan. Surviving stops are numbered
// from 1 within their day and get the matching snapshot, or nil when the id is
// not one of the itinerary's places.
func normalizePlan(raw *types.RawPlan, snapshots map[uuid.UUID]types.PlaceSnapshot) (types.PlanContent, []droppedStop, []string) {
	content := types.PlanContent{Summary: raw.Summary, Days: make([]types.DayPlan, 0, len(raw.Days))}
	seen := make(map[uuid.UUID]struct{})
	var (
		dropped   []droppedStop
		malformed []string
	)

	for _, rd := range raw.Days {
		day := types.DayPlan{Date: rd.Date, Summary: rd.Summary, Stops: make([]types.Stop, 0, len(rd.Stops))}
		for _, rs := range rd.Stops {
			placeID, ok := parsePlaceID(rs.PlaceID)
			if !ok {
				malformed = append(malformed, rs.PlaceID)
			}
			if placeID != nil {
				if _, dup := seen[*placeID]; dup {
					dropped = append(dropped, droppedStop{PlaceID: *placeID, Date: rd.Date})
					continue
				}
				seen[*placeID] = struct{}{}
			}

			stop := types.Stop{
				Order:       len(day.Stops) + 1,
				PlaceID:     placeID,
				Arrival:     rs.ArrivalTime,
				Departure:   rs.DepartureTime,
				StayMinutes: rs.DurationMinutes,
				Note:        stopNote(rs),
			}
			if placeID != nil {
				if snap, found := snapshots[*placeID]; found {
					stop.Place = &snap
				}
			}
			day.Stops = append(day.Stops, stop)
		}
		content.Days = append(content.Days, day)
	}
	return content, dropped, malformed
}

func stopNote(rs types.RawStop) string {
	note := strings.TrimSpace(rs.Activity)
	if note == "" {
		note = strings.TrimSpace(rs.PlaceName)
	}
	return note
}

func snapshotOf(ip types.ItineraryPlace) types.PlaceSnapshot {
	snap := types.PlaceSnapshot{
		PlaceID:     ip.PlaceID,
		Name:        ip.Name,
		Description: ip.Description,
		Pinned:      ip.Pinned,
	}
	if ip.Note != nil {
		snap.Note = *ip.Note
	}
	if ip.Place != nil {
		snap.Address = ip.Place.Address
		if ip.Place.Location != nil {
			loc := *ip.Place.Location
			snap.Location = &loc
		}
		if snap.Description == "" {
			snap.Description = ip.Place.Description
		}
	}
	return snap
}
