package recommendation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type rawLocation struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type rawPOI struct {
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Description  string       `json:"description"`
	Location     *rawLocation `json:"location"`
	Website      string       `json:"website"`
	Phone        string       `json:"phone"`
	OpeningHours string       `json:"opening_hours"`
}

// rawPOIResponse keeps each item undecoded so a mistyped field only costs that item.
type rawPOIResponse struct {
	Places []json.RawMessage `json:"places"`
}

// decodeCandidate unmarshals one item. Type mismatches are reported by field
// name, e.g. "location.lat must be a number".
func decodeCandidate(raw json.RawMessage) (*rawPOI, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, errors.New("item is null")
	}
	var p rawPOI
	if err := json.Unmarshal(raw, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				// the item itself is not an object
				return nil, fmt.Errorf("item must be an object, got %s", typeErr.Value)
			}
			return nil, fmt.Errorf("%s must be %s", field, describeKind(typeErr.Type))
		}
		return nil, fmt.Errorf("unreadable item: %w", err)
	}
	return &p, nil
}

func describeKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a " + t.Kind().String()
	}
}

func validateCandidate(p *rawPOI) (types.CandidatePOI, error) {
	if p == nil {
		return types.CandidatePOI{}, errors.New("item is null")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return types.CandidatePOI{}, errors.New("name is required")
	}
	address := strings.TrimSpace(p.Address)
	if address == "" {
		return types.CandidatePOI{}, errors.New("address is required")
	}
	description := strings.TrimSpace(p.Description)
	if description == "" {
		return types.CandidatePOI{}, errors.New("description is required")
	}
	if p.Location == nil || p.Location.Lat == nil || p.Location.Lng == nil {
		return types.CandidatePOI{}, errors.New("location is required")
	}
	coord := types.Coordinate{Latitude: *p.Location.Lat, Longitude: *p.Location.Lng}
	if err := coord.Validate(); err != nil {
		return types.CandidatePOI{}, err
	}
	return types.CandidatePOI{
		Name:         name,
		Address:      address,
		Description:  description,
		Location:     coord,
		Website:      strings.TrimSpace(p.Website),
		Phone:        strings.TrimSpace(p.Phone),
		OpeningHours: strings.TrimSpace(p.OpeningHours),
	}, nil
}

// validateCandidates decodes and checks every item on its own, keeping the valid
// ones and returning a reason for each dropped one.
func validateCandidates(items []json.RawMessage) ([]types.CandidatePOI, []string) {
	valid := make([]types.CandidatePOI, 0, len(items))
	var rejections []string
	for i, raw := range items {
		item, err := decodeCandidate(raw)
		if err != nil {
			rejections = append(rejections, fmt.Sprintf("item %d: %v", i+1, err))
			continue
		}
		c, err := validateCandidate(item)
		if err != nil {
			label := fmt.Sprintf("item %d", i+1)
			if item != nil && strings.TrimSpace(item.Name) != "" {
				label = fmt.Sprintf("item %d (%s)", i+1, strings.TrimSpace(item.Name))
			}
			rejections = append(rejections, fmt.Sprintf("%s: %v", label, err))
			continue
		}
		valid = append(valid, c)
	}
	return valid, rejections
}
