package recommendation

import (
	"fmt"
	"strings"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const systemPrompt = `You are a travel expert recommending points of interest.
Respond with ONE JSON object and nothing else, using exactly this shape:
{
  "places": [
    {
      "name": "string",
      "address": "string",
      "description": "string",
      "location": {"lat": number, "lng": number},
      "website": "string or empty",
      "phone": "string or empty",
      "opening_hours": "string or empty"
    }
  ]
}
Every place needs a non-empty name, address and description and a real coordinate.`

func formatBudget(budget *int64) string {
	if budget == nil {
		return "not specified"
	}
	b := *budget
	return fmt.Sprintf("%d.%02d (minor units: %d)", b/100, b%100, b)
}

func formatCategories(categories []string) string {
	if len(categories) == 0 {
		return "any"
	}
	return strings.Join(categories, ", ")
}

func tripDetails(tc types.TripContext) string {
	additional := tc.AdditionalPreferences
	if additional == "" {
		additional = "none"
	}
	return fmt.Sprintf(`Destination: %s
Dates: %s to %s (%d days)
Budget: %s
Travel mode: %s
Pace: %s
Activity intensity: %s
Travelers: %d (children: %t, elderly: %t)
Prefer popular attractions: %t
Preferred categories: %s
Additional preferences: %s`,
		tc.Destination,
		tc.StartDate.Format("2006-01-02"), tc.EndDate.Format("2006-01-02"), tc.StayingDays,
		formatBudget(tc.Budget),
		tc.TravelMode,
		tc.Pace,
		tc.ActivityIntensity,
		tc.NumberOfTravelers, tc.HasChildren, tc.HasElderly,
		tc.PreferPopularAttractions,
		formatCategories(tc.PreferredCategories),
		additional,
	)
}

// initialPrompt is used on the first attempt.
func initialPrompt(tc types.TripContext, maxCount int) generativeAI.Prompt {
	user := fmt.Sprintf(`Recommend up to %d distinct points of interest for this trip.

%s

Suit the pace and the group. Do not repeat a place.`, maxCount, tripDetails(tc))
	return generativeAI.Prompt{Name: "poi_recommendation", System: systemPrompt, User: user}
}

// errorFeedbackPrompt is used on retries and lists what went wrong before.
func errorFeedbackPrompt(tc types.TripContext, maxCount int, errorLog []string) generativeAI.Prompt {
	var b strings.Builder
	for i, e := range errorLog {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e)
	}
	user := fmt.Sprintf(`Recommend up to %d distinct points of interest in %s (%d days, pace %s, travel mode %s, budget %s).

Previous responses were rejected for these reasons:
%s
Avoid the same mistakes. Every place must have a name, an address, a description and a location with
lat in [-90, 90] and lng in [-180, 180]. Return only the JSON object.`,
		maxCount, tc.Destination, tc.StayingDays, tc.Pace, tc.TravelMode, formatBudget(tc.Budget), b.String())
	return generativeAI.Prompt{Name: "poi_recommendation_retry", System: systemPrompt, User: user}
}
