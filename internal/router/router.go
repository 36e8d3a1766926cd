package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planning"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ItineraryHandler       *itinerary.HandlerImpl
	PlacesHandler          *places.HandlerImpl
	PlanningHandler        *planning.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter wires the API routes. Server-wide middleware (request id, logging,
// recoverer) is applied by the caller before mounting.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Post("/itineraries", cfg.ItineraryHandler.CreateItinerary)
		r.Route("/itineraries/{itineraryID}", func(r chi.Router) {
			r.Get("/", cfg.ItineraryHandler.GetItinerary)

			r.Get("/places", cfg.PlacesHandler.ListPlaces)
			r.Put("/places/{placeID}/interest", cfg.PlacesHandler.SetInterest)

			r.Post("/plan", cfg.PlanningHandler.SynthesizePlan)
			r.Get("/plan", cfg.PlanningHandler.GetActivePlan)
			r.Get("/plans", cfg.PlanningHandler.GetPlanHistory)
		})
	})

	return r
}
