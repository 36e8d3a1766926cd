// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/itineraries": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the trip and schedules place generation in the background. The response shows generation as pending.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["itineraries"],
                "summary": "Create an itinerary",
                "parameters": [
                    {"description": "Trip parameters", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CreateItineraryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.Itinerary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/itineraries/{itineraryID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["itineraries"],
                "summary": "Get an itinerary with its generation status",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Itinerary"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/itineraries/{itineraryID}/places": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the places linked to an itinerary, optionally only the pinned ones.",
                "produces": ["application/json"],
                "tags": ["places"],
                "summary": "List itinerary places",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true},
                    {"type": "boolean", "description": "Only pinned places", "name": "pinned", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/types.ItineraryPlace"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/itineraries/{itineraryID}/places/{placeID}/interest": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["places"],
                "summary": "Pin, unpin or annotate a place",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true},
                    {"type": "string", "description": "Place ID", "name": "placeID", "in": "path", "required": true},
                    {"description": "Interest update", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.SetInterestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ItineraryPlace"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/itineraries/{itineraryID}/plan": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Get the active plan",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StoredPlan"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Schedules the pinned places, or the listed ones, into days and stores the result as the active plan.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Build a new plan version",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true},
                    {"description": "Planning overrides", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/types.SynthesizePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.StoredPlan"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/itineraries/{itineraryID}/plans": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "List plan versions, newest first",
                "parameters": [
                    {"type": "string", "description": "Itinerary ID", "name": "itineraryID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/types.StoredPlan"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        }
    },
    "definitions": {
        "api.Response": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "requested item not found"},
                "request_id": {"type": "string", "example": "host/abc-000001"},
                "success": {"type": "boolean", "example": false}
            }
        },
        "types.Coordinate": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "types.CreateItineraryRequest": {
            "type": "object",
            "required": ["destination", "end_date", "start_date"],
            "properties": {
                "activity_intensity": {"type": "string", "enum": ["light", "moderate", "intense"]},
                "additional_preferences": {"type": "string", "maxLength": 2000},
                "budget": {"type": "integer", "minimum": 0, "example": 150000},
                "daily_end": {"type": "string", "example": "20:00"},
                "daily_start": {"type": "string", "example": "09:00"},
                "destination": {"type": "string", "example": "Lisbon"},
                "end_date": {"type": "string", "example": "2026-05-04T00:00:00Z"},
                "has_children": {"type": "boolean"},
                "has_elderly": {"type": "boolean"},
                "number_of_travelers": {"type": "integer", "minimum": 1},
                "pace": {"type": "string", "enum": ["relaxed", "moderate", "packed"]},
                "prefer_popular_attractions": {"type": "boolean"},
                "preferred_categories": {"type": "array", "items": {"type": "string"}},
                "start_date": {"type": "string", "example": "2026-05-01T00:00:00Z"},
                "travel_mode": {"type": "string", "enum": ["walking", "driving", "public_transit", "cycling"]}
            }
        },
        "types.DayPlan": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "stops": {"type": "array", "items": {"$ref": "#/definitions/types.Stop"}},
                "summary": {"type": "string"}
            }
        },
        "types.GenerationMetadata": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "generated_places_count": {"type": "integer"},
                "recommended_poi_count": {"type": "integer"},
                "staying_days": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "complete", "error"]},
                "updated_at": {"type": "string"}
            }
        },
        "types.Itinerary": {
            "type": "object",
            "properties": {
                "budget": {"type": "integer"},
                "created_at": {"type": "string"},
                "destination": {"type": "string"},
                "end_date": {"type": "string"},
                "generation": {"$ref": "#/definitions/types.GenerationMetadata"},
                "id": {"type": "string"},
                "preferences": {"$ref": "#/definitions/types.TravelerPreferences"},
                "start_date": {"type": "string"},
                "travel_mode": {"type": "string"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "types.ItineraryPlace": {
            "type": "object",
            "properties": {
                "added_at": {"type": "string"},
                "description": {"type": "string"},
                "itinerary_id": {"type": "string"},
                "name": {"type": "string"},
                "note": {"type": "string"},
                "pinned": {"type": "boolean"},
                "place": {"$ref": "#/definitions/types.Place"},
                "place_id": {"type": "string"}
            }
        },
        "types.Place": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "string"},
                "location": {"$ref": "#/definitions/types.Coordinate"},
                "name": {"type": "string"},
                "opening_hours": {"type": "string"},
                "phone": {"type": "string"},
                "source": {"type": "string"},
                "website": {"type": "string"}
            }
        },
        "types.PlaceSnapshot": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "description": {"type": "string"},
                "location": {"$ref": "#/definitions/types.Coordinate"},
                "name": {"type": "string"},
                "note": {"type": "string"},
                "pinned": {"type": "boolean"},
                "place_id": {"type": "string"}
            }
        },
        "types.PlanContent": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/types.DayPlan"}},
                "summary": {"type": "string"}
            }
        },
        "types.SetInterestRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string", "maxLength": 1000},
                "pinned": {"type": "boolean"}
            }
        },
        "types.Stop": {
            "type": "object",
            "properties": {
                "arrival_local": {"type": "string"},
                "depart_local": {"type": "string"},
                "note": {"type": "string"},
                "order": {"type": "integer"},
                "place": {"$ref": "#/definitions/types.PlaceSnapshot"},
                "place_id": {"type": "string"},
                "stay_minutes": {"type": "integer"}
            }
        },
        "types.StoredPlan": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "content": {"$ref": "#/definitions/types.PlanContent"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "itinerary_id": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "types.SynthesizePlanRequest": {
            "type": "object",
            "properties": {
                "daily_end": {"type": "string", "example": "20:00"},
                "daily_start": {"type": "string", "example": "09:00"},
                "interest_place_ids": {"type": "array", "items": {"type": "string"}},
                "travel_mode": {"type": "string", "enum": ["walking", "driving", "public_transit", "cycling"]}
            }
        },
        "types.TravelerPreferences": {
            "type": "object",
            "properties": {
                "activity_intensity": {"type": "string"},
                "additional_preferences": {"type": "string"},
                "daily_end": {"type": "string"},
                "daily_start": {"type": "string"},
                "has_children": {"type": "boolean"},
                "has_elderly": {"type": "boolean"},
                "number_of_travelers": {"type": "integer"},
                "pace": {"type": "string"},
                "prefer_popular_attractions": {"type": "boolean"},
                "preferred_categories": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Trip Planner API",
	Description:      "Itineraries, generated places and versioned day plans.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
