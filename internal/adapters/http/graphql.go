package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/aldatz/topagune/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	meetingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Meeting",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"title":        &graphql.Field{Type: graphql.String},
			"purposes":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"vibes":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"with_whom":    &graphql.Field{Type: graphql.String},
			"budget_tier":  &graphql.Field{Type: graphql.Int},
			"duration_min": &graphql.Field{Type: graphql.Int},
		},
	})

	participantType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Participant",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"meeting_id":  &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"start":       &graphql.Field{Type: geoPointType},
			"mode":        &graphql.Field{Type: graphql.String},
			"preferences": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	travelLegType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TravelLeg",
		Fields: graphql.Fields{
			"mode":         &graphql.Field{Type: graphql.String},
			"duration_min": &graphql.Field{Type: graphql.Int},
			"distance_m":   &graphql.Field{Type: graphql.Int},
			"estimated":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ItineraryStop",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"meeting_id":       &graphql.Field{Type: graphql.String},
			"position":         &graphql.Field{Type: graphql.Int},
			"name":             &graphql.Field{Type: graphql.String},
			"label_name":       &graphql.Field{Type: graphql.String},
			"address":          &graphql.Field{Type: graphql.String},
			"location":         &graphql.Field{Type: geoPointType},
			"category":         &graphql.Field{Type: graphql.String},
			"dwell_min":        &graphql.Field{Type: graphql.Int},
			"travel_from_prev": &graphql.Field{Type: travelLegType},
			"venue_id":         &graphql.Field{Type: graphql.String},
		},
	})

	venueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Venue",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"rating":       &graphql.Field{Type: graphql.Float},
			"rating_count": &graphql.Field{Type: graphql.Int},
			"address":      &graphql.Field{Type: graphql.String},
			"categories":   &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"meeting": &graphql.Field{
				Type:        meetingType,
				Description: "Get a meeting by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					meeting, _, err := deps.Meetings.GetByID(p.Context, id)
					return meeting, err
				},
			},
			"participants": &graphql.Field{
				Type:        graphql.NewList(participantType),
				Description: "List the participants of a meeting",
				Args: graphql.FieldConfigArgument{
					"meeting_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["meeting_id"].(string)
					_, participants, err := deps.Meetings.GetByID(p.Context, id)
					return participants, err
				},
			},
			"itinerary": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Persisted itinerary stops for a meeting, in visit order",
				Args: graphql.FieldConfigArgument{
					"meeting_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["meeting_id"].(string)
					return deps.Meetings.Itinerary(p.Context, id)
				},
			},
			"venuesNearby": &graphql.Field{
				Type:        graphql.NewList(venueType),
				Description: "Search venues near a location",
				Args: graphql.FieldConfigArgument{
					"lat":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":     &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"keyword":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"category":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"min_rating": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lon: p.Args["lon"].(float64),
					}
					return deps.Venues.SearchVenues(p.Context, center,
						p.Args["radius"].(float64),
						p.Args["keyword"].(string),
						p.Args["category"].(string),
						p.Args["min_rating"].(float64),
						p.Args["limit"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
