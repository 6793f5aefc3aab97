package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/roadnet"
)

// CreateMeetingHandler creates a new meeting.
func CreateMeetingHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Title       string   `json:"title"`
		Purposes    []string `json:"purposes"`
		Vibes       []string `json:"vibes"`
		WithWhom    string   `json:"with_whom"`
		BudgetTier  int      `json:"budget_tier"`
		DurationMin int      `json:"duration_min"`
	}

	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		meeting := domain.Meeting{
			Title:       req.Title,
			Purposes:    req.Purposes,
			Vibes:       req.Vibes,
			WithWhom:    req.WithWhom,
			BudgetTier:  req.BudgetTier,
			DurationMin: req.DurationMin,
		}
		if err := deps.Meetings.Create(c.Context(), &meeting); err != nil {
			return errDomain(c, err)
		}
		return c.Status(201).JSON(meeting)
	}
}

// GetMeetingHandler returns a meeting with its participants.
func GetMeetingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}
		meeting, participants, err := deps.Meetings.GetByID(c.Context(), id)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"meeting":      meeting,
			"participants": participants,
		})
	}
}

// AddParticipantHandler registers a participant on a meeting.
func AddParticipantHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Name        string           `json:"name"`
		Start       *domain.GeoPoint `json:"start"`
		Mode        string           `json:"mode"`
		Preferences []string         `json:"preferences"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}

		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		participant := domain.Participant{
			MeetingID:   id,
			Name:        req.Name,
			Start:       req.Start,
			Mode:        domain.TransportMode(req.Mode),
			Preferences: req.Preferences,
		}
		if err := deps.Meetings.AddParticipant(c.Context(), &participant); err != nil {
			return errDomain(c, err)
		}
		return c.Status(201).JSON(participant)
	}
}

// ListParticipantsHandler returns the participants of a meeting, paginated.
func ListParticipantsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}

		_, participants, err := deps.Meetings.GetByID(c.Context(), id)
		if err != nil {
			return errDomain(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(participants)
		if offset >= total {
			participants = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			participants = participants[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: participants, Pagination: pg})
	}
}

// ResolveMeetingPointHandler computes and persists the fair meeting point
// for a meeting's participants.
func ResolveMeetingPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}

		topK := c.QueryInt("top_k", 3)
		if topK <= 0 || topK > 10 {
			topK = 3
		}

		candidates, err := deps.MeetingPoints.ResolveForMeeting(c.Context(), id, topK)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"candidates": candidates,
			"count":      len(candidates),
		})
	}
}

// ResolvePointHandler computes meeting-point candidates for ad-hoc
// coordinates without touching any meeting.
func ResolvePointHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Coordinates []domain.GeoPoint `json:"coordinates"`
		Weight      string            `json:"weight"` // "distance" (default) or "time"
		TopK        int               `json:"top_k"`
	}

	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Coordinates) == 0 {
			return errBadRequest(c, "at least one coordinate is required")
		}

		weight := roadnet.WeightDistance
		switch req.Weight {
		case "", "distance":
		case "time":
			weight = roadnet.WeightTime
		default:
			return errBadRequest(c, "weight must be \"distance\" or \"time\"")
		}

		candidates, err := deps.MeetingPoints.Resolve(c.Context(), req.Coordinates, weight, req.TopK)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"candidates": candidates,
			"count":      len(candidates),
		})
	}
}

// BuildItineraryHandler runs one synthesis and returns the persisted stops.
func BuildItineraryHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		MustVisit []domain.MustVisitVenue `json:"must_visit"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}

		var req request
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		stops, err := deps.Synthesis.BuildItinerary(c.Context(), id, req.MustVisit)
		if err != nil {
			return errDomain(c, err)
		}
		return c.Status(201).JSON(fiber.Map{
			"stops": stops,
			"count": len(stops),
		})
	}
}

// GetItineraryHandler returns the persisted itinerary of a meeting.
func GetItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meeting id is required")
		}

		stops, err := deps.Meetings.Itinerary(c.Context(), id)
		if err != nil {
			return errDomain(c, err)
		}
		if len(stops) == 0 {
			return errNotFound(c, "no itinerary for meeting "+id)
		}
		return c.JSON(fiber.Map{
			"stops": stops,
			"count": len(stops),
		})
	}
}

// NearbyVenuesHandler searches venues around a point.
func NearbyVenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 1000)
		keyword := c.Query("keyword")
		category := c.Query("category")
		minRating := c.QueryFloat("min_rating", 0)
		limit := c.QueryInt("limit", 20)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if !(domain.GeoPoint{Lat: lat, Lon: lon}).Valid() {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 50 {
			limit = 20
		}

		venues, err := deps.Venues.SearchVenues(c.Context(),
			domain.GeoPoint{Lat: lat, Lon: lon}, radius, keyword, category, minRating, limit)
		if err != nil {
			return errDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(venues)
	}
}

// NetworkStatsHandler returns road-network and meeting table counts.
func NetworkStatsHandler(deps *Dependencies) fiber.Handler {
	type stats struct {
		Nodes    int `json:"nodes"`
		Edges    int `json:"edges"`
		Meetings int `json:"meetings"`
		Stops    int `json:"itinerary_stops"`
	}

	return func(c *fiber.Ctx) error {
		var s stats
		if deps.Graph != nil {
			s.Nodes = deps.Graph.NodeCount()
			s.Edges = deps.Graph.EdgeCount()
		}
		if deps.DB != nil {
			row := deps.DB.Pool.QueryRow(c.Context(), `
				SELECT
					(SELECT count(*) FROM meetings),
					(SELECT count(*) FROM itinerary_stops)
			`)
			if err := row.Scan(&s.Meetings, &s.Stops); err != nil {
				return errInternal(c, err.Error())
			}
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(s)
	}
}
