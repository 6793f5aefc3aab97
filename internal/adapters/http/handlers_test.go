package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/aldatz/topagune/internal/adapters/http"
	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/roadnet"
	"github.com/aldatz/topagune/internal/core/usecases"
)

// ---- Mock repositories and providers ----

type mockMeetingRepo struct {
	createFn      func(ctx context.Context, m *domain.Meeting) error
	getByIDFn     func(ctx context.Context, id string) (*domain.Meeting, error)
	addPartFn     func(ctx context.Context, p *domain.Participant) error
	listPartsFn   func(ctx context.Context, meetingID string) ([]domain.Participant, error)
}

func (m *mockMeetingRepo) Create(ctx context.Context, mt *domain.Meeting) error {
	if m.createFn != nil {
		return m.createFn(ctx, mt)
	}
	mt.ID = "meeting-1"
	return nil
}
func (m *mockMeetingRepo) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Meeting{ID: id, Title: "Coffee catchup", DurationMin: 120, BudgetTier: 2}, nil
}
func (m *mockMeetingRepo) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if m.addPartFn != nil {
		return m.addPartFn(ctx, p)
	}
	p.ID = "participant-1"
	return nil
}
func (m *mockMeetingRepo) ListParticipants(ctx context.Context, meetingID string) ([]domain.Participant, error) {
	if m.listPartsFn != nil {
		return m.listPartsFn(ctx, meetingID)
	}
	return nil, nil
}

type mockItineraryRepo struct {
	replaceFn   func(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error
	listStopsFn func(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error)
	upsertFn    func(ctx context.Context, meetingID string, stop domain.ItineraryStop) error
}

func (m *mockItineraryRepo) ReplaceCourse(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, meetingID, stops)
	}
	return nil
}
func (m *mockItineraryRepo) ListStops(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error) {
	if m.listStopsFn != nil {
		return m.listStopsFn(ctx, meetingID)
	}
	return nil, nil
}
func (m *mockItineraryRepo) UpsertMeetingPoint(ctx context.Context, meetingID string, stop domain.ItineraryStop) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, meetingID, stop)
	}
	return nil
}

type mockVenueSearcher struct {
	searchVenuesFn   func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error)
	searchStationsFn func(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.VenueCandidate, error)
}

func (m *mockVenueSearcher) SearchVenues(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
	if m.searchVenuesFn != nil {
		return m.searchVenuesFn(ctx, center, radiusMeters, keyword, category, minRating, limit)
	}
	return nil, nil
}
func (m *mockVenueSearcher) SearchStations(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.VenueCandidate, error) {
	if m.searchStationsFn != nil {
		return m.searchStationsFn(ctx, center, radiusMeters)
	}
	return nil, nil
}

type mockTravelProvider struct {
	getFn func(ctx context.Context, start, goal domain.GeoPoint, mode domain.TransportMode) (domain.TravelEstimate, error)
}

func (m *mockTravelProvider) GetTravelTime(ctx context.Context, start, goal domain.GeoPoint, mode domain.TransportMode) (domain.TravelEstimate, error) {
	if m.getFn != nil {
		return m.getFn(ctx, start, goal, mode)
	}
	return domain.TravelEstimate{DurationSec: 600, DistanceM: 800, OK: true}, nil
}

// ---- Test helpers ----

// testGraph builds a center node with three leaves, bidirectional edges.
func testGraph() *roadnet.Graph {
	nodes := []roadnet.Node{
		{ID: 0, Location: domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}},
		{ID: 1, Location: domain.GeoPoint{Lat: 43.2639, Lon: -2.9350}},
		{ID: 2, Location: domain.GeoPoint{Lat: 43.2612, Lon: -2.9350}},
		{ID: 3, Location: domain.GeoPoint{Lat: 43.2630, Lon: -2.9313}},
	}
	edges := []roadnet.Edge{
		{From: 0, To: 1, DistanceM: 100, TravelSecs: 60},
		{From: 1, To: 0, DistanceM: 100, TravelSecs: 60},
		{From: 0, To: 2, DistanceM: 200, TravelSecs: 120},
		{From: 2, To: 0, DistanceM: 200, TravelSecs: 120},
		{From: 0, To: 3, DistanceM: 300, TravelSecs: 180},
		{From: 3, To: 0, DistanceM: 300, TravelSecs: 180},
	}
	return roadnet.Build(nodes, edges)
}

type depOverrides struct {
	meetings    *mockMeetingRepo
	itineraries *mockItineraryRepo
	venues      *mockVenueSearcher
	travel      *mockTravelProvider
}

func makeDeps(o depOverrides) *handler.Dependencies {
	if o.meetings == nil {
		o.meetings = &mockMeetingRepo{}
	}
	if o.itineraries == nil {
		o.itineraries = &mockItineraryRepo{}
	}
	if o.venues == nil {
		o.venues = &mockVenueSearcher{}
	}
	if o.travel == nil {
		o.travel = &mockTravelProvider{}
	}

	graph := testGraph()
	cfg := usecases.SynthesisConfig{}
	venueSvc := usecases.NewVenueSearchService(o.venues, nil)
	adjuster := usecases.NewBusyAreaAdjuster(o.venues, usecases.DefaultBusyAreaConfig())
	assembler := usecases.NewAssembler(o.venues, o.travel, cfg)

	return &handler.Dependencies{
		Meetings: usecases.NewMeetingService(o.meetings, o.itineraries),
		MeetingPoints: usecases.NewMeetingPointService(
			graph, adjuster, nil, o.meetings, o.itineraries, nil, cfg),
		Synthesis: usecases.NewSynthesisService(
			o.meetings, o.itineraries, o.venues, assembler, nil, cfg),
		Venues: venueSvc,
		Graph:  graph,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Meeting handler tests ----

func TestCreateMeeting_Success(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"title":"Saturday out","purposes":["meal"],"budget_tier":2,"duration_min":240}`
	req := httptest.NewRequest("POST", "/v1/meetings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var meeting domain.Meeting
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		t.Fatal(err)
	}
	if meeting.ID == "" {
		t.Error("expected generated meeting id")
	}
	if meeting.Title != "Saturday out" {
		t.Errorf("unexpected title %q", meeting.Title)
	}
}

func TestCreateMeeting_MissingTitle(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"duration_min":120}`
	req := httptest.NewRequest("POST", "/v1/meetings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestCreateMeeting_BadBudgetTier(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"title":"x","duration_min":120,"budget_tier":7}`
	req := httptest.NewRequest("POST", "/v1/meetings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetMeeting_Success(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return []domain.Participant{
					{ID: "p1", MeetingID: meetingID, Name: "Ane"},
				}, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/meetings/meeting-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Meeting      domain.Meeting       `json:"meeting"`
		Participants []domain.Participant `json:"participants"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Meeting.Title != "Coffee catchup" {
		t.Errorf("unexpected title %q", result.Meeting.Title)
	}
	if len(result.Participants) != 1 {
		t.Errorf("expected 1 participant, got %d", len(result.Participants))
	}
}

func TestGetMeeting_NotFound(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Meeting, error) {
				return nil, fmt.Errorf("no rows")
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/meetings/nonexistent", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Participant handler tests ----

func TestAddParticipant_Success(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"name":"Jon","start":{"lat":43.263,"lon":-2.935},"mode":"transit"}`
	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/participants", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var p domain.Participant
	json.NewDecoder(resp.Body).Decode(&p)
	if p.Mode != domain.ModeTransit {
		t.Errorf("expected transit mode, got %s", p.Mode)
	}
}

func TestAddParticipant_BadMode(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"name":"Jon","mode":"teleport"}`
	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/participants", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAddParticipant_BadCoordinate(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"name":"Jon","start":{"lat":123.0,"lon":-2.9}}`
	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/participants", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListParticipants_Pagination(t *testing.T) {
	participants := make([]domain.Participant, 5)
	for i := range participants {
		participants[i] = domain.Participant{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Person %d", i)}
	}

	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return participants, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/meetings/meeting-1/participants?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Participant `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 participants in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

// ---- Meeting-point handler tests ----

func TestResolveMeetingPoint_Success(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return []domain.Participant{
					{ID: "p1", Start: &domain.GeoPoint{Lat: 43.2639, Lon: -2.9350}},
					{ID: "p2", Start: &domain.GeoPoint{Lat: 43.2612, Lon: -2.9350}},
					{ID: "p3", Start: &domain.GeoPoint{Lat: 43.2630, Lon: -2.9313}},
				}, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/meeting-point", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Candidates []domain.MeetingPointCandidate `json:"candidates"`
		Count      int                            `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count == 0 {
		t.Fatal("expected at least one candidate")
	}
	// Center of the star is the fair point
	if result.Candidates[0].NodeID != 0 {
		t.Errorf("expected center node 0, got %d", result.Candidates[0].NodeID)
	}
}

func TestResolveMeetingPoint_NoParticipants(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return nil, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/meeting-point", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestResolvePoint_AdHoc(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"coordinates":[{"lat":43.2639,"lon":-2.9350},{"lat":43.2612,"lon":-2.9350}],"weight":"time"}`
	req := httptest.NewRequest("POST", "/v1/meeting-points/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
}

func TestResolvePoint_BadWeight(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	body := `{"coordinates":[{"lat":43.26,"lon":-2.93}],"weight":"banana"}`
	req := httptest.NewRequest("POST", "/v1/meeting-points/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Itinerary handler tests ----

func TestBuildItinerary_Success(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Meeting, error) {
				return &domain.Meeting{ID: id, Title: "Brunch", Purposes: []string{"meal"}, BudgetTier: 2, DurationMin: 180}, nil
			},
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return []domain.Participant{
					{ID: "p1", Start: &domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}},
				}, nil
			},
		},
		venues: &mockVenueSearcher{
			searchVenuesFn: func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
				// offset per query so stops do not collapse as duplicates
				return []domain.VenueCandidate{
					{ID: keyword + "-1", Name: "Venue for " + keyword, Rating: 4.4,
						Location: domain.GeoPoint{Lat: center.Lat + 0.001*float64(len(keyword)), Lon: center.Lon}},
				}, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/itinerary", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Stops []domain.ItineraryStop `json:"stops"`
		Count int                    `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count == 0 {
		t.Fatal("expected at least one stop")
	}
	for _, s := range result.Stops {
		if s.MeetingID != "meeting-1" {
			t.Errorf("stop %q missing meeting id", s.Name)
		}
	}
}

func TestBuildItinerary_NoVenues(t *testing.T) {
	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return []domain.Participant{
					{ID: "p1", Start: &domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}},
				}, nil
			},
		},
		venues: &mockVenueSearcher{
			searchVenuesFn: func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
				return nil, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/meetings/meeting-1/itinerary", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetItinerary_Success(t *testing.T) {
	deps := makeDeps(depOverrides{
		itineraries: &mockItineraryRepo{
			listStopsFn: func(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error) {
				return []domain.ItineraryStop{
					{Position: 0, Name: "Meeting point", Category: domain.CategoryMeetingPoint},
					{Position: 1, Name: "Cafe Iruna", Category: domain.CategoryCafe, DwellMin: 60},
				}, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/meetings/meeting-1/itinerary", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Stops []domain.ItineraryStop `json:"stops"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(result.Stops))
	}
	if result.Stops[0].Category != domain.CategoryMeetingPoint {
		t.Error("expected meeting-point marker first")
	}
}

func TestGetItinerary_Empty(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/meetings/meeting-1/itinerary", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Venue handler tests ----

func TestNearbyVenues_Success(t *testing.T) {
	deps := makeDeps(depOverrides{
		venues: &mockVenueSearcher{
			searchVenuesFn: func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
				return []domain.VenueCandidate{
					{ID: "v1", Name: "Cafe Bizkaia", Rating: 4.5, Location: center},
				}, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/venues/nearby?lat=43.263&lon=-2.935&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var venues []domain.VenueCandidate
	json.NewDecoder(resp.Body).Decode(&venues)
	if len(venues) != 1 {
		t.Errorf("expected 1 venue, got %d", len(venues))
	}
}

func TestNearbyVenues_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/venues/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyVenues_BadRadius(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/venues/nearby?lat=43.26&lon=-2.93&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyVenues_CacheControlHeader(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/venues/nearby?lat=43.26&lon=-2.93", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "public, max-age=300" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}
}

// ---- Network stats tests ----

func TestNetworkStats_GraphCounts(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/network/stats", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats struct {
		Nodes int `json:"nodes"`
		Edges int `json:"edges"`
	}
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats.Nodes != 4 {
		t.Errorf("expected 4 nodes, got %d", stats.Nodes)
	}
	if stats.Edges != 6 {
		t.Errorf("expected 6 edges, got %d", stats.Edges)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	// DB, NATS, Cache are nil → should report not ready
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Link header on pagination ----

func TestListParticipants_LinkHeader(t *testing.T) {
	participants := make([]domain.Participant, 10)
	for i := range participants {
		participants[i] = domain.Participant{ID: fmt.Sprintf("p%d", i)}
	}

	deps := makeDeps(depOverrides{
		meetings: &mockMeetingRepo{
			listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
				return participants, nil
			},
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/meetings/meeting-1/participants?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	// Register middleware
	app.Use(handler.AccessLogMiddleware())

	// Simple test route
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	// Make request
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	// Verify response body
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}

// ---- WebSocket route tests ----

func TestWebSocket_UnavailableWithoutBroker(t *testing.T) {
	// Startup keeps going when the broker is down, leaving deps.NATS nil;
	// an upgrade attempt must be refused, not crash the relay.
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a broker connection, got %d", resp.StatusCode)
	}
}

func TestWebSocket_PlainGetRequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(depOverrides{}))

	req := httptest.NewRequest("GET", "/ws", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426 for a plain GET, got %d", resp.StatusCode)
	}
}
