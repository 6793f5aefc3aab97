package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aldatz/topagune/internal/core/domain"
)

// Client talks to a Google-Places-compatible venue search API. It
// implements ports.VenueSearcher and ports.Geocoder.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a places client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// categoryTypes maps itinerary categories to provider place types.
var categoryTypes = map[domain.StopCategory]string{
	domain.CategoryCafe:       "cafe",
	domain.CategoryRestaurant: "restaurant",
	domain.CategoryBar:        "bar",
	domain.CategoryActivity:   "tourist_attraction",
	domain.CategoryShopping:   "shopping_mall",
	domain.CategoryCulture:    "museum",
	domain.CategoryNature:     "park",
	domain.CategoryRest:       "spa",
}

type placesResponse struct {
	Results []placeResult `json:"results"`
	Status  string        `json:"status"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Geometry         geometry `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Vicinity         string   `json:"vicinity"`
	Types            []string `json:"types"`
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

// SearchVenues returns up to limit candidates around center.
func (c *Client) SearchVenues(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lon))
	q.Set("radius", fmt.Sprintf("%.0f", radiusMeters))
	if keyword != "" {
		q.Set("keyword", keyword)
	}
	if t, ok := categoryTypes[domain.StopCategory(category)]; ok {
		q.Set("type", t)
	}

	results, err := c.nearbySearch(ctx, q)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.VenueCandidate, 0, len(results))
	for _, r := range results {
		if minRating > 0 && r.Rating < minRating {
			continue
		}
		candidates = append(candidates, toCandidate(r))
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

// SearchStations returns transit stations around center.
func (c *Client) SearchStations(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.VenueCandidate, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lon))
	q.Set("radius", fmt.Sprintf("%.0f", radiusMeters))
	q.Set("type", "transit_station")

	results, err := c.nearbySearch(ctx, q)
	if err != nil {
		return nil, err
	}

	stations := make([]domain.VenueCandidate, 0, len(results))
	for _, r := range results {
		stations = append(stations, toCandidate(r))
	}
	return stations, nil
}

// ReverseGeocode resolves a coordinate to a formatted address.
func (c *Client) ReverseGeocode(ctx context.Context, p domain.GeoPoint) (string, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", p.Lat, p.Lon))
	q.Set("key", c.apiKey)

	var out struct {
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/maps/api/geocode/json", q, &out); err != nil {
		return "", err
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return "", domain.E(domain.KindNotFound, "no address for %.5f,%.5f", p.Lat, p.Lon)
	}
	return out.Results[0].FormattedAddress, nil
}

func (c *Client) nearbySearch(ctx context.Context, q url.Values) ([]placeResult, error) {
	q.Set("key", c.apiKey)

	var out placesResponse
	if err := c.getJSON(ctx, "/maps/api/place/nearbysearch/json", q, &out); err != nil {
		return nil, err
	}
	switch out.Status {
	case "OK", "ZERO_RESULTS":
		return out.Results, nil
	default:
		return nil, domain.E(domain.KindUpstream, "places provider status %s", out.Status)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapE(domain.KindUpstream, err, "places provider request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.E(domain.KindUpstream, "places provider returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapE(domain.KindUpstream, err, "decode places response")
	}
	return nil
}

func toCandidate(r placeResult) domain.VenueCandidate {
	return domain.VenueCandidate{
		ID:          r.PlaceID,
		Name:        r.Name,
		Location:    domain.GeoPoint{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		Rating:      r.Rating,
		RatingCount: r.UserRatingsTotal,
		Address:     r.Vicinity,
		Categories:  r.Types,
	}
}
