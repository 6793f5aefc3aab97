package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/pkg/metrics"
)

// Client answers point-to-point travel queries through a directions API.
// It implements ports.TravelTimeProvider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a directions client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

var modeParams = map[domain.TransportMode]string{
	domain.ModeWalking: "walking",
	domain.ModeTransit: "transit",
	domain.ModeDriving: "driving",
}

type directionsResponse struct {
	Routes []struct {
		Legs []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
	Status string `json:"status"`
}

// GetTravelTime returns the provider's duration and distance for one leg.
// A reachable provider with no route yields OK=false and no error; callers
// decide whether to fall back to an estimate.
func (c *Client) GetTravelTime(ctx context.Context, start, goal domain.GeoPoint, mode domain.TransportMode) (domain.TravelEstimate, error) {
	param, ok := modeParams[mode]
	if !ok {
		return domain.TravelEstimate{}, domain.E(domain.KindInvalid, "unsupported travel mode %q", mode)
	}
	metrics.TravelLookups.WithLabelValues(param).Inc()

	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", start.Lat, start.Lon))
	q.Set("destination", fmt.Sprintf("%f,%f", goal.Lat, goal.Lon))
	q.Set("mode", param)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/maps/api/directions/json?"+q.Encode(), nil)
	if err != nil {
		return domain.TravelEstimate{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.TravelFallbacks.WithLabelValues(param).Inc()
		return domain.TravelEstimate{}, domain.WrapE(domain.KindUpstream, err, "directions request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TravelFallbacks.WithLabelValues(param).Inc()
		return domain.TravelEstimate{}, domain.E(domain.KindUpstream, "directions provider returned %d", resp.StatusCode)
	}

	var out directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.TravelFallbacks.WithLabelValues(param).Inc()
		return domain.TravelEstimate{}, domain.WrapE(domain.KindUpstream, err, "decode directions response")
	}

	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.TravelEstimate{OK: false}, nil
	default:
		metrics.TravelFallbacks.WithLabelValues(param).Inc()
		return domain.TravelEstimate{}, domain.E(domain.KindUpstream, "directions provider status %s", out.Status)
	}

	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return domain.TravelEstimate{OK: false}, nil
	}

	var durSec, distM int
	for _, leg := range out.Routes[0].Legs {
		durSec += leg.Duration.Value
		distM += leg.Distance.Value
	}
	return domain.TravelEstimate{DurationSec: durSec, DistanceM: distM, OK: true}, nil
}
