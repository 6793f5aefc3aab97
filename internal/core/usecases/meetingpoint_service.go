package usecases

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
	"github.com/aldatz/topagune/internal/core/roadnet"
	"github.com/aldatz/topagune/internal/pkg/geospatial"
	"github.com/aldatz/topagune/internal/pkg/metrics"
)

// MeetingPointService finds fair meeting points on the road network.
type MeetingPointService struct {
	graph       *roadnet.Graph
	adjuster    *BusyAreaAdjuster
	geocoder    ports.Geocoder
	meetings    ports.MeetingRepository
	itineraries ports.ItineraryRepository
	events      ports.EventPublisher
	cfg         SynthesisConfig
}

// NewMeetingPointService creates the resolver. The graph is immutable
// shared state; the service never writes to it.
func NewMeetingPointService(
	graph *roadnet.Graph,
	adjuster *BusyAreaAdjuster,
	geocoder ports.Geocoder,
	meetings ports.MeetingRepository,
	itineraries ports.ItineraryRepository,
	events ports.EventPublisher,
	cfg SynthesisConfig,
) *MeetingPointService {
	return &MeetingPointService{
		graph:       graph,
		adjuster:    adjuster,
		geocoder:    geocoder,
		meetings:    meetings,
		itineraries: itineraries,
		events:      events,
		cfg:         cfg.withDefaults(),
	}
}

// Resolve computes up to topK diversified meeting-point candidates for the
// given participant coordinates, best first.
//
// The primary candidate minimizes the worst-case network distance over all
// participants (graph 1-center). Ties break on the smaller distance sum,
// then on proximity to the coordinate centroid. Participants that cannot
// be snapped onto the network are excluded rather than fatal; an empty
// usable set fails with KindNotFound.
func (s *MeetingPointService) Resolve(ctx context.Context, coords []domain.GeoPoint, weight roadnet.Weight, topK int) ([]domain.MeetingPointCandidate, error) {
	if topK <= 0 {
		topK = 3
	}

	usable := coords[:0:0]
	for _, c := range coords {
		if c.Valid() {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return nil, domain.E(domain.KindNotFound, "no participant coordinates to resolve")
	}

	// Snap each participant and sweep distances from their node.
	var sweeps [][]float64
	for _, c := range usable {
		nodeID, err := s.graph.NearestNode(c, s.cfg.SnapRadiusM)
		if err != nil {
			slog.Warn("participant excluded from minimax", "lat", c.Lat, "lon", c.Lon, "error", err)
			continue
		}
		dist, err := s.graph.DistancesFrom(nodeID, weight)
		if err != nil {
			slog.Warn("participant excluded from minimax", "node", nodeID, "error", err)
			continue
		}
		sweeps = append(sweeps, dist)
	}
	if len(sweeps) == 0 {
		return nil, domain.E(domain.KindNotFound, "no participant could be snapped to the road network")
	}

	centroid := domain.Centroid(usable)
	nodes := s.graph.Nodes()

	// Bound the candidate set for very large graphs.
	var box domain.Bounds
	boundScan := s.graph.NodeCount() > s.cfg.FullScanNodeLimit
	if boundScan {
		box = domain.BoundsOf(usable, 0.2)
	}

	candidates := make([]scoredNode, 0, len(nodes))
	for i, n := range nodes {
		if boundScan && !box.Contains(n.Location) {
			continue
		}
		worst, sum := 0.0, 0.0
		reachable := true
		for _, dist := range sweeps {
			d := dist[i]
			if math.IsInf(d, 1) {
				reachable = false
				break
			}
			if d > worst {
				worst = d
			}
			sum += d
		}
		if !reachable {
			continue
		}
		candidates = append(candidates, scoredNode{
			idx:      i,
			max:      worst,
			sum:      sum,
			toCenter: geospatial.Haversine(centroid.Lat, centroid.Lon, n.Location.Lat, n.Location.Lon),
		})
	}
	if len(candidates) == 0 {
		return nil, domain.E(domain.KindNotFound, "no node is reachable from every participant")
	}

	better := func(a, b scoredNode) bool {
		if a.max != b.max {
			return a.max < b.max
		}
		if a.sum != b.sum {
			return a.sum < b.sum
		}
		return a.toCenter < b.toCenter
	}

	// Greedy top-K with a minimum separation radius between picks.
	var picked []scoredNode
	for len(picked) < topK {
		best := scoredNode{idx: -1}
		for _, c := range candidates {
			if tooClose(nodes, picked, c.idx, s.cfg.MinCandidateSeparationM) {
				continue
			}
			if best.idx < 0 || better(c, best) {
				best = c
			}
		}
		if best.idx < 0 {
			break
		}
		picked = append(picked, best)
	}

	results := make([]domain.MeetingPointCandidate, 0, len(picked))
	for _, p := range picked {
		node := nodes[p.idx]
		adjusted := s.adjuster.Adjust(ctx, node.Location)

		cand := domain.MeetingPointCandidate{
			NodeID:       node.ID,
			Location:     adjusted.Location,
			MaxDistanceM: p.max,
			SumDistanceM: p.sum,
			AdjustReason: adjusted.Reason,
		}
		if s.geocoder != nil {
			if addr, err := s.geocoder.ReverseGeocode(ctx, adjusted.Location); err == nil {
				cand.Address = addr
			}
		}
		results = append(results, cand)
	}

	metrics.MeetingPointResolutions.Inc()
	return results, nil
}

// scoredNode is a graph node annotated with minimax statistics.
type scoredNode struct {
	idx      int
	max      float64
	sum      float64
	toCenter float64
}

func tooClose(nodes []roadnet.Node, picked []scoredNode, idx int, separationM float64) bool {
	for _, p := range picked {
		if p.idx == idx {
			return true
		}
		d := geospatial.Haversine(
			nodes[p.idx].Location.Lat, nodes[p.idx].Location.Lon,
			nodes[idx].Location.Lat, nodes[idx].Location.Lon,
		)
		if d < separationM {
			return true
		}
	}
	return false
}

// ResolveForMeeting resolves candidates from the meeting's participants,
// persists the primary candidate as the meeting-point marker stop, and
// publishes the result.
func (s *MeetingPointService) ResolveForMeeting(ctx context.Context, meetingID string, topK int) ([]domain.MeetingPointCandidate, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, domain.WrapE(domain.KindNotFound, err, "meeting %s", meetingID)
	}

	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	coords := make([]domain.GeoPoint, 0, len(participants))
	for _, p := range participants {
		if p.Start != nil {
			coords = append(coords, *p.Start)
		}
	}

	candidates, err := s.Resolve(ctx, coords, roadnet.WeightDistance, topK)
	if err != nil {
		return nil, err
	}

	primary := candidates[0]
	marker := domain.ItineraryStop{
		MeetingID: meetingID,
		Position:  0,
		Name:      "Meeting point",
		LabelName: meeting.Title,
		Address:   primary.Address,
		Location:  primary.Location,
		Category:  domain.CategoryMeetingPoint,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.itineraries.UpsertMeetingPoint(ctx, meetingID, marker); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishMeetingPointResolved(ctx, meetingID, primary); err != nil {
			slog.Warn("publish meeting point event failed", "meeting_id", meetingID, "error", err)
		}
	}
	return candidates, nil
}
