package roadnet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/pkg/geospatial"
)

// dataset is the on-disk JSON layout of a road network extract.
type dataset struct {
	Nodes []datasetNode `json:"nodes"`
	Edges []datasetEdge `json:"edges"`
}

type datasetNode struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type datasetEdge struct {
	From       int64   `json:"from"`
	To         int64   `json:"to"`
	DistanceM  float64 `json:"distance_m"`
	TravelSecs float64 `json:"travel_secs"`
	Oneway     bool    `json:"oneway,omitempty"`
}

// Load reads a road network extract from a JSON file and builds the index.
// Edges without an explicit distance get the haversine length of their
// endpoints; edges without a travel time get one derived from 30 km/h.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read road dataset: %w", err)
	}

	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse road dataset %s: %w", path, err)
	}
	if len(ds.Nodes) == 0 {
		return nil, fmt.Errorf("road dataset %s has no nodes", path)
	}

	nodes := make([]Node, 0, len(ds.Nodes))
	byID := make(map[int64]domain.GeoPoint, len(ds.Nodes))
	for _, n := range ds.Nodes {
		p := domain.GeoPoint{Lat: n.Lat, Lon: n.Lon}
		if !p.Valid() {
			return nil, fmt.Errorf("road dataset %s: node %d has invalid coordinate (%.5f, %.5f)", path, n.ID, n.Lat, n.Lon)
		}
		nodes = append(nodes, Node{ID: n.ID, Location: p})
		byID[n.ID] = p
	}

	edges := make([]Edge, 0, len(ds.Edges)*2)
	for _, e := range ds.Edges {
		from, okF := byID[e.From]
		to, okT := byID[e.To]
		if !okF || !okT {
			continue
		}
		distM := e.DistanceM
		if distM <= 0 {
			distM = geospatial.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
		}
		secs := e.TravelSecs
		if secs <= 0 {
			secs = distM / (30.0 / 3.6) // 30 km/h default
		}
		edges = append(edges, Edge{From: e.From, To: e.To, DistanceM: distM, TravelSecs: secs})
		if !e.Oneway {
			edges = append(edges, Edge{From: e.To, To: e.From, DistanceM: distM, TravelSecs: secs})
		}
	}

	return Build(nodes, edges), nil
}
