// Package roadnet holds the in-memory road network index. The graph is
// built once at startup and never mutated afterwards, so all query methods
// are safe for concurrent use.
package roadnet

import (
	"container/heap"
	"math"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/pkg/geospatial"
)

// Weight selects the edge metric used by shortest-path queries.
type Weight string

const (
	WeightDistance Weight = "distance" // meters
	WeightTime     Weight = "time"     // seconds
)

// Node is a vertex of the road network.
type Node struct {
	ID       int64           `json:"id"`
	Location domain.GeoPoint `json:"location"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From       int64   `json:"from"`
	To         int64   `json:"to"`
	DistanceM  float64 `json:"distance_m"`
	TravelSecs float64 `json:"travel_secs"`
}

type halfEdge struct {
	to        int
	distanceM float64
	travelSec float64
}

// cell grid resolution for nearest-node lookup, in degrees.
// 0.005 deg is roughly 500 m of latitude.
const cellSizeDeg = 0.005

type cellKey struct{ x, y int32 }

// Graph is the immutable road network index.
type Graph struct {
	nodes []Node
	byID  map[int64]int
	adj   [][]halfEdge
	cells map[cellKey][]int
}

// Build constructs a graph from nodes and directed edges. Edges referencing
// unknown nodes are ignored. Negative weights are clamped to zero so the
// shortest-path invariant always holds.
func Build(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes: make([]Node, len(nodes)),
		byID:  make(map[int64]int, len(nodes)),
		adj:   make([][]halfEdge, len(nodes)),
		cells: make(map[cellKey][]int),
	}
	copy(g.nodes, nodes)
	for i, n := range g.nodes {
		g.byID[n.ID] = i
		g.cells[cellOf(n.Location)] = append(g.cells[cellOf(n.Location)], i)
	}
	for _, e := range edges {
		from, ok := g.byID[e.From]
		if !ok {
			continue
		}
		to, ok := g.byID[e.To]
		if !ok {
			continue
		}
		g.adj[from] = append(g.adj[from], halfEdge{
			to:        to,
			distanceM: math.Max(0, e.DistanceM),
			travelSec: math.Max(0, e.TravelSecs),
		})
	}
	return g
}

func cellOf(p domain.GeoPoint) cellKey {
	return cellKey{
		x: int32(math.Floor(p.Lon / cellSizeDeg)),
		y: int32(math.Floor(p.Lat / cellSizeDeg)),
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges in the graph.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adj {
		n += len(edges)
	}
	return n
}

// Nodes returns the backing node slice. Callers must not modify it.
func (g *Graph) Nodes() []Node { return g.nodes }

// NodeByID returns the node with the given ID.
func (g *Graph) NodeByID(id int64) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// NearestNode snaps a coordinate to the closest graph node within
// maxRadiusM meters. It expands the cell-grid search ring by ring and
// fails with KindUnreachable when nothing is inside the radius.
func (g *Graph) NearestNode(p domain.GeoPoint, maxRadiusM float64) (int64, error) {
	if len(g.nodes) == 0 {
		return 0, domain.E(domain.KindUnreachable, "road network is empty")
	}
	center := cellOf(p)

	// Longitude cells shrink towards the poles, so both the ring budget
	// and the stop condition scale with the local meters per degree. The
	// budget denominator is clamped to keep near-polar misses bounded.
	metersPerDegLon := 111320.0 * math.Abs(math.Cos(p.Lat*math.Pi/180))
	maxRing := int(math.Ceil(maxRadiusM/(cellSizeDeg*math.Max(metersPerDegLon, 5566.0)))) + 1

	bestIdx := -1
	bestDist := math.Inf(1)
	for ring := 0; ring <= maxRing; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				// only the ring's border; inner cells were scanned already
				if ring > 0 && abs(dx) != ring && abs(dy) != ring {
					continue
				}
				for _, idx := range g.cells[cellKey{x: center.x + int32(dx), y: center.y + int32(dy)}] {
					d := geospatial.Haversine(p.Lat, p.Lon, g.nodes[idx].Location.Lat, g.nodes[idx].Location.Lon)
					if d < bestDist {
						bestIdx, bestDist = idx, d
					}
				}
			}
		}
		// ring*cellSizeDeg*metersPerDegLon lower-bounds the distance to
		// every cell of ring+1; once that exceeds the best hit, stop
		if bestIdx >= 0 && float64(ring)*cellSizeDeg*metersPerDegLon > bestDist {
			break
		}
	}
	if bestIdx < 0 || bestDist > maxRadiusM {
		return 0, domain.E(domain.KindUnreachable, "no road node within %.0f m of (%.5f, %.5f)", maxRadiusM, p.Lat, p.Lon)
	}
	return g.nodes[bestIdx].ID, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ShortestPathDistance runs Dijkstra from a to b over the chosen weight and
// returns the path cost. Fails with KindUnreachable when no path exists.
func (g *Graph) ShortestPathDistance(a, b int64, w Weight) (float64, error) {
	from, ok := g.byID[a]
	if !ok {
		return 0, domain.E(domain.KindNotFound, "unknown node %d", a)
	}
	to, ok := g.byID[b]
	if !ok {
		return 0, domain.E(domain.KindNotFound, "unknown node %d", b)
	}
	dist := g.dijkstra(from, to, w)
	if math.IsInf(dist[to], 1) {
		return 0, domain.E(domain.KindUnreachable, "no path from node %d to node %d", a, b)
	}
	return dist[to], nil
}

// DistancesFrom runs a full Dijkstra from the given node and returns the
// cost to every node index, +Inf for unreachable ones. The resolver uses
// one sweep per participant.
func (g *Graph) DistancesFrom(id int64, w Weight) ([]float64, error) {
	from, ok := g.byID[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "unknown node %d", id)
	}
	return g.dijkstra(from, -1, w), nil
}

// IndexOf returns the slice index for a node ID.
func (g *Graph) IndexOf(id int64) (int, bool) {
	i, ok := g.byID[id]
	return i, ok
}

// dijkstra computes shortest paths from src. When target >= 0 the search
// stops as soon as the target settles.
func (g *Graph) dijkstra(src, target int, w Weight) []float64 {
	dist := make([]float64, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[src] = 0

	pq := &nodeQueue{{idx: src, cost: 0}}
	settled := make([]bool, len(g.nodes))
	for pq.Len() > 0 {
		item := heap.Pop(pq).(nodeItem)
		if settled[item.idx] {
			continue
		}
		settled[item.idx] = true
		if item.idx == target {
			break
		}
		for _, e := range g.adj[item.idx] {
			cost := e.distanceM
			if w == WeightTime {
				cost = e.travelSec
			}
			if next := item.cost + cost; next < dist[e.to] {
				dist[e.to] = next
				heap.Push(pq, nodeItem{idx: e.to, cost: next})
			}
		}
	}
	return dist
}

type nodeItem struct {
	idx  int
	cost float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
