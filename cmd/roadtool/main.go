package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/roadnet"
	"github.com/aldatz/topagune/internal/core/usecases"
)

// roadtool inspects road-network datasets and runs ad-hoc fairness
// queries against them, without starting the API.
//
//	roadtool stats <dataset.json>
//	roadtool snap <dataset.json> <lat,lon>
//	roadtool center <dataset.json> <lat,lon> [<lat,lon> ...]
func main() {
	if len(os.Args) < 3 {
		usage()
	}

	graph, err := roadnet.Load(os.Args[2])
	if err != nil {
		log.Fatalf("load %s: %v", os.Args[2], err)
	}

	switch os.Args[1] {
	case "stats":
		fmt.Printf("nodes: %d\n", graph.NodeCount())
		fmt.Printf("edges: %d\n", graph.EdgeCount())

	case "snap":
		if len(os.Args) < 4 {
			usage()
		}
		p := parsePoint(os.Args[3])
		nodeID, err := graph.NearestNode(p, 2000)
		if err != nil {
			log.Fatalf("snap: %v", err)
		}
		node, _ := graph.NodeByID(nodeID)
		fmt.Printf("node %d at %.6f,%.6f\n", node.ID, node.Location.Lat, node.Location.Lon)

	case "center":
		if len(os.Args) < 4 {
			usage()
		}
		var coords []domain.GeoPoint
		for _, arg := range os.Args[3:] {
			coords = append(coords, parsePoint(arg))
		}

		svc := usecases.NewMeetingPointService(graph, usecases.NewBusyAreaAdjuster(nil, usecases.DefaultBusyAreaConfig()),
			nil, nil, nil, nil, usecases.SynthesisConfig{})
		candidates, err := svc.Resolve(context.Background(), coords, roadnet.WeightDistance, 3)
		if err != nil {
			log.Fatalf("resolve: %v", err)
		}
		for i, c := range candidates {
			fmt.Printf("%d. node %d at %.6f,%.6f  max %.0fm  sum %.0fm\n",
				i+1, c.NodeID, c.Location.Lat, c.Location.Lon, c.MaxDistanceM, c.SumDistanceM)
		}

	default:
		usage()
	}
}

func parsePoint(s string) domain.GeoPoint {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		log.Fatalf("bad coordinate %q, want lat,lon", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		log.Fatalf("bad coordinate %q, want lat,lon", s)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		log.Fatalf("coordinate %q out of range", s)
	}
	return p
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  roadtool stats  <dataset.json>")
	fmt.Fprintln(os.Stderr, "  roadtool snap   <dataset.json> <lat,lon>")
	fmt.Fprintln(os.Stderr, "  roadtool center <dataset.json> <lat,lon> [<lat,lon> ...]")
	os.Exit(2)
}
