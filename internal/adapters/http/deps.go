package http

import (
	"github.com/nats-io/nats.go"

	"github.com/aldatz/topagune/internal/adapters/postgres"
	"github.com/aldatz/topagune/internal/adapters/valkey"
	"github.com/aldatz/topagune/internal/core/roadnet"
	"github.com/aldatz/topagune/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Meetings      *usecases.MeetingService
	MeetingPoints *usecases.MeetingPointService
	Synthesis     *usecases.SynthesisService
	Venues        *usecases.VenueSearchService
	Graph         *roadnet.Graph
	NATS          *nats.Conn
	DB            *postgres.DB
	Cache         *valkey.Cache
}
