package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
)

const testLatitude = 28.6139

func testStop(identifier string, name string, latitude float64, longitude float64, routes ...string) transit.Stop {
	return transit.Stop{
		PrimaryIdentifier: identifier,
		Name:              name,
		Location:          transit.Location{Latitude: latitude, Longitude: longitude},
		Routes:            routes,
	}
}

// Network under test: two short routes joining at STOP-S3, plus a direct
// route between the endpoints that takes a long detour north. The two-route
// path is faster even with the transfer penalty; the detour wins on
// transfers.
func testTopologyManager(t *testing.T) *topology.Manager {
	t.Helper()

	stops := []transit.Stop{
		testStop("STOP-S1", "Central", testLatitude, 77.2000, "ROUTE-R1", "ROUTE-R3"),
		testStop("STOP-S2", "Market", testLatitude, 77.2100, "ROUTE-R1"),
		testStop("STOP-S3", "Museum", testLatitude, 77.2200, "ROUTE-R1", "ROUTE-R2"),
		testStop("STOP-S4", "Stadium", testLatitude, 77.2300, "ROUTE-R2"),
		testStop("STOP-S5", "Depot", testLatitude, 77.2400, "ROUTE-R2", "ROUTE-R3"),
		testStop("STOP-D1", "Northern Bypass", 28.7000, 77.2200, "ROUTE-R3"),
		testStop("STOP-LONE", "Disused Terminal", testLatitude, 77.2500),
	}

	line := func(stopLongitudes ...float64) []transit.Location {
		polyline := make([]transit.Location, len(stopLongitudes))
		for index, longitude := range stopLongitudes {
			polyline[index] = transit.Location{Latitude: testLatitude, Longitude: longitude}
		}
		return polyline
	}

	routes := []transit.Route{
		{
			PrimaryIdentifier: "ROUTE-R1",
			Name:              "Central - Museum",
			ShortName:         "R1",
			Type:              transit.RouteTypeRegular,
			Stops:             []string{"STOP-S1", "STOP-S2", "STOP-S3"},
			Polyline:          line(77.2000, 77.2100, 77.2200),
			Fare:              25,
			NominalSpeedKPH:   36,
			Active:            true,
		},
		{
			PrimaryIdentifier: "ROUTE-R2",
			Name:              "Museum - Depot",
			ShortName:         "R2",
			Type:              transit.RouteTypeRegular,
			Stops:             []string{"STOP-S3", "STOP-S4", "STOP-S5"},
			Polyline:          line(77.2200, 77.2300, 77.2400),
			Fare:              30,
			NominalSpeedKPH:   36,
			Active:            true,
		},
		{
			PrimaryIdentifier: "ROUTE-R3",
			Name:              "Central - Depot via Bypass",
			ShortName:         "R3",
			Type:              transit.RouteTypeExpress,
			Stops:             []string{"STOP-S1", "STOP-D1", "STOP-S5"},
			Polyline: []transit.Location{
				{Latitude: testLatitude, Longitude: 77.2000},
				{Latitude: 28.7000, Longitude: 77.2200},
				{Latitude: testLatitude, Longitude: 77.2400},
			},
			Fare:            40,
			NominalSpeedKPH: 36,
			Active:          true,
		},
	}

	loaded, err := topology.Load(stops, routes)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	manager := topology.NewManager()
	manager.Swap(loaded)

	return manager
}

func testPlanner(t *testing.T) (*Planner, *topology.Manager) {
	manager := testTopologyManager(t)
	return NewPlanner(manager, DefaultConfig(), nil), manager
}

// rideSeconds sums the whole-second cost of each consecutive stop pair, the
// same accumulation a ride through the span pays.
func rideSeconds(t *testing.T, currentTopology *topology.Topology, routeRef string, fromIndex int, toIndex int) int64 {
	t.Helper()

	var total int64
	for index := fromIndex; index < toIndex; index++ {
		seconds, err := currentTopology.SegmentSeconds(routeRef, index, index+1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total += seconds
	}

	return total
}

func TestPlanDirectJourney(t *testing.T) {
	planner, manager := testPlanner(t)

	departAt := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)

	itineraries, err := planner.Plan(context.Background(), "STOP-S1", "STOP-S3", departAt, RankingByTime, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(itineraries) != 1 {
		t.Fatalf("expected 1 itinerary, got %d", len(itineraries))
	}

	itinerary := itineraries[0]
	if len(itinerary.Legs) != 1 || itinerary.Legs[0].Type != transit.ItineraryLegTypeRide {
		t.Fatalf("expected a single ride leg, got %+v", itinerary.Legs)
	}
	if itinerary.Legs[0].RouteIdentifier != "ROUTE-R1" {
		t.Fatalf("expected ROUTE-R1, got %s", itinerary.Legs[0].RouteIdentifier)
	}
	if itinerary.Transfers != 0 || itinerary.TotalFare != 25 {
		t.Fatalf("expected 0 transfers fare 25, got %d transfers fare %d", itinerary.Transfers, itinerary.TotalFare)
	}

	expectedSeconds := rideSeconds(t, manager.Current(), "ROUTE-R1", 0, 2)
	if itinerary.TotalSeconds != expectedSeconds {
		t.Fatalf("expected %d seconds, got %d", expectedSeconds, itinerary.TotalSeconds)
	}

	if !itinerary.DepartureTime.Equal(departAt) {
		t.Fatalf("expected departure %v, got %v", departAt, itinerary.DepartureTime)
	}
	if !itinerary.ArrivalTime.Equal(departAt.Add(time.Duration(expectedSeconds) * time.Second)) {
		t.Fatalf("arrival time does not match total seconds")
	}
}

func TestPlanRankings(t *testing.T) {
	planner, manager := testPlanner(t)

	byTime, err := planner.Plan(context.Background(), "STOP-S1", "STOP-S5", time.Now(), RankingByTime, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byTime) < 2 {
		t.Fatalf("expected both the transfer path and the direct detour, got %d", len(byTime))
	}

	// The transfer path is faster despite the penalty
	fastest := byTime[0]
	if fastest.Transfers != 1 {
		t.Fatalf("expected the fastest itinerary to use one transfer, got %d", fastest.Transfers)
	}
	if len(fastest.Legs) != 3 {
		t.Fatalf("expected ride/transfer/ride, got %d legs", len(fastest.Legs))
	}
	if fastest.Legs[1].Type != transit.ItineraryLegTypeTransfer || fastest.Legs[1].TransferStopRef != "STOP-S3" {
		t.Fatalf("expected a transfer at STOP-S3, got %+v", fastest.Legs[1])
	}
	if fastest.TotalFare != 55 {
		t.Fatalf("expected both route fares to add up to 55, got %d", fastest.TotalFare)
	}

	firstRide := rideSeconds(t, manager.Current(), "ROUTE-R1", 0, 2)
	secondRide := rideSeconds(t, manager.Current(), "ROUTE-R2", 0, 2)
	expectedSeconds := firstRide + DefaultConfig().TransferPenaltySeconds + secondRide
	if fastest.TotalSeconds != expectedSeconds {
		t.Fatalf("expected %d seconds, got %d", expectedSeconds, fastest.TotalSeconds)
	}

	// The transfer ranking prefers the direct detour
	byTransfers, err := planner.Plan(context.Background(), "STOP-S1", "STOP-S5", time.Now(), RankingByTransfers, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	simplest := byTransfers[0]
	if simplest.Transfers != 0 {
		t.Fatalf("expected the transfer ranking to surface the direct route, got %d transfers", simplest.Transfers)
	}
	if simplest.Legs[0].RouteIdentifier != "ROUTE-R3" || simplest.TotalFare != 40 {
		t.Fatalf("expected direct ROUTE-R3 fare 40, got %s fare %d", simplest.Legs[0].RouteIdentifier, simplest.TotalFare)
	}
	if simplest.TotalSeconds <= fastest.TotalSeconds {
		t.Fatalf("the detour should cost more time than the transfer path")
	}
}

func TestPlanUnknownStop(t *testing.T) {
	planner, _ := testPlanner(t)

	if _, err := planner.Plan(context.Background(), "STOP-NOPE", "STOP-S3", time.Now(), RankingByTime, 5); !errors.Is(err, transit.UnknownStopError) {
		t.Fatalf("expected UnknownStopError, got %v", err)
	}
}

func TestPlanSameOriginAndDestination(t *testing.T) {
	planner, _ := testPlanner(t)

	itineraries, err := planner.Plan(context.Background(), "STOP-S1", "STOP-S1", time.Now(), RankingByTime, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(itineraries) != 0 {
		t.Fatalf("expected an empty result, got %d itineraries", len(itineraries))
	}
}

func TestPlanUnreachableDestination(t *testing.T) {
	planner, _ := testPlanner(t)

	itineraries, err := planner.Plan(context.Background(), "STOP-S1", "STOP-LONE", time.Now(), RankingByTime, 5)
	if err != nil {
		t.Fatalf("no feasible journey is not an error, got %v", err)
	}
	if len(itineraries) != 0 {
		t.Fatalf("expected an empty result, got %d itineraries", len(itineraries))
	}
}

func TestPlanCancelledContext(t *testing.T) {
	planner, _ := testPlanner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := planner.Plan(ctx, "STOP-S1", "STOP-S5", time.Now(), RankingByTime, 5); !errors.Is(err, transit.SearchTimedOutError) {
		t.Fatalf("expected SearchTimedOutError, got %v", err)
	}
}

func TestPlanBoth(t *testing.T) {
	planner, _ := testPlanner(t)

	results, err := planner.PlanBoth(context.Background(), "STOP-S1", "STOP-S5", time.Now(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[RankingByTime][0].Transfers != 1 {
		t.Fatalf("expected the time view to lead with the transfer path")
	}
	if results[RankingByTransfers][0].Transfers != 0 {
		t.Fatalf("expected the transfer view to lead with the direct route")
	}
}
