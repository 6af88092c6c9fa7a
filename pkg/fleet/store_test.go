package fleet

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
)

const testLatitude = 28.6139

// lonOffset converts a distance east along the test latitude into degrees of
// longitude, close enough for sub-tolerance positioning.
func lonOffset(metres float64) float64 {
	return metres / (111320 * math.Cos(testLatitude*math.Pi/180))
}

func testTopologyManager(t *testing.T) *topology.Manager {
	t.Helper()

	stops := []transit.Stop{
		{PrimaryIdentifier: "STOP-S1", Name: "Central", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2000}, Routes: []string{"ROUTE-R1"}},
		{PrimaryIdentifier: "STOP-S2", Name: "Market", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2100}, Routes: []string{"ROUTE-R1"}},
		{PrimaryIdentifier: "STOP-S3", Name: "Museum", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2200}, Routes: []string{"ROUTE-R1"}},
		{PrimaryIdentifier: "STOP-S4", Name: "Depot", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2300}, Routes: []string{"ROUTE-R1"}},
		{PrimaryIdentifier: "STOP-T1", Name: "Temple", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2050}, Routes: []string{"ROUTE-R2"}},
		{PrimaryIdentifier: "STOP-T2", Name: "Hospital", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2150}, Routes: []string{"ROUTE-R2"}},
		{PrimaryIdentifier: "STOP-T3", Name: "University", Location: transit.Location{Latitude: testLatitude, Longitude: 77.2250}, Routes: []string{"ROUTE-R2"}},
	}

	routes := []transit.Route{
		{
			PrimaryIdentifier: "ROUTE-R1",
			Name:              "Central - Depot",
			ShortName:         "R1",
			Type:              transit.RouteTypeRegular,
			Stops:             []string{"STOP-S1", "STOP-S2", "STOP-S3", "STOP-S4"},
			Polyline: []transit.Location{
				{Latitude: testLatitude, Longitude: 77.2000},
				{Latitude: testLatitude, Longitude: 77.2300},
			},
			Fare:            25,
			NominalSpeedKPH: 36,
			Active:          true,
		},
		{
			PrimaryIdentifier: "ROUTE-R2",
			Name:              "Temple - University",
			ShortName:         "R2",
			Type:              transit.RouteTypeRegular,
			Stops:             []string{"STOP-T1", "STOP-T2", "STOP-T3"},
			Polyline: []transit.Location{
				{Latitude: testLatitude, Longitude: 77.2050},
				{Latitude: testLatitude, Longitude: 77.2250},
			},
			Fare:            30,
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

func testUpdate(longitude float64, speedKPH float64, timestamp time.Time) TelemetryUpdate {
	return TelemetryUpdate{
		VehicleIdentifier: "VEHICLE-V1",
		RouteIdentifier:   "ROUTE-R1",
		Location:          transit.Location{Latitude: testLatitude, Longitude: longitude},
		SpeedKPH:          speedKPH,
		Occupancy:         0.5,
		Timestamp:         timestamp,
	}
}

func TestApplyTelemetryUnknownRoute(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	update := testUpdate(77.2000, 20, time.Now())
	update.RouteIdentifier = "ROUTE-NOPE"

	if err := store.ApplyTelemetry(update); !errors.Is(err, transit.UnknownRouteError) {
		t.Fatalf("expected UnknownRouteError, got %v", err)
	}

	if _, err := store.Vehicle("VEHICLE-V1"); !errors.Is(err, transit.UnknownVehicleError) {
		t.Fatalf("rejected update should not create a vehicle")
	}
}

func TestApplyTelemetryStaleUpdate(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	base := time.Now()

	if err := store.ApplyTelemetry(testUpdate(77.2050, 20, base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Older than last applied
	if err := store.ApplyTelemetry(testUpdate(77.2150, 20, base.Add(-time.Minute))); !errors.Is(err, transit.StaleUpdateError) {
		t.Fatalf("expected StaleUpdateError, got %v", err)
	}

	// Equal timestamps do not advance either
	if err := store.ApplyTelemetry(testUpdate(77.2150, 20, base)); !errors.Is(err, transit.StaleUpdateError) {
		t.Fatalf("expected StaleUpdateError for equal timestamp, got %v", err)
	}

	vehicle, err := store.Vehicle("VEHICLE-V1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vehicle.Location.Longitude != 77.2050 {
		t.Fatalf("stale update must not change state, got longitude %f", vehicle.Location.Longitude)
	}
}

func TestApplyTelemetryDerivesNextStop(t *testing.T) {
	manager := testTopologyManager(t)
	store := NewStore(manager, DefaultConfig(), nil)

	// Exactly at the second stop: the stop itself is behind, the next stop is
	// the third
	if err := store.ApplyTelemetry(testUpdate(77.2100, 20, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S3" {
		t.Fatalf("expected next stop STOP-S3, got %s", vehicle.NextStopRef)
	}

	distance, err := manager.Current().SegmentDistance("ROUTE-R1", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := int64(math.Round(distance / (20.0 / 3.6)))
	if vehicle.NextStopETASeconds < expected-2 || vehicle.NextStopETASeconds > expected+2 {
		t.Fatalf("expected ETA around %d seconds, got %d", expected, vehicle.NextStopETASeconds)
	}
}

func TestApplyTelemetrySlowSpeedFallsBackToNominal(t *testing.T) {
	manager := testTopologyManager(t)
	store := NewStore(manager, DefaultConfig(), nil)

	// 2 km/h is below the minimum, so the ETA uses the route's 36 km/h
	if err := store.ApplyTelemetry(testUpdate(77.2100, 2, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")

	distance, _ := manager.Current().SegmentDistance("ROUTE-R1", 1, 2)
	expected := int64(math.Round(distance / 10.0))
	if vehicle.NextStopETASeconds < expected-2 || vehicle.NextStopETASeconds > expected+2 {
		t.Fatalf("expected ETA around %d seconds, got %d", expected, vehicle.NextStopETASeconds)
	}
}

func TestApplyTelemetryArrivalHysteresis(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	base := time.Now()
	stopLongitude := 77.2100

	// 10 metres short of the second stop: inside the arrival tolerance
	if err := store.ApplyTelemetry(testUpdate(stopLongitude-lonOffset(10), 20, base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S2" || vehicle.NextStopETASeconds != 0 {
		t.Fatalf("expected arrived at STOP-S2, got %s eta %d", vehicle.NextStopRef, vehicle.NextStopETASeconds)
	}

	// Jitter to 10 metres past the stop: still held at the same stop
	if err := store.ApplyTelemetry(testUpdate(stopLongitude+lonOffset(10), 20, base.Add(time.Second))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ = store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S2" || vehicle.NextStopETASeconds != 0 {
		t.Fatalf("expected hold at STOP-S2, got %s eta %d", vehicle.NextStopRef, vehicle.NextStopETASeconds)
	}

	// 40 metres past releases the hold and advances to the third stop
	if err := store.ApplyTelemetry(testUpdate(stopLongitude+lonOffset(40), 20, base.Add(2*time.Second))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ = store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S3" {
		t.Fatalf("expected release to STOP-S3, got %s", vehicle.NextStopRef)
	}
	if vehicle.NextStopETASeconds == 0 {
		t.Fatalf("expected a positive ETA after release")
	}
}

func TestApplyTelemetryRouteChangeDropsArrivalHold(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	base := time.Now()

	// Held in the arrival clamp at the second stop of the first route
	if err := store.ApplyTelemetry(testUpdate(77.2100-lonOffset(10), 20, base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S2" || vehicle.NextStopETASeconds != 0 {
		t.Fatalf("expected arrived at STOP-S2, got %s eta %d", vehicle.NextStopRef, vehicle.NextStopETASeconds)
	}

	// Same position reassigned to the other route: the old stop index means
	// nothing there, the next stop comes from a fresh scan
	update := testUpdate(77.2100-lonOffset(10), 20, base.Add(time.Second))
	update.RouteIdentifier = "ROUTE-R2"
	if err := store.ApplyTelemetry(update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ = store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-T2" {
		t.Fatalf("expected next stop STOP-T2 after route change, got %s", vehicle.NextStopRef)
	}
	if vehicle.NextStopETASeconds == 0 {
		t.Fatalf("expected a positive ETA after route change")
	}
}

func TestApplyTelemetryBackwardReleaseKeepsHeldStopAhead(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	base := time.Now()
	stopLongitude := 77.2100

	if err := store.ApplyTelemetry(testUpdate(stopLongitude-lonOffset(10), 20, base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Jitter well behind the held stop: the stop is still ahead, so it must
	// not be skipped
	if err := store.ApplyTelemetry(testUpdate(stopLongitude-lonOffset(40), 20, base.Add(time.Second))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.NextStopRef != "STOP-S2" {
		t.Fatalf("expected STOP-S2 to stay ahead after backward jitter, got %s", vehicle.NextStopRef)
	}
	if vehicle.NextStopETASeconds == 0 {
		t.Fatalf("expected a positive ETA outside the arrival tolerance")
	}
}

func TestApplyTelemetryClampsOccupancy(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	update := testUpdate(77.2050, 20, time.Now())
	update.Occupancy = 1.8

	if err := store.ApplyTelemetry(update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.Occupancy != 1 {
		t.Fatalf("expected occupancy clamped to 1, got %f", vehicle.Occupancy)
	}
}

func TestSetStatus(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	if err := store.SetStatus("VEHICLE-NOPE", transit.VehicleStatusMaintenance); !errors.Is(err, transit.UnknownVehicleError) {
		t.Fatalf("expected UnknownVehicleError, got %v", err)
	}

	if err := store.ApplyTelemetry(testUpdate(77.2050, 20, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.SetStatus("VEHICLE-V1", transit.VehicleStatusMaintenance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.Status != transit.VehicleStatusMaintenance {
		t.Fatalf("expected maintenance status, got %s", vehicle.Status)
	}
}

func TestSnapshotIsSortedAndIsolated(t *testing.T) {
	store := NewStore(testTopologyManager(t), DefaultConfig(), nil)

	base := time.Now()
	for _, identifier := range []string{"VEHICLE-V2", "VEHICLE-V1"} {
		update := testUpdate(77.2050, 20, base)
		update.VehicleIdentifier = identifier
		if err := store.ApplyTelemetry(update); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(snapshot))
	}
	if snapshot[0].PrimaryIdentifier != "VEHICLE-V1" || snapshot[1].PrimaryIdentifier != "VEHICLE-V2" {
		t.Fatalf("expected sorted snapshot, got %s %s", snapshot[0].PrimaryIdentifier, snapshot[1].PrimaryIdentifier)
	}

	// Mutating a snapshot entry must not leak back into the store
	snapshot[0].Location.Longitude = 0

	vehicle, _ := store.Vehicle("VEHICLE-V1")
	if vehicle.Location.Longitude != 77.2050 {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}
