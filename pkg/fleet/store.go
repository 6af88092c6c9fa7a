package fleet

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

type Config struct {
	// Reported speeds below this threshold fall back to the route's nominal
	// speed for ETA purposes, so a vehicle idling at a light does not
	// produce an unbounded ETA
	MinimumSpeedKPH float64

	// Distance below which a vehicle counts as arrived at its next stop
	ArrivalToleranceMetres float64
}

func DefaultConfig() Config {
	return Config{
		MinimumSpeedKPH:        5,
		ArrivalToleranceMetres: 30,
	}
}

// TelemetryUpdate is one position report from a vehicle. Next stop and ETA
// are deliberately absent - they are derived against Topology, never trusted
// from the wire.
type TelemetryUpdate struct {
	VehicleIdentifier string `json:"vehicle_identifier"`
	RouteIdentifier   string `json:"route_identifier"`
	Registration      string `json:"registration,omitempty"`

	Location  transit.Location `json:"location"`
	SpeedKPH  float64          `json:"speed_kph"`
	Occupancy float64          `json:"occupancy"`
	Heading   float64          `json:"heading"`

	Timestamp time.Time `json:"timestamp"`
}

type vehicleRecord struct {
	mutex sync.Mutex

	// working state, owned by the record lock
	state transit.Vehicle

	// stop index currently held in the arrival clamp, -1 outside it
	arrivedStopIndex int

	// last published immutable value, read lock-free by Snapshot
	published atomic.Pointer[transit.Vehicle]
}

// Store keeps the best known state for every vehicle in the fleet. Updates
// for different vehicles apply fully in parallel; updates for the same
// vehicle serialise on its record lock.
type Store struct {
	topologyManager *topology.Manager
	config          Config
	metrics         *Collector

	mutex    sync.RWMutex
	vehicles map[string]*vehicleRecord
}

func NewStore(topologyManager *topology.Manager, config Config, metrics *Collector) *Store {
	return &Store{
		topologyManager: topologyManager,
		config:          config,
		metrics:         metrics,
		vehicles:        map[string]*vehicleRecord{},
	}
}

func (store *Store) record(vehicleIdentifier string) *vehicleRecord {
	store.mutex.RLock()
	record := store.vehicles[vehicleIdentifier]
	store.mutex.RUnlock()

	if record != nil {
		return record
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	if record = store.vehicles[vehicleIdentifier]; record != nil {
		return record
	}

	// Fleet membership is discovered from telemetry, not pre-declared
	record = &vehicleRecord{
		state: transit.Vehicle{
			PrimaryIdentifier: vehicleIdentifier,
			Status:            transit.VehicleStatusActive,
		},
		arrivedStopIndex: -1,
	}
	store.vehicles[vehicleIdentifier] = record

	if store.metrics != nil {
		store.metrics.TrackedVehicles.Set(float64(len(store.vehicles)))
	}

	return record
}

// ApplyTelemetry reconciles one position report against the current topology
// version and republishes the vehicle's derived state.
func (store *Store) ApplyTelemetry(update TelemetryUpdate) error {
	startTime := time.Now()

	currentTopology := store.topologyManager.Current()
	if currentTopology == nil || currentTopology.Route(update.RouteIdentifier) == nil {
		if store.metrics != nil {
			store.metrics.TelemetryRejected.Inc()
		}
		return transit.UnknownRouteError
	}

	record := store.record(update.VehicleIdentifier)

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.state.LastUpdated.IsZero() && !update.Timestamp.After(record.state.LastUpdated) {
		if store.metrics != nil {
			store.metrics.TelemetryStale.Inc()
		}
		return transit.StaleUpdateError
	}

	if update.RouteIdentifier != record.state.RouteIdentifier {
		// A held stop index is meaningless against another route's sequence
		record.arrivedStopIndex = -1
	}

	record.state.RouteIdentifier = update.RouteIdentifier
	if update.Registration != "" {
		record.state.Registration = update.Registration
	}
	record.state.Location = update.Location
	record.state.Speed = update.SpeedKPH
	record.state.Occupancy = math.Min(math.Max(update.Occupancy, 0), 1)
	record.state.Heading = update.Heading
	record.state.LastUpdated = update.Timestamp

	store.deriveProgress(currentTopology, record)

	published := record.state
	record.published.Store(&published)

	if store.metrics != nil {
		store.metrics.TelemetryApplied.Inc()
		store.metrics.ApplyDuration.Observe(time.Since(startTime).Seconds())
	}

	return nil
}

// deriveProgress recomputes next stop and ETA from the vehicle's position on
// its route polyline. Caller holds the record lock.
func (store *Store) deriveProgress(currentTopology *topology.Topology, record *vehicleRecord) {
	routeGeometry := currentTopology.Route(record.state.RouteIdentifier)
	route := routeGeometry.Route

	projection := routeGeometry.Project(record.state.Location)

	nextStopIndex := -1

	if record.arrivedStopIndex >= 0 && record.arrivedStopIndex < len(route.Stops) {
		distanceToHeld := routeGeometry.StopDistance(record.arrivedStopIndex) - projection.DistanceAlong

		if math.Abs(distanceToHeld) <= store.config.ArrivalToleranceMetres {
			// Still inside the arrival clamp of the held stop
			record.state.NextStopRef = route.Stops[record.arrivedStopIndex]
			record.state.NextStopETASeconds = 0
			return
		}

		if distanceToHeld < 0 {
			// Released forward past the stop - advance regardless of GPS
			// jitter so the now-passed stop never flickers back
			nextStopIndex = record.arrivedStopIndex + 1

			if nextStopIndex >= len(route.Stops) {
				nextStopIndex = len(route.Stops) - 1
			}
		}

		// A backward exit falls through to the normal scan - the held stop
		// is still ahead and must not be skipped
		record.arrivedStopIndex = -1
	}

	if nextStopIndex < 0 {
		for index := 0; index < len(route.Stops); index++ {
			if routeGeometry.StopDistance(index) > projection.DistanceAlong {
				nextStopIndex = index
				break
			}
		}

		if nextStopIndex < 0 {
			nextStopIndex = len(route.Stops) - 1
		}
	}

	remaining := routeGeometry.StopDistance(nextStopIndex) - projection.DistanceAlong
	if remaining < 0 {
		remaining = 0
	}

	record.state.NextStopRef = route.Stops[nextStopIndex]

	if remaining <= store.config.ArrivalToleranceMetres {
		record.state.NextStopETASeconds = 0
		record.arrivedStopIndex = nextStopIndex
		return
	}

	speedMS := record.state.Speed / 3.6
	if record.state.Speed < store.config.MinimumSpeedKPH {
		speedMS = routeGeometry.NominalSpeedMS()
	}

	record.state.NextStopETASeconds = int64(math.Round(remaining / speedMS))
}

// SetStatus is an administrative override and ignores telemetry ordering.
func (store *Store) SetStatus(vehicleIdentifier string, status transit.VehicleStatus) error {
	store.mutex.RLock()
	record := store.vehicles[vehicleIdentifier]
	store.mutex.RUnlock()

	if record == nil {
		return transit.UnknownVehicleError
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	record.state.Status = status

	published := record.state
	record.published.Store(&published)

	log.Info().
		Str("vehicle", vehicleIdentifier).
		Str("status", string(status)).
		Msg("Vehicle status overridden")

	return nil
}

// Snapshot returns deep copies of the last published state of every vehicle,
// sorted by identifier. It never blocks against writers.
func (store *Store) Snapshot() []transit.Vehicle {
	store.mutex.RLock()
	records := make([]*vehicleRecord, 0, len(store.vehicles))
	for _, record := range store.vehicles {
		records = append(records, record)
	}
	store.mutex.RUnlock()

	vehicles := make([]transit.Vehicle, 0, len(records))
	for _, record := range records {
		published := record.published.Load()
		if published == nil {
			continue
		}

		var vehicle transit.Vehicle
		if err := copier.CopyWithOption(&vehicle, published, copier.Option{DeepCopy: true}); err != nil {
			log.Error().Err(err).Msg("Failed to copy vehicle state")
			continue
		}

		vehicles = append(vehicles, vehicle)
	}

	slices.SortFunc(vehicles, func(a transit.Vehicle, b transit.Vehicle) int {
		if a.PrimaryIdentifier < b.PrimaryIdentifier {
			return -1
		} else if a.PrimaryIdentifier > b.PrimaryIdentifier {
			return 1
		}
		return 0
	})

	return vehicles
}

// Vehicle returns a copy of the last published state for one vehicle.
func (store *Store) Vehicle(vehicleIdentifier string) (transit.Vehicle, error) {
	store.mutex.RLock()
	record := store.vehicles[vehicleIdentifier]
	store.mutex.RUnlock()

	if record == nil {
		return transit.Vehicle{}, transit.UnknownVehicleError
	}

	published := record.published.Load()
	if published == nil {
		return transit.Vehicle{}, transit.UnknownVehicleError
	}

	return *published, nil
}
