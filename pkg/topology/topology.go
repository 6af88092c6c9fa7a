package topology

import (
	"fmt"
	"math"
	"time"

	"github.com/citybus/citybus/pkg/transit"
	"golang.org/x/exp/slices"
)

const defaultNominalSpeedKPH = 30.0

// Topology is one loaded version of the route/stop graph. It is never
// mutated after Load returns - replacing it is an atomic swap on the Manager.
type Topology struct {
	stops  map[string]*transit.Stop
	routes map[string]*RouteGeometry

	LoadedAt time.Time
}

// RouteGeometry wraps a route with the distance tables derived from its
// polyline at load time.
type RouteGeometry struct {
	Route *transit.Route

	// metres from the polyline start to each vertex
	cumulative []float64

	// metres from the polyline start to each stop's projection, one entry
	// per stop in the route's stop sequence, non-decreasing
	stopDistances []float64

	stopLocations []transit.Location
}

// RouteProjection locates an arbitrary position against a route's polyline.
type RouteProjection struct {
	// Metres from the route start to the closest point on the polyline
	DistanceAlong float64

	// Great-circle distance in metres between the position and that
	// closest point
	Offset float64

	SegmentIndex int
}

func Load(stops []transit.Stop, routes []transit.Route) (*Topology, error) {
	var violations []string

	topology := &Topology{
		stops:    map[string]*transit.Stop{},
		routes:   map[string]*RouteGeometry{},
		LoadedAt: time.Now(),
	}

	for _, stop := range stops {
		if _, exists := topology.stops[stop.PrimaryIdentifier]; exists {
			violations = append(violations, fmt.Sprintf("duplicate stop %s", stop.PrimaryIdentifier))
			continue
		}

		stopCopy := stop
		topology.stops[stop.PrimaryIdentifier] = &stopCopy
	}

	for _, route := range routes {
		if _, exists := topology.routes[route.PrimaryIdentifier]; exists {
			violations = append(violations, fmt.Sprintf("duplicate route %s", route.PrimaryIdentifier))
			continue
		}

		routeCopy := route
		if routeCopy.NominalSpeedKPH <= 0 {
			routeCopy.NominalSpeedKPH = defaultNominalSpeedKPH
		}

		violations = append(violations, validateRoute(&routeCopy, topology.stops)...)

		topology.routes[route.PrimaryIdentifier] = &RouteGeometry{Route: &routeCopy}
	}

	// Round-trip consistency: every route a stop claims must exist and must
	// itself list the stop
	for _, stop := range topology.stops {
		for _, routeRef := range stop.Routes {
			routeGeometry := topology.routes[routeRef]
			if routeGeometry == nil {
				violations = append(violations, fmt.Sprintf("stop %s references unknown route %s", stop.PrimaryIdentifier, routeRef))
				continue
			}

			if !slices.Contains(routeGeometry.Route.Stops, stop.PrimaryIdentifier) {
				violations = append(violations, fmt.Sprintf("stop %s references route %s which does not serve it", stop.PrimaryIdentifier, routeRef))
			}
		}
	}

	if len(violations) > 0 {
		return nil, &transit.InvalidTopologyError{Violations: violations}
	}

	for _, routeGeometry := range topology.routes {
		routeGeometry.stopLocations = make([]transit.Location, len(routeGeometry.Route.Stops))
		for index, stopRef := range routeGeometry.Route.Stops {
			routeGeometry.stopLocations[index] = topology.stops[stopRef].Location
		}

		routeGeometry.buildDistanceTables()
	}

	return topology, nil
}

func validateRoute(route *transit.Route, stops map[string]*transit.Stop) []string {
	var violations []string

	if len(route.Stops) < 2 {
		violations = append(violations, fmt.Sprintf("route %s has fewer than 2 stops", route.PrimaryIdentifier))
	}

	for index, stopRef := range route.Stops {
		if index > 0 && route.Stops[index-1] == stopRef {
			violations = append(violations, fmt.Sprintf("route %s repeats stop %s consecutively", route.PrimaryIdentifier, stopRef))
		}

		stop := stops[stopRef]
		if stop == nil {
			violations = append(violations, fmt.Sprintf("route %s references unknown stop %s", route.PrimaryIdentifier, stopRef))
			continue
		}

		if !slices.Contains(stop.Routes, route.PrimaryIdentifier) {
			violations = append(violations, fmt.Sprintf("route %s serves stop %s which does not list it", route.PrimaryIdentifier, stopRef))
		}
	}

	if len(route.Polyline) < 2 {
		violations = append(violations, fmt.Sprintf("route %s has fewer than 2 polyline points", route.PrimaryIdentifier))
	}

	if route.Fare < 0 {
		violations = append(violations, fmt.Sprintf("route %s has a negative fare", route.PrimaryIdentifier))
	}

	return violations
}

func (routeGeometry *RouteGeometry) buildDistanceTables() {
	polyline := routeGeometry.Route.Polyline

	routeGeometry.cumulative = make([]float64, len(polyline))
	for index := 1; index < len(polyline); index++ {
		routeGeometry.cumulative[index] = routeGeometry.cumulative[index-1] + polyline[index-1].DistanceTo(polyline[index])
	}

	// Project each stop onto the polyline, scanning forward from the
	// previous stop's segment so the stop distances stay monotonic even on
	// self-crossing routes
	routeGeometry.stopDistances = make([]float64, len(routeGeometry.Route.Stops))
	previousSegment := 0
	previousDistance := 0.0
	for index, stopLocation := range routeGeometry.stopLocations {
		projection := routeGeometry.projectFromSegment(stopLocation, previousSegment)

		if projection.DistanceAlong < previousDistance {
			projection.DistanceAlong = previousDistance
		}

		routeGeometry.stopDistances[index] = projection.DistanceAlong
		previousSegment = projection.SegmentIndex
		previousDistance = projection.DistanceAlong
	}
}

func (routeGeometry *RouteGeometry) projectFromSegment(location transit.Location, firstSegment int) RouteProjection {
	polyline := routeGeometry.Route.Polyline

	best := RouteProjection{Offset: math.MaxFloat64}

	for segment := firstSegment; segment < len(polyline)-1; segment++ {
		point, fraction := location.ProjectOntoSegment(polyline[segment], polyline[segment+1])
		offset := location.DistanceTo(point)

		if offset < best.Offset {
			segmentLength := routeGeometry.cumulative[segment+1] - routeGeometry.cumulative[segment]

			best = RouteProjection{
				DistanceAlong: routeGeometry.cumulative[segment] + fraction*segmentLength,
				Offset:        offset,
				SegmentIndex:  segment,
			}
		}
	}

	return best
}

// Project locates a position against the full polyline.
func (routeGeometry *RouteGeometry) Project(location transit.Location) RouteProjection {
	return routeGeometry.projectFromSegment(location, 0)
}

// StopDistance returns metres from the route start to the given stop index.
func (routeGeometry *RouteGeometry) StopDistance(stopIndex int) float64 {
	return routeGeometry.stopDistances[stopIndex]
}

// Length returns the total polyline length in metres.
func (routeGeometry *RouteGeometry) Length() float64 {
	return routeGeometry.cumulative[len(routeGeometry.cumulative)-1]
}

// NominalSpeedMS returns the route's nominal traversal speed in metres per second.
func (routeGeometry *RouteGeometry) NominalSpeedMS() float64 {
	return routeGeometry.Route.NominalSpeedKPH / 3.6
}

func (topology *Topology) Stop(identifier string) *transit.Stop {
	return topology.stops[identifier]
}

func (topology *Topology) Route(identifier string) *RouteGeometry {
	return topology.routes[identifier]
}

func (topology *Topology) Stops() []*transit.Stop {
	stops := make([]*transit.Stop, 0, len(topology.stops))
	for _, stop := range topology.stops {
		stops = append(stops, stop)
	}

	slices.SortFunc(stops, func(a *transit.Stop, b *transit.Stop) int {
		if a.PrimaryIdentifier < b.PrimaryIdentifier {
			return -1
		} else if a.PrimaryIdentifier > b.PrimaryIdentifier {
			return 1
		}
		return 0
	})

	return stops
}

// RoutesServing returns the identifiers of routes serving the stop, empty if
// the stop is unknown.
func (topology *Topology) RoutesServing(stopIdentifier string) []string {
	stop := topology.stops[stopIdentifier]
	if stop == nil {
		return nil
	}

	routes := slices.Clone(stop.Routes)
	slices.Sort(routes)

	return routes
}

// StopIndex returns the position of the stop within the route's sequence.
func (topology *Topology) StopIndex(routeIdentifier string, stopIdentifier string) (int, bool) {
	routeGeometry := topology.routes[routeIdentifier]
	if routeGeometry == nil {
		return 0, false
	}

	index := slices.Index(routeGeometry.Route.Stops, stopIdentifier)
	if index < 0 {
		return 0, false
	}

	return index, true
}

// SegmentDistance returns the polyline length in metres between two stop
// indices on a route. Routes are unidirectional so the second index must not
// precede the first.
func (topology *Topology) SegmentDistance(routeIdentifier string, stopIndexA int, stopIndexB int) (float64, error) {
	routeGeometry := topology.routes[routeIdentifier]
	if routeGeometry == nil {
		return 0, transit.UnknownRouteError
	}

	if stopIndexA < 0 || stopIndexB >= len(routeGeometry.stopDistances) {
		return 0, transit.UnknownStopError
	}

	if stopIndexB < stopIndexA {
		return 0, transit.InvalidDirectionError
	}

	return routeGeometry.stopDistances[stopIndexB] - routeGeometry.stopDistances[stopIndexA], nil
}

// SegmentSeconds returns the whole-second scheduled travel time between two
// stop indices at the route's nominal speed.
func (topology *Topology) SegmentSeconds(routeIdentifier string, stopIndexA int, stopIndexB int) (int64, error) {
	distance, err := topology.SegmentDistance(routeIdentifier, stopIndexA, stopIndexB)
	if err != nil {
		return 0, err
	}

	routeGeometry := topology.routes[routeIdentifier]

	return int64(math.Round(distance / routeGeometry.NominalSpeedMS())), nil
}
