package planner

import (
	"container/heap"
	"context"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
)

// searchState is one node of the (stop, route-context) graph. States form a
// parent chain so the leg sequence is only materialised for completed
// candidates.
type searchState struct {
	routeRef  string
	stopIndex int

	elapsed   int64
	transfers int

	// true when this state was produced by a transfer edge and has not
	// ridden yet - transfers never chain
	justTransferred bool

	parent *searchState

	heapIndex int
}

type stateQueue []*searchState

func (queue stateQueue) Len() int { return len(queue) }

func (queue stateQueue) Less(i int, j int) bool {
	if queue[i].elapsed != queue[j].elapsed {
		return queue[i].elapsed < queue[j].elapsed
	}
	return queue[i].transfers < queue[j].transfers
}

func (queue stateQueue) Swap(i int, j int) {
	queue[i], queue[j] = queue[j], queue[i]
	queue[i].heapIndex = i
	queue[j].heapIndex = j
}

func (queue *stateQueue) Push(item any) {
	state := item.(*searchState)
	state.heapIndex = len(*queue)
	*queue = append(*queue, state)
}

func (queue *stateQueue) Pop() any {
	old := *queue
	length := len(old)
	state := old[length-1]
	old[length-1] = nil
	*queue = old[:length-1]
	return state
}

func (state *searchState) stopRef(currentTopology *topology.Topology) string {
	return currentTopology.Route(state.routeRef).Route.Stops[state.stopIndex]
}

// visitedStop reports whether the state's path has already touched the stop.
// Paths are short (bounded by the transfer cap) so walking the chain is fine.
func (state *searchState) visitedStop(currentTopology *topology.Topology, stopRef string) bool {
	for current := state; current != nil; current = current.parent {
		if current.stopRef(currentTopology) == stopRef {
			return true
		}
	}
	return false
}

type dominanceKey struct {
	routeRef  string
	stopIndex int
	transfers int
}

// search runs the bounded best-first expansion. It returns every completed
// candidate found before the exploration cap, in increasing total time.
func (planner *Planner) search(ctx context.Context, currentTopology *topology.Topology, originStopRef string, destinationStopRef string, wanted int) ([]transit.Itinerary, error) {
	queue := &stateQueue{}
	heap.Init(queue)

	best := map[dominanceKey]int64{}

	// Board every active route serving the origin. Boarding is free - the
	// transfer penalty only applies when switching mid-journey.
	for _, routeRef := range currentTopology.RoutesServing(originStopRef) {
		routeGeometry := currentTopology.Route(routeRef)
		if !routeGeometry.Route.Active {
			continue
		}

		for stopIndex, stopRef := range routeGeometry.Route.Stops {
			if stopRef != originStopRef {
				continue
			}

			heap.Push(queue, &searchState{
				routeRef:  routeRef,
				stopIndex: stopIndex,
			})
		}
	}

	var candidates []transit.Itinerary
	explored := 0
	timedOut := false

	for queue.Len() > 0 {
		if ctx.Err() != nil {
			timedOut = true
			break
		}

		explored++
		if explored > planner.config.MaxExploredStates {
			break
		}

		state := heap.Pop(queue).(*searchState)

		key := dominanceKey{routeRef: state.routeRef, stopIndex: state.stopIndex, transfers: state.transfers}
		if seen, exists := best[key]; exists && seen <= state.elapsed {
			continue
		}
		best[key] = state.elapsed

		stopRef := state.stopRef(currentTopology)

		if stopRef == destinationStopRef && state.parent != nil && !state.justTransferred {
			candidates = append(candidates, planner.materialise(currentTopology, state, originStopRef, destinationStopRef))
			if len(candidates) >= wanted {
				break
			}
			continue
		}

		routeGeometry := currentTopology.Route(state.routeRef)

		// Ride edge to the next stop along the route
		if nextIndex := state.stopIndex + 1; nextIndex < len(routeGeometry.Route.Stops) {
			nextStopRef := routeGeometry.Route.Stops[nextIndex]

			if !state.visitedStop(currentTopology, nextStopRef) {
				segmentSeconds, err := currentTopology.SegmentSeconds(state.routeRef, state.stopIndex, nextIndex)
				if err == nil {
					heap.Push(queue, &searchState{
						routeRef:  state.routeRef,
						stopIndex: nextIndex,
						elapsed:   state.elapsed + segmentSeconds,
						transfers: state.transfers,
						parent:    state,
					})
				}
			}
		}

		// Transfer edges to the other routes serving this stop. Only
		// meaningful once the state has actually ridden somewhere.
		if state.parent == nil || state.justTransferred || state.transfers >= planner.config.MaxTransfers {
			continue
		}

		for _, otherRouteRef := range currentTopology.RoutesServing(stopRef) {
			if otherRouteRef == state.routeRef {
				continue
			}

			otherGeometry := currentTopology.Route(otherRouteRef)
			if !otherGeometry.Route.Active {
				continue
			}

			for otherIndex, otherStopRef := range otherGeometry.Route.Stops {
				if otherStopRef != stopRef {
					continue
				}

				heap.Push(queue, &searchState{
					routeRef:        otherRouteRef,
					stopIndex:       otherIndex,
					elapsed:         state.elapsed + planner.config.TransferPenaltySeconds,
					transfers:       state.transfers + 1,
					justTransferred: true,
					parent:          state,
				})
			}
		}
	}

	if timedOut && len(candidates) == 0 {
		return nil, transit.SearchTimedOutError
	}

	return candidates, nil
}

// materialise walks the parent chain back to the origin and folds it into
// ride and transfer legs.
func (planner *Planner) materialise(currentTopology *topology.Topology, finalState *searchState, originStopRef string, destinationStopRef string) transit.Itinerary {
	var chain []*searchState
	for state := finalState; state != nil; state = state.parent {
		chain = append([]*searchState{state}, chain...)
	}

	itinerary := transit.Itinerary{
		OriginStopRef:      originStopRef,
		DestinationStopRef: destinationStopRef,
		TotalSeconds:       finalState.elapsed,
		Transfers:          finalState.transfers,
	}

	var currentRide *transit.ItineraryLeg

	for position := 1; position < len(chain); position++ {
		state := chain[position]
		previous := chain[position-1]

		if state.justTransferred {
			// Close the ride and record the switch
			if currentRide != nil {
				itinerary.Legs = append(itinerary.Legs, *currentRide)
				currentRide = nil
			}

			itinerary.Legs = append(itinerary.Legs, transit.ItineraryLeg{
				Type:            transit.ItineraryLegTypeTransfer,
				TransferStopRef: state.stopRef(currentTopology),
				DurationSeconds: state.elapsed - previous.elapsed,
			})
			continue
		}

		if currentRide == nil {
			routeGeometry := currentTopology.Route(state.routeRef)

			currentRide = &transit.ItineraryLeg{
				Type:            transit.ItineraryLegTypeRide,
				RouteIdentifier: state.routeRef,
				BoardStopRef:    previous.stopRef(currentTopology),
				Fare:            routeGeometry.Route.Fare,
			}
		}

		currentRide.AlightStopRef = state.stopRef(currentTopology)
		currentRide.StopCount++
		currentRide.DurationSeconds += state.elapsed - previous.elapsed
	}

	if currentRide != nil {
		itinerary.Legs = append(itinerary.Legs, *currentRide)
	}

	for _, leg := range itinerary.Legs {
		itinerary.TotalFare += leg.Fare
	}

	return itinerary
}
