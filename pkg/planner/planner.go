package planner

import (
	"context"
	"strings"
	"time"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

type Ranking string

const (
	RankingByTime      Ranking = "time"
	RankingByTransfers Ranking = "transfers"
)

type Config struct {
	// Fixed wait-plus-walk estimate applied on every route switch
	TransferPenaltySeconds int64

	MaxTransfers      int
	MaxExploredStates int

	DefaultMaxResults int
}

func DefaultConfig() Config {
	return Config{
		TransferPenaltySeconds: 300,
		MaxTransfers:           2,
		MaxExploredStates:      50000,
		DefaultMaxResults:      5,
	}
}

// Planner answers itinerary queries against whatever topology version is
// current when a query starts. It holds no mutable state of its own, so
// queries run with full parallelism.
type Planner struct {
	topologyManager *topology.Manager
	config          Config
	cache           *ResultCache
}

func NewPlanner(topologyManager *topology.Manager, config Config, cache *ResultCache) *Planner {
	return &Planner{
		topologyManager: topologyManager,
		config:          config,
		cache:           cache,
	}
}

// Plan returns up to maxResults itineraries between the two stops, ordered
// by the requested ranking. An empty result means no feasible journey - that
// is not an error.
func (planner *Planner) Plan(ctx context.Context, originStopRef string, destinationStopRef string, departAt time.Time, ranking Ranking, maxResults int) ([]transit.Itinerary, error) {
	currentTopology := planner.topologyManager.Current()
	if currentTopology == nil {
		return nil, transit.UnknownStopError
	}

	if currentTopology.Stop(originStopRef) == nil || currentTopology.Stop(destinationStopRef) == nil {
		return nil, transit.UnknownStopError
	}

	if maxResults <= 0 {
		maxResults = planner.config.DefaultMaxResults
	}

	if originStopRef == destinationStopRef {
		return []transit.Itinerary{}, nil
	}

	if planner.cache != nil {
		if cached, found := planner.cache.Get(ctx, originStopRef, destinationStopRef, ranking, departAt, maxResults); found {
			return cached, nil
		}
	}

	// Over-collect so the transfer ranking has alternatives to choose from
	candidates, err := planner.search(ctx, currentTopology, originStopRef, destinationStopRef, maxResults*4)
	if err != nil {
		return nil, err
	}

	candidates = dedupe(candidates)
	rank(candidates, ranking)

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	for index := range candidates {
		candidates[index].DepartureTime = departAt
		candidates[index].ArrivalTime = departAt.Add(time.Duration(candidates[index].TotalSeconds) * time.Second)
	}

	if candidates == nil {
		candidates = []transit.Itinerary{}
	}

	if planner.cache != nil {
		planner.cache.Set(ctx, originStopRef, destinationStopRef, ranking, departAt, maxResults, candidates)
	}

	return candidates, nil
}

// PlanBoth runs both rankings concurrently for callers that want the
// time-optimal and transfer-optimal views side by side.
func (planner *Planner) PlanBoth(ctx context.Context, originStopRef string, destinationStopRef string, departAt time.Time, maxResults int) (map[Ranking][]transit.Itinerary, error) {
	type rankedResult struct {
		ranking     Ranking
		itineraries []transit.Itinerary
		err         error
	}

	resultsPool := pool.NewWithResults[rankedResult]()
	resultsPool.WithMaxGoroutines(2)

	for _, ranking := range []Ranking{RankingByTime, RankingByTransfers} {
		resultsPool.Go(func() rankedResult {
			itineraries, err := planner.Plan(ctx, originStopRef, destinationStopRef, departAt, ranking, maxResults)

			return rankedResult{ranking: ranking, itineraries: itineraries, err: err}
		})
	}

	results := map[Ranking][]transit.Itinerary{}
	for _, result := range resultsPool.Wait() {
		if result.err != nil {
			return nil, result.err
		}
		results[result.ranking] = result.itineraries
	}

	return results, nil
}

func rank(itineraries []transit.Itinerary, ranking Ranking) {
	slices.SortStableFunc(itineraries, func(a transit.Itinerary, b transit.Itinerary) int {
		if ranking == RankingByTransfers {
			if a.Transfers != b.Transfers {
				return a.Transfers - b.Transfers
			}
			if a.TotalSeconds != b.TotalSeconds {
				return int(a.TotalSeconds - b.TotalSeconds)
			}
		} else {
			if a.TotalSeconds != b.TotalSeconds {
				return int(a.TotalSeconds - b.TotalSeconds)
			}
			if a.Transfers != b.Transfers {
				return a.Transfers - b.Transfers
			}
		}

		if a.TotalFare != b.TotalFare {
			return a.TotalFare - b.TotalFare
		}

		return strings.Compare(signature(a), signature(b))
	})
}

func dedupe(itineraries []transit.Itinerary) []transit.Itinerary {
	seen := map[string]bool{}
	unique := itineraries[:0]

	for _, itinerary := range itineraries {
		key := signature(itinerary)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, itinerary)
	}

	return unique
}

func signature(itinerary transit.Itinerary) string {
	var builder strings.Builder

	for _, leg := range itinerary.Legs {
		builder.WriteString(string(leg.Type))
		builder.WriteString("/")
		builder.WriteString(leg.RouteIdentifier)
		builder.WriteString("/")
		builder.WriteString(leg.BoardStopRef)
		builder.WriteString(">")
		builder.WriteString(leg.AlightStopRef)
		builder.WriteString(leg.TransferStopRef)
		builder.WriteString(";")
	}

	return builder.String()
}
