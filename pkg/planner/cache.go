package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citybus/citybus/pkg/transit"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheExpiration = 60 * time.Second

// ResultCache keeps recent itinerary answers in redis, bucketed by departure
// minute. Identical queries within a bucket are common from map screens
// polling for the same pair.
type ResultCache struct {
	cache *cache.Cache[string]
}

func NewResultCache(client *redis.Client) *ResultCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(cacheExpiration))

	return &ResultCache{
		cache: cache.New[string](redisStore),
	}
}

func cacheKey(originStopRef string, destinationStopRef string, ranking Ranking, departAt time.Time, maxResults int) string {
	return fmt.Sprintf("planner/%s/%s/%s/%d/%d", originStopRef, destinationStopRef, ranking, departAt.Truncate(time.Minute).Unix(), maxResults)
}

func (resultCache *ResultCache) Get(ctx context.Context, originStopRef string, destinationStopRef string, ranking Ranking, departAt time.Time, maxResults int) ([]transit.Itinerary, bool) {
	payload, err := resultCache.cache.Get(ctx, cacheKey(originStopRef, destinationStopRef, ranking, departAt, maxResults))
	if err != nil || payload == "" {
		return nil, false
	}

	var itineraries []transit.Itinerary
	if err := json.Unmarshal([]byte(payload), &itineraries); err != nil {
		return nil, false
	}

	return itineraries, true
}

func (resultCache *ResultCache) Set(ctx context.Context, originStopRef string, destinationStopRef string, ranking Ranking, departAt time.Time, maxResults int, itineraries []transit.Itinerary) {
	payload, err := json.Marshal(itineraries)
	if err != nil {
		return
	}

	if err := resultCache.cache.Set(ctx, cacheKey(originStopRef, destinationStopRef, ranking, departAt, maxResults), string(payload)); err != nil {
		log.Debug().Err(err).Msg("Failed to cache itinerary result")
	}
}
