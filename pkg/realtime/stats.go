package realtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

func StartStatsServer() {
	http.Handle("/metrics", engine.FleetMetrics.Handler())
	http.Handle("/health", NewHealthHandler())

	log.Info().Msg("Stats server listening on http://localhost:3333/metrics")
	if err := http.ListenAndServe(":3333", nil); err != nil {
		panic(err)
	}
}

type HealthHandler struct {
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (handler *HealthHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	testRedis := redis_client.Client.ClientID(context.TODO())
	if testRedis.Err() != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(writer, testRedis.Err())

		return
	}

	writer.WriteHeader(http.StatusOK)
	fmt.Fprint(writer, "OK")
}
