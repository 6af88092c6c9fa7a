package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/fleet"
	"github.com/citybus/citybus/pkg/redis_client"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/rs/zerolog/log"
)

const queueName = "citybus-telemetry-queue"

const numConsumers = 5
const batchSize = 200

func StartConsumers() {
	log.Info().Msg("Starting telemetry consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(queueName)
	if err != nil {
		panic(err)
	}
	if err := queue.StartConsuming(numConsumers*batchSize, 1*time.Second); err != nil {
		panic(err)
	}

	for i := 0; i < numConsumers; i++ {
		go startTelemetryConsumer(queue, i)
	}
}

func startTelemetryConsumer(queue rmq.Queue, id int) {
	log.Info().Msgf("Starting telemetry consumer %d", id)

	if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", queueName, id), batchSize, 2*time.Second, NewBatchConsumer(id)); err != nil {
		panic(err)
	}
}

type BatchConsumer struct {
	id int
}

func NewBatchConsumer(id int) *BatchConsumer {
	return &BatchConsumer{id: id}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	for _, payload := range batch.Payloads() {
		var update fleet.TelemetryUpdate
		if err := json.Unmarshal([]byte(payload), &update); err != nil {
			log.Error().Err(err).Msg("Failed to decode telemetry payload")
			continue
		}

		err := engine.FleetStore.ApplyTelemetry(update)

		switch {
		case err == nil:
		case errors.Is(err, transit.StaleUpdateError):
			// Out-of-order delivery is expected under unreliable
			// transports - drop quietly
			log.Debug().
				Str("vehicle", update.VehicleIdentifier).
				Time("timestamp", update.Timestamp).
				Msg("Dropped stale telemetry update")
		default:
			log.Error().
				Err(err).
				Str("vehicle", update.VehicleIdentifier).
				Str("route", update.RouteIdentifier).
				Msg("Failed to apply telemetry update")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack telemetry batch")
		}
	}
}
