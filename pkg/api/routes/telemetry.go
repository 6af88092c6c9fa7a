package routes

import (
	"errors"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/fleet"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func TelemetryRouter(router fiber.Router) {
	router.Post("/", applyTelemetry)
}

func applyTelemetry(c *fiber.Ctx) error {
	var update fleet.TelemetryUpdate
	if err := c.BodyParser(&update); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should be a telemetry update",
		})
	}

	err := engine.FleetStore.ApplyTelemetry(update)

	switch {
	case err == nil:
		c.SendStatus(fiber.StatusAccepted)
		return c.JSON(fiber.Map{
			"status": "applied",
		})
	case errors.Is(err, transit.StaleUpdateError):
		// Expected under out-of-order delivery, dropped rather than failed
		log.Debug().
			Str("vehicle", update.VehicleIdentifier).
			Msg("Dropped stale telemetry update")

		return c.JSON(fiber.Map{
			"status": "dropped",
			"reason": "stale",
		})
	case errors.Is(err, transit.UnknownRouteError):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
