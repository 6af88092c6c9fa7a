package routes

import (
	"errors"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/citybus/citybus/pkg/util"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func FleetRouter(router fiber.Router) {
	router.Get("/", getFleetSnapshot)
	router.Get("/:identifier", getVehicle)
	router.Post("/:identifier/status", setVehicleStatus)
}

func getFleetSnapshot(c *fiber.Ctx) error {
	snapshot := engine.FleetStore.Snapshot()

	if routeFilter := c.Query("route"); routeFilter != "" {
		util.InPlaceFilter(&snapshot, func(vehicle transit.Vehicle) bool {
			return vehicle.RouteIdentifier == routeFilter
		})
	}

	if statusFilter := c.Query("status"); statusFilter != "" {
		util.InPlaceFilter(&snapshot, func(vehicle transit.Vehicle) bool {
			return string(vehicle.Status) == statusFilter
		})
	}

	snapshotReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, snapshot)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Fleet snapshot",
		})
	}

	return c.JSON(snapshotReduced)
}

func getVehicle(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	vehicle, err := engine.FleetStore.Vehicle(identifier)
	if err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Vehicle Identifier",
		})
	}

	vehicleReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, vehicle)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Vehicle",
		})
	}

	return c.JSON(vehicleReduced)
}

type setStatusBody struct {
	Status transit.VehicleStatus `json:"status"`
}

func setVehicleStatus(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	var body setStatusBody
	if err := c.BodyParser(&body); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should contain a status field",
		})
	}

	switch body.Status {
	case transit.VehicleStatusActive, transit.VehicleStatusInactive, transit.VehicleStatusMaintenance, transit.VehicleStatusEmergency:
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Unknown vehicle status",
		})
	}

	if err := engine.FleetStore.SetStatus(identifier, body.Status); err != nil {
		if errors.Is(err, transit.UnknownVehicleError) {
			c.SendStatus(fiber.StatusNotFound)
		} else {
			c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
