package routes

import (
	"errors"
	"strconv"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func RoutesRouter(router fiber.Router) {
	router.Get("/:identifier", getRoute)
	router.Get("/:identifier/segment", getRouteSegment)
}

func getRoute(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	currentTopology := engine.TopologyManager.Current()

	routeGeometry := currentTopology.Route(identifier)
	if routeGeometry == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Route matching Route Identifier",
		})
	}

	routeReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, routeGeometry.Route)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Route",
		})
	}

	return c.JSON(routeReduced)
}

func getRouteSegment(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	fromIndex, err := strconv.Atoi(c.Query("from", "0"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter from should be an integer",
		})
	}

	toIndex, err := strconv.Atoi(c.Query("to", "0"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter to should be an integer",
		})
	}

	currentTopology := engine.TopologyManager.Current()

	distance, err := currentTopology.SegmentDistance(identifier, fromIndex, toIndex)

	switch {
	case errors.Is(err, transit.UnknownRouteError):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, transit.UnknownStopError), errors.Is(err, transit.InvalidDirectionError):
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	seconds, _ := currentTopology.SegmentSeconds(identifier, fromIndex, toIndex)

	return c.JSON(fiber.Map{
		"distance_metres": distance,
		"seconds":         seconds,
	})
}
