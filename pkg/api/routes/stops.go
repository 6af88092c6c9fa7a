package routes

import (
	"github.com/citybus/citybus/pkg/engine"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func StopsRouter(router fiber.Router) {
	router.Get("/", listStops)
	router.Get("/:identifier", getStop)
	router.Get("/:identifier/routes", getStopRoutes)
}

func listStops(c *fiber.Ctx) error {
	currentTopology := engine.TopologyManager.Current()

	stopsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, currentTopology.Stops())

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Stops",
		})
	}

	return c.JSON(stopsReduced)
}

func getStop(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	currentTopology := engine.TopologyManager.Current()

	stop := currentTopology.Stop(identifier)
	if stop == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Stop matching Stop Identifier",
		})
	}

	stopReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, stop)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Stop",
		})
	}

	return c.JSON(stopReduced)
}

func getStopRoutes(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	currentTopology := engine.TopologyManager.Current()

	if currentTopology.Stop(identifier) == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Stop matching Stop Identifier",
		})
	}

	return c.JSON(fiber.Map{
		"routes": currentTopology.RoutesServing(identifier),
	})
}
