package routes

import (
	"github.com/citybus/citybus/pkg/engine"
	"github.com/gofiber/fiber/v2"
)

func TopologyRouter(router fiber.Router) {
	router.Post("/reload", reloadTopology)
}

// reloadTopology swaps in a freshly loaded topology version. Searches that
// started against the old version finish against it.
func reloadTopology(c *fiber.Ctx) error {
	if err := engine.ReloadTopology(); err != nil {
		c.SendStatus(fiber.StatusUnprocessableEntity)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "reloaded",
	})
}
