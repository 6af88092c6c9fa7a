package routes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/planner"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/gofiber/fiber/v2"
)

const defaultPlanTimeout = 2 * time.Second

func PlannerRouter(router fiber.Router) {
	router.Get("/:origin/:destination", getPlanBetweenStops)
}

func getPlanBetweenStops(c *fiber.Ctx) error {
	originIdentifier := c.Params("origin")
	destinationIdentifier := c.Params("destination")

	count, err := strconv.Atoi(c.Query("count", "5"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter count should be an integer",
		})
	}

	rankBy := c.Query("rank", string(planner.RankingByTime))

	var departAt time.Time
	departAtString := c.Query("datetime")
	if departAtString == "" {
		departAt = time.Now()
	} else {
		departAt, err = time.Parse(time.RFC3339, departAtString)

		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter datetime should be an RFC3339/ISO8601 datetime",
			})
		}
	}

	timeout := defaultPlanTimeout
	if timeoutMS, err := strconv.Atoi(c.Query("timeout_ms", "0")); err == nil && timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	switch rankBy {
	case string(planner.RankingByTime), string(planner.RankingByTransfers):
		itineraries, err := engine.Planner.Plan(ctx, originIdentifier, destinationIdentifier, departAt, planner.Ranking(rankBy), count)
		if err != nil {
			return planError(c, err)
		}

		return c.JSON(itineraries)
	case "both":
		results, err := engine.Planner.PlanBoth(ctx, originIdentifier, destinationIdentifier, departAt, count)
		if err != nil {
			return planError(c, err)
		}

		return c.JSON(results)
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter rank should be one of time, transfers, both",
		})
	}
}

func planError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, transit.UnknownStopError):
		c.SendStatus(fiber.StatusNotFound)
	case errors.Is(err, transit.SearchTimedOutError):
		c.SendStatus(fiber.StatusGatewayTimeout)
	default:
		c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}
