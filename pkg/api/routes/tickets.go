package routes

import (
	"errors"
	"strings"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func TicketsRouter(router fiber.Router) {
	router.Post("/", issueTicket)
	router.Get("/:identifier", getTicket)
	router.Post("/:identifier/board", boardWithTicket)
}

type issueTicketBody struct {
	Type             string `json:"type"`
	RouteIdentifier  string `json:"route_identifier"`
	FromStopRef      string `json:"from_stop_ref"`
	ToStopRef        string `json:"to_stop_ref"`
	PaymentReference string `json:"payment_reference"`
}

func parseTicketType(value string) (transit.TicketType, bool) {
	switch strings.ToLower(value) {
	case "single":
		return transit.TicketTypeSingle, true
	case "day":
		return transit.TicketTypeDay, true
	case "weekly":
		return transit.TicketTypeWeekly, true
	case "monthly":
		return transit.TicketTypeMonthly, true
	}

	return "", false
}

func issueTicket(c *fiber.Ctx) error {
	var body issueTicketBody
	if err := c.BodyParser(&body); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should be a ticket issue request",
		})
	}

	ticketType, known := parseTicketType(body.Type)
	if !known {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Ticket type should be one of single, day, weekly, monthly",
		})
	}

	ticket, err := engine.Tickets.Issue(ticketType, body.RouteIdentifier, body.FromStopRef, body.ToStopRef, body.PaymentReference)

	switch {
	case errors.Is(err, transit.UnknownRouteError), errors.Is(err, transit.UnknownStopError):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, transit.PaymentNotConfirmedError):
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

	return ticketResponse(c, ticket)
}

func getTicket(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	ticket, err := engine.Tickets.Ticket(identifier)
	if err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Ticket matching Ticket Identifier",
		})
	}

	return ticketResponse(c, ticket)
}

type boardBody struct {
	StopRef string `json:"stop_ref"`
}

func boardWithTicket(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	var body boardBody
	if err := c.BodyParser(&body); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should contain a stop_ref field",
		})
	}

	ticket, err := engine.Tickets.Board(identifier, body.StopRef)

	switch {
	case errors.Is(err, transit.UnknownTicketError):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, transit.TicketNotValidError):
		c.SendStatus(fiber.StatusConflict)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return ticketResponse(c, ticket)
}

func ticketResponse(c *fiber.Ctx, ticket transit.Ticket) error {
	ticketReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, ticket)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Ticket",
		})
	}

	return c.JSON(ticketReduced)
}
