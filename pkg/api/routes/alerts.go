package routes

import (
	"errors"
	"strings"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func AlertsRouter(router fiber.Router) {
	router.Get("/", listAlerts)
	router.Post("/", raiseAlert)
	router.Get("/:identifier", getAlert)
	router.Post("/:identifier/advance", advanceAlert)
}

type raiseAlertBody struct {
	Category          string  `json:"category"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	VehicleIdentifier string  `json:"vehicle_identifier,omitempty"`
	Note              string  `json:"note,omitempty"`
	Actor             string  `json:"actor,omitempty"`
}

func parseAlertCategory(value string) (transit.AlertCategory, bool) {
	switch strings.ToLower(value) {
	case "medical":
		return transit.AlertCategoryMedical, true
	case "security":
		return transit.AlertCategorySecurity, true
	case "technical":
		return transit.AlertCategoryTechnical, true
	case "other":
		return transit.AlertCategoryOther, true
	}

	return "", false
}

func parseAlertStatus(value string) (transit.AlertStatus, bool) {
	switch strings.ToLower(value) {
	case "active":
		return transit.AlertStatusActive, true
	case "acknowledged":
		return transit.AlertStatusAcknowledged, true
	case "resolved":
		return transit.AlertStatusResolved, true
	}

	return "", false
}

func listAlerts(c *fiber.Ctx) error {
	alertsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, engine.Alerts.Alerts())

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Alerts",
		})
	}

	return c.JSON(alertsReduced)
}

func raiseAlert(c *fiber.Ctx) error {
	var body raiseAlertBody
	if err := c.BodyParser(&body); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should be an alert raise request",
		})
	}

	category, known := parseAlertCategory(body.Category)
	if !known {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Alert category should be one of medical, security, technical, other",
		})
	}

	alert := engine.Alerts.Raise(category, transit.Location{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	}, body.VehicleIdentifier, body.Note, body.Actor)

	return alertResponse(c, alert)
}

func getAlert(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	alert, err := engine.Alerts.Alert(identifier)
	if err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Alert matching Alert Identifier",
		})
	}

	return alertResponse(c, alert)
}

type advanceAlertBody struct {
	Status string `json:"status"`
	Actor  string `json:"actor,omitempty"`
}

func advanceAlert(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	var body advanceAlertBody
	if err := c.BodyParser(&body); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body should contain a status field",
		})
	}

	status, known := parseAlertStatus(body.Status)
	if !known {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Alert status should be one of active, acknowledged, resolved",
		})
	}

	alert, err := engine.Alerts.Advance(identifier, status, body.Actor)

	switch {
	case errors.Is(err, transit.UnknownAlertError):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, transit.AlertTerminalError), errors.Is(err, transit.InvalidAlertTransitionError):
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

	return alertResponse(c, alert)
}

func alertResponse(c *fiber.Ctx, alert transit.Alert) error {
	alertReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, alert)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce Alert",
		})
	}

	return c.JSON(alertReduced)
}
