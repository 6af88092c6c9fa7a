package api

import (
	"github.com/citybus/citybus/pkg/api/routes"
	"github.com/gofiber/fiber/v2"
)

func SetupServer(listen string) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.StopsRouter(group.Group("/stops"))
	routes.RoutesRouter(group.Group("/routes"))

	routes.FleetRouter(group.Group("/fleet"))
	routes.TelemetryRouter(group.Group("/telemetry"))

	routes.PlannerRouter(group.Group("/planner"))

	routes.TicketsRouter(group.Group("/tickets"))
	routes.AlertsRouter(group.Group("/alerts"))

	routes.TopologyRouter(group.Group("/topology"))

	return webApp.Listen(listen)
}
