package realtime

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/fleet"
	"github.com/citybus/citybus/pkg/redis_client"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "vehicle-tracker",
		Usage: "Ingests vehicle telemetry and maintains the live fleet state",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the telemetry ingestion consumers",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := engine.Setup(); err != nil {
						return err
					}

					StartConsumers()

					go StartStatsServer()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "test-apply",
				Usage: "apply one canned telemetry update and print the resulting snapshot",
				Action: func(c *cli.Context) error {
					if err := engine.Setup(); err != nil {
						return err
					}

					currentTopology := engine.TopologyManager.Current()

					stops := currentTopology.Stops()
					if len(stops) == 0 {
						return transit.UnknownStopError
					}

					routes := currentTopology.RoutesServing(stops[0].PrimaryIdentifier)
					if len(routes) == 0 {
						return transit.UnknownRouteError
					}

					err := engine.FleetStore.ApplyTelemetry(fleet.TelemetryUpdate{
						VehicleIdentifier: "BUS-TEST-1",
						RouteIdentifier:   routes[0],
						Location:          stops[0].Location,
						SpeedKPH:          20,
						Occupancy:         0.4,
						Timestamp:         time.Now(),
					})

					pretty.Println(engine.FleetStore.Snapshot(), err)

					return nil
				},
			},
		},
	}
}
