package api

import (
	"github.com/citybus/citybus/pkg/engine"
	"github.com/citybus/citybus/pkg/redis_client"
	"github.com/citybus/citybus/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					// Redis only powers the itinerary result cache here, so
					// the API stays up without it
					if util.GetEnvironmentVariables()["CITYBUS_REDIS_ADDRESS"] != "" {
						if err := redis_client.Connect(); err != nil {
							log.Error().Err(err).Msg("Failed to connect to redis, continuing without result cache")
						}
					}

					if err := engine.Setup(); err != nil {
						return err
					}

					return SetupServer(c.String("listen"))
				},
			},
		},
	}
}
