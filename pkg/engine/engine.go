package engine

import (
	"strconv"

	"github.com/citybus/citybus/pkg/fleet"
	"github.com/citybus/citybus/pkg/ledger"
	"github.com/citybus/citybus/pkg/planner"
	"github.com/citybus/citybus/pkg/redis_client"
	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/util"
	"github.com/rs/zerolog/log"
)

// Package-level core instances shared by every command of the binary.
var TopologyManager *topology.Manager
var FleetStore *fleet.Store
var FleetMetrics *fleet.Collector
var Planner *planner.Planner
var Tickets *ledger.TicketLedger
var Alerts *ledger.AlertLedger

// Setup loads the topology file and wires the core components. Must run
// before any command serves traffic.
func Setup() error {
	env := util.GetEnvironmentVariables()

	topologyPath := util.GetEnvironmentVariableWithDefault("CITYBUS_TOPOLOGY_FILE", "topology.yaml")

	loadedTopology, err := topology.LoadFile(topologyPath)
	if err != nil {
		return err
	}

	TopologyManager = topology.NewManager()
	TopologyManager.Swap(loadedTopology)

	FleetMetrics = fleet.NewCollector()
	FleetStore = fleet.NewStore(TopologyManager, fleetConfig(env), FleetMetrics)

	var resultCache *planner.ResultCache
	if redis_client.Client != nil {
		resultCache = planner.NewResultCache(redis_client.Client)
	}

	Planner = planner.NewPlanner(TopologyManager, plannerConfig(env), resultCache)

	Tickets = ledger.NewTicketLedger(TopologyManager, nil)
	Alerts = ledger.NewAlertLedger()

	log.Info().Str("topology", topologyPath).Msg("Core engine ready")

	return nil
}

// ReloadTopology loads a fresh topology version and swaps it in atomically.
// In-flight searches finish against the version they started with.
func ReloadTopology() error {
	topologyPath := util.GetEnvironmentVariableWithDefault("CITYBUS_TOPOLOGY_FILE", "topology.yaml")

	loadedTopology, err := topology.LoadFile(topologyPath)
	if err != nil {
		return err
	}

	TopologyManager.Swap(loadedTopology)

	return nil
}

func fleetConfig(env map[string]string) fleet.Config {
	config := fleet.DefaultConfig()

	if value := env["CITYBUS_ARRIVAL_TOLERANCE_METRES"]; value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			config.ArrivalToleranceMetres = parsed
		}
	}

	if value := env["CITYBUS_MINIMUM_SPEED_KPH"]; value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			config.MinimumSpeedKPH = parsed
		}
	}

	return config
}

func plannerConfig(env map[string]string) planner.Config {
	config := planner.DefaultConfig()

	if value := env["CITYBUS_TRANSFER_PENALTY_SECONDS"]; value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			config.TransferPenaltySeconds = parsed
		}
	}

	if value := env["CITYBUS_MAX_TRANSFERS"]; value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			config.MaxTransfers = parsed
		}
	}

	if value := env["CITYBUS_MAX_EXPLORED_STATES"]; value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			config.MaxExploredStates = parsed
		}
	}

	return config
}
