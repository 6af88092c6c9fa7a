package transit

import "time"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "Active"
	VehicleStatusInactive    VehicleStatus = "Inactive"
	VehicleStatusMaintenance VehicleStatus = "Maintenance"
	VehicleStatusEmergency   VehicleStatus = "Emergency"
)

type Vehicle struct {
	PrimaryIdentifier string `json:"primary_identifier" groups:"basic"`

	Registration    string `json:"registration" groups:"detailed"`
	RouteIdentifier string `json:"route_identifier" groups:"basic"`

	Location Location `json:"location" groups:"basic"`

	// Reported speed in km/h
	Speed float64 `json:"speed" groups:"basic"`

	// Occupancy ratio between 0 (empty) and 1 (full)
	Occupancy float64 `json:"occupancy" groups:"basic"`

	Status VehicleStatus `json:"status" groups:"basic"`

	Heading float64 `json:"heading" groups:"detailed"`

	// Derived from Topology on every accepted telemetry update, never
	// supplied by the reporting vehicle itself
	NextStopRef        string `json:"next_stop_ref" groups:"basic"`
	NextStopETASeconds int64  `json:"next_stop_eta_seconds" groups:"basic"`

	LastUpdated time.Time `json:"last_updated" groups:"basic"`
}
