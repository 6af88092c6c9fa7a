package transit

import "time"

type ItineraryLegType string

const (
	ItineraryLegTypeRide     ItineraryLegType = "Ride"
	ItineraryLegTypeTransfer ItineraryLegType = "Transfer"
)

type ItineraryLeg struct {
	Type ItineraryLegType `json:"type" groups:"basic"`

	// Ride fields
	RouteIdentifier string `json:"route_identifier,omitempty" groups:"basic"`
	BoardStopRef    string `json:"board_stop_ref,omitempty" groups:"basic"`
	AlightStopRef   string `json:"alight_stop_ref,omitempty" groups:"basic"`
	StopCount       int    `json:"stop_count,omitempty" groups:"basic"`

	// Transfer fields
	TransferStopRef string `json:"transfer_stop_ref,omitempty" groups:"basic"`

	DurationSeconds int64 `json:"duration_seconds" groups:"basic"`
	Fare            int   `json:"fare" groups:"basic"`
}

type Itinerary struct {
	OriginStopRef      string `json:"origin_stop_ref" groups:"basic"`
	DestinationStopRef string `json:"destination_stop_ref" groups:"basic"`

	Legs []ItineraryLeg `json:"legs" groups:"basic"`

	DepartureTime time.Time `json:"departure_time" groups:"basic"`
	ArrivalTime   time.Time `json:"arrival_time" groups:"basic"`

	TotalSeconds int64 `json:"total_seconds" groups:"basic"`
	TotalFare    int   `json:"total_fare" groups:"basic"`
	Transfers    int   `json:"transfers" groups:"basic"`
}
