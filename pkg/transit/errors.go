package transit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// StaleUpdateError rejects telemetry whose timestamp does not advance
	// the vehicle's last applied timestamp
	StaleUpdateError = errors.New("telemetry timestamp older than last applied update")

	UnknownStopError    = errors.New("no stop with that identifier exists")
	UnknownRouteError   = errors.New("no route with that identifier exists")
	UnknownVehicleError = errors.New("no vehicle with that identifier exists")

	// InvalidDirectionError rejects segment queries that run against the
	// direction of a route's stop sequence
	InvalidDirectionError = errors.New("segment query runs against route direction")

	UnknownTicketError       = errors.New("no ticket with that identifier exists")
	UnknownTicketTypeError   = errors.New("no ticket type with that name exists")
	TicketNotValidError      = errors.New("ticket is not in a valid state")
	PaymentNotConfirmedError = errors.New("ticket issue requires a confirmed payment reference")

	UnknownAlertError           = errors.New("no alert with that identifier exists")
	AlertTerminalError          = errors.New("alert has reached a terminal state")
	InvalidAlertTransitionError = errors.New("alert status can only advance forward")

	SearchTimedOutError = errors.New("itinerary search deadline expired before any candidate completed")
)

// InvalidTopologyError carries every structural violation found during a
// topology load, not just the first
type InvalidTopologyError struct {
	Violations []string
}

func (e *InvalidTopologyError) Error() string {
	return fmt.Sprintf("topology has %d violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}
