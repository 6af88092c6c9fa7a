package transit

import "time"

type TicketType string

const (
	TicketTypeSingle  TicketType = "Single"
	TicketTypeDay     TicketType = "Day"
	TicketTypeWeekly  TicketType = "Weekly"
	TicketTypeMonthly TicketType = "Monthly"
)

type TicketStatus string

const (
	TicketStatusValid   TicketStatus = "Valid"
	TicketStatusUsed    TicketStatus = "Used"
	TicketStatusExpired TicketStatus = "Expired"
)

type Ticket struct {
	PrimaryIdentifier string `json:"primary_identifier" groups:"basic"`

	Type TicketType `json:"type" groups:"basic"`

	RouteIdentifier string `json:"route_identifier" groups:"basic"`
	FromStopRef     string `json:"from_stop_ref" groups:"basic"`
	ToStopRef       string `json:"to_stop_ref" groups:"basic"`

	Fare int `json:"fare" groups:"basic"`

	IssuedAt  time.Time `json:"issued_at" groups:"basic"`
	ExpiresAt time.Time `json:"expires_at" groups:"basic"`

	Status TicketStatus `json:"status" groups:"basic"`

	// Stop the ticket was actually boarded at, set on use
	BoardedStopRef string    `json:"boarded_stop_ref,omitempty" groups:"detailed"`
	BoardedAt      time.Time `json:"boarded_at,omitempty" groups:"detailed"`

	// Reference handed to us by the external payment flow. Opaque.
	PaymentReference string `json:"payment_reference" groups:"detailed"`
}
