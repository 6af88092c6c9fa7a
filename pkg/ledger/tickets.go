package ledger

import (
	"sync"
	"time"

	"github.com/citybus/citybus/pkg/topology"
	"github.com/citybus/citybus/pkg/transit"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/senseyeio/duration"
)

// TicketTypeDefinition fixes the price and validity window of one ticket
// type. Windows are ISO8601 durations so day means calendar day arithmetic,
// not a flat hour count.
type TicketTypeDefinition struct {
	Price    int
	Validity duration.Duration
}

func DefaultTicketTypes() map[transit.TicketType]TicketTypeDefinition {
	return map[transit.TicketType]TicketTypeDefinition{
		transit.TicketTypeSingle:  {Price: 25, Validity: mustParseISO8601("PT2H")},
		transit.TicketTypeDay:     {Price: 100, Validity: mustParseISO8601("P1D")},
		transit.TicketTypeWeekly:  {Price: 500, Validity: mustParseISO8601("P7D")},
		transit.TicketTypeMonthly: {Price: 1800, Validity: mustParseISO8601("P30D")},
	}
}

func mustParseISO8601(value string) duration.Duration {
	parsed, err := duration.ParseISO8601(value)
	if err != nil {
		panic(err)
	}

	return parsed
}

type ticketRecord struct {
	mutex  sync.Mutex
	ticket transit.Ticket
}

// TicketLedger owns every issued ticket and its lifecycle. Mutations
// serialise per ticket only.
type TicketLedger struct {
	topologyManager *topology.Manager
	types           map[transit.TicketType]TicketTypeDefinition

	mutex   sync.RWMutex
	tickets map[string]*ticketRecord

	now func() time.Time
}

func NewTicketLedger(topologyManager *topology.Manager, types map[transit.TicketType]TicketTypeDefinition) *TicketLedger {
	if types == nil {
		types = DefaultTicketTypes()
	}

	return &TicketLedger{
		topologyManager: topologyManager,
		types:           types,
		tickets:         map[string]*ticketRecord{},
		now:             time.Now,
	}
}

// Issue creates a ticket in the valid state. The payment itself happened
// outside the core - the reference is the proof it completed.
func (ledger *TicketLedger) Issue(ticketType transit.TicketType, routeRef string, fromStopRef string, toStopRef string, paymentReference string) (transit.Ticket, error) {
	definition, exists := ledger.types[ticketType]
	if !exists {
		return transit.Ticket{}, transit.UnknownTicketTypeError
	}

	if paymentReference == "" {
		return transit.Ticket{}, transit.PaymentNotConfirmedError
	}

	currentTopology := ledger.topologyManager.Current()
	if currentTopology == nil || currentTopology.Route(routeRef) == nil {
		return transit.Ticket{}, transit.UnknownRouteError
	}
	if currentTopology.Stop(fromStopRef) == nil || currentTopology.Stop(toStopRef) == nil {
		return transit.Ticket{}, transit.UnknownStopError
	}

	issuedAt := ledger.now()

	ticket := transit.Ticket{
		PrimaryIdentifier: uuid.NewString(),
		Type:              ticketType,
		RouteIdentifier:   routeRef,
		FromStopRef:       fromStopRef,
		ToStopRef:         toStopRef,
		Fare:              definition.Price,
		IssuedAt:          issuedAt,
		ExpiresAt:         definition.Validity.Shift(issuedAt),
		Status:            transit.TicketStatusValid,
		PaymentReference:  paymentReference,
	}

	ledger.mutex.Lock()
	ledger.tickets[ticket.PrimaryIdentifier] = &ticketRecord{ticket: ticket}
	ledger.mutex.Unlock()

	log.Info().
		Str("ticket", ticket.PrimaryIdentifier).
		Str("type", string(ticketType)).
		Str("route", routeRef).
		Msg("Ticket issued")

	return ticket, nil
}

// Board marks the ticket used. Fails with TicketNotValid when the ticket has
// already been used or has expired.
func (ledger *TicketLedger) Board(ticketIdentifier string, stopRef string) (transit.Ticket, error) {
	record, err := ledger.record(ticketIdentifier)
	if err != nil {
		return transit.Ticket{}, err
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	now := ledger.now()
	refreshExpiry(&record.ticket, now)

	if record.ticket.Status != transit.TicketStatusValid {
		return transit.Ticket{}, transit.TicketNotValidError
	}

	record.ticket.Status = transit.TicketStatusUsed
	record.ticket.BoardedStopRef = stopRef
	record.ticket.BoardedAt = now

	return record.ticket, nil
}

// Ticket returns the current state of a ticket, re-evaluating expiry first.
func (ledger *TicketLedger) Ticket(ticketIdentifier string) (transit.Ticket, error) {
	record, err := ledger.record(ticketIdentifier)
	if err != nil {
		return transit.Ticket{}, err
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	refreshExpiry(&record.ticket, ledger.now())

	return record.ticket, nil
}

func (ledger *TicketLedger) record(ticketIdentifier string) (*ticketRecord, error) {
	ledger.mutex.RLock()
	record := ledger.tickets[ticketIdentifier]
	ledger.mutex.RUnlock()

	if record == nil {
		return nil, transit.UnknownTicketError
	}

	return record, nil
}

// refreshExpiry applies the lazy time-driven transition. Used and expired
// are terminal so only valid tickets can move.
func refreshExpiry(ticket *transit.Ticket, now time.Time) {
	if ticket.Status == transit.TicketStatusValid && now.After(ticket.ExpiresAt) {
		ticket.Status = transit.TicketStatusExpired
	}
}
