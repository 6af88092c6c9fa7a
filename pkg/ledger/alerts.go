package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/citybus/citybus/pkg/transit"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var alertStatusRank = map[transit.AlertStatus]int{
	transit.AlertStatusActive:       0,
	transit.AlertStatusAcknowledged: 1,
	transit.AlertStatusResolved:     2,
}

type alertRecord struct {
	mutex sync.Mutex
	alert transit.Alert
}

// AlertLedger owns raised alerts and their forward-only lifecycle. Every
// transition lands in the alert's append-only event log.
type AlertLedger struct {
	mutex  sync.RWMutex
	alerts map[string]*alertRecord

	now func() time.Time
}

func NewAlertLedger() *AlertLedger {
	return &AlertLedger{
		alerts: map[string]*alertRecord{},
		now:    time.Now,
	}
}

func (ledger *AlertLedger) Raise(category transit.AlertCategory, location transit.Location, vehicleRef string, note string, actor string) transit.Alert {
	now := ledger.now()

	alert := transit.Alert{
		PrimaryIdentifier: uuid.NewString(),
		Category:          category,
		Location:          location,
		VehicleIdentifier: vehicleRef,
		Note:              note,
		CreationDateTime:  now,
		Status:            transit.AlertStatusActive,
		Events: []transit.AlertEvent{
			{To: transit.AlertStatusActive, Actor: actor, CreationDateTime: now},
		},
	}

	ledger.mutex.Lock()
	ledger.alerts[alert.PrimaryIdentifier] = &alertRecord{alert: alert}
	ledger.mutex.Unlock()

	log.Info().
		Str("alert", alert.PrimaryIdentifier).
		Str("category", string(category)).
		Msg("Alert raised")

	return alert
}

// Advance moves the alert to the target status. Skipping acknowledged is
// allowed; moving backwards or out of resolved is not.
func (ledger *AlertLedger) Advance(alertIdentifier string, target transit.AlertStatus, actor string) (transit.Alert, error) {
	record, err := ledger.record(alertIdentifier)
	if err != nil {
		return transit.Alert{}, err
	}

	targetRank, known := alertStatusRank[target]
	if !known {
		return transit.Alert{}, transit.InvalidAlertTransitionError
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if record.alert.Status == transit.AlertStatusResolved {
		return transit.Alert{}, transit.AlertTerminalError
	}

	if targetRank <= alertStatusRank[record.alert.Status] {
		return transit.Alert{}, transit.InvalidAlertTransitionError
	}

	previous := record.alert.Status
	record.alert.Status = target
	record.alert.Events = append(record.alert.Events, transit.AlertEvent{
		From:             previous,
		To:               target,
		Actor:            actor,
		CreationDateTime: ledger.now(),
	})

	return copyAlert(record.alert), nil
}

// Alert returns a copy of the alert including its event log.
func (ledger *AlertLedger) Alert(alertIdentifier string) (transit.Alert, error) {
	record, err := ledger.record(alertIdentifier)
	if err != nil {
		return transit.Alert{}, err
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	return copyAlert(record.alert), nil
}

// Alerts returns copies of every alert, newest first.
func (ledger *AlertLedger) Alerts() []transit.Alert {
	ledger.mutex.RLock()
	records := make([]*alertRecord, 0, len(ledger.alerts))
	for _, record := range ledger.alerts {
		records = append(records, record)
	}
	ledger.mutex.RUnlock()

	alerts := make([]transit.Alert, 0, len(records))
	for _, record := range records {
		record.mutex.Lock()
		alerts = append(alerts, copyAlert(record.alert))
		record.mutex.Unlock()
	}

	slices.SortFunc(alerts, func(a transit.Alert, b transit.Alert) int {
		if a.CreationDateTime.After(b.CreationDateTime) {
			return -1
		} else if b.CreationDateTime.After(a.CreationDateTime) {
			return 1
		}
		return strings.Compare(a.PrimaryIdentifier, b.PrimaryIdentifier)
	})

	return alerts
}

func (ledger *AlertLedger) record(alertIdentifier string) (*alertRecord, error) {
	ledger.mutex.RLock()
	record := ledger.alerts[alertIdentifier]
	ledger.mutex.RUnlock()

	if record == nil {
		return nil, transit.UnknownAlertError
	}

	return record, nil
}

func copyAlert(alert transit.Alert) transit.Alert {
	copied := alert
	copied.Events = append([]transit.AlertEvent{}, alert.Events...)

	return copied
}
