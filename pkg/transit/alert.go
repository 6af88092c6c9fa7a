package transit

import "time"

type AlertCategory string

const (
	AlertCategoryMedical   AlertCategory = "Medical"
	AlertCategorySecurity  AlertCategory = "Security"
	AlertCategoryTechnical AlertCategory = "Technical"
	AlertCategoryOther     AlertCategory = "Other"
)

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "Active"
	AlertStatusAcknowledged AlertStatus = "Acknowledged"
	AlertStatusResolved     AlertStatus = "Resolved"
)

type Alert struct {
	PrimaryIdentifier string `json:"primary_identifier" groups:"basic"`

	Category AlertCategory `json:"category" groups:"basic"`

	Location Location `json:"location" groups:"basic"`

	// Vehicle the alert was raised from, if any
	VehicleIdentifier string `json:"vehicle_identifier,omitempty" groups:"basic"`

	Note string `json:"note,omitempty" groups:"basic"`

	CreationDateTime time.Time `json:"creation_date_time" groups:"basic"`

	Status AlertStatus `json:"status" groups:"basic"`

	// Append-only transition history, oldest first
	Events []AlertEvent `json:"events" groups:"detailed"`
}

type AlertEvent struct {
	From AlertStatus `json:"from" groups:"detailed"`
	To   AlertStatus `json:"to" groups:"detailed"`

	Actor string `json:"actor" groups:"detailed"`

	CreationDateTime time.Time `json:"creation_date_time" groups:"detailed"`
}
