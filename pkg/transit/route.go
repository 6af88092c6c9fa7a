package transit

type RouteType string

const (
	RouteTypeRegular RouteType = "Regular"
	RouteTypeExpress RouteType = "Express"
	RouteTypeShuttle RouteType = "Shuttle"
)

type Route struct {
	PrimaryIdentifier string `json:"primary_identifier" yaml:"id" validate:"required" groups:"basic"`

	Name      string    `json:"name" yaml:"name" validate:"required" groups:"basic"`
	ShortName string    `json:"short_name" yaml:"short_name" groups:"basic"`
	Type      RouteType `json:"type" yaml:"type" groups:"basic"`

	// Ordered stop sequence. Order defines the direction of travel - routes
	// are unidirectional.
	Stops []string `json:"stops" yaml:"stops" validate:"min=2" groups:"basic"`

	Polyline []Location `json:"polyline" yaml:"polyline" validate:"min=2" groups:"detailed"`

	// Flat fare charged for any ride on this route regardless of distance
	Fare int `json:"fare" yaml:"fare" validate:"gte=0" groups:"basic"`

	// Nominal traversal speed in km/h used for scheduled segment times and
	// as the ETA fallback when a vehicle reports no usable speed
	NominalSpeedKPH float64 `json:"nominal_speed_kph" yaml:"nominal_speed_kph" groups:"detailed"`

	Active bool `json:"active" yaml:"active" groups:"basic"`
}
