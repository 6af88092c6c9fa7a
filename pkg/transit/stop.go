package transit

type Stop struct {
	PrimaryIdentifier string `json:"primary_identifier" yaml:"id" validate:"required" groups:"basic"`

	Name string `json:"name" yaml:"name" validate:"required" groups:"basic"`
	Code string `json:"code" yaml:"code" groups:"basic"`

	Location Location `json:"location" yaml:"location" groups:"basic"`

	Amenities []string `json:"amenities" yaml:"amenities" groups:"detailed"`

	// Identifiers of the routes serving this stop. Must agree with each
	// route's own stop sequence.
	Routes []string `json:"routes" yaml:"routes" groups:"basic"`
}
