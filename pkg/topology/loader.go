package topology

import (
	"os"

	"github.com/citybus/citybus/pkg/transit"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type topologyFile struct {
	Stops  []transit.Stop  `yaml:"stops"`
	Routes []transit.Route `yaml:"routes"`
}

// LoadFile reads a topology definition from a YAML file, validates the field
// level constraints and then runs the full structural load.
func LoadFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file topologyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	validate := validator.New()
	for _, stop := range file.Stops {
		if err := validate.Struct(stop); err != nil {
			return nil, err
		}
	}
	for _, route := range file.Routes {
		if err := validate.Struct(route); err != nil {
			return nil, err
		}
	}

	return Load(file.Stops, file.Routes)
}
