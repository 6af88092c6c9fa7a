package transit

import "math"

const earthRadiusMetres = 6371000

type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" yaml:"longitude" groups:"basic"`
}

// DistanceTo returns the great-circle distance between the two locations in metres
func (l Location) DistanceTo(other Location) float64 {
	lat1 := l.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - l.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// ProjectOntoSegment returns the closest point to l on the segment between a
// and b, along with the fraction [0,1] along the segment at which it lies
// Shameless taken 'inspiration' from https://stackoverflow.com/a/6853926
func (l Location) ProjectOntoSegment(a Location, b Location) (Location, float64) {
	A := l.Longitude - a.Longitude
	B := l.Latitude - a.Latitude
	C := b.Longitude - a.Longitude
	D := b.Latitude - a.Latitude

	dot := A*C + B*D
	lenSq := C*C + D*D

	param := -1.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	if param < 0 {
		param = 0
	} else if param > 1 {
		param = 1
	}

	return Location{
		Latitude:  a.Latitude + param*D,
		Longitude: a.Longitude + param*C,
	}, param
}
