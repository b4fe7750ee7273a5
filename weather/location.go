package weather

import "fmt"

// metersPerFoot is the exact conversion factor named in §3.1.
const metersPerFoot = 0.3048

// GeoLocation is an immutable lat/lon/elevation triple. Elevation is
// stored internally in meters; ElevationFeet() does the conversion on
// read so that the meters value is always the value callers constructed
// it with (round-tripping through feet is lossy, per §8 property 9).
type GeoLocation struct {
	latitude        float64
	longitude       float64
	elevationMeters float64
	hasElevation    bool
}

// NewGeoLocation validates lat ∈ [-90, 90] and lon ∈ [-180, 180]
// (§8 property 11; exact ±90/±180 are accepted).
func NewGeoLocation(lat, lon float64) (*GeoLocation, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return &GeoLocation{latitude: lat, longitude: lon}, nil
}

// WithElevationMeters returns a copy of g with elevation set.
func (g GeoLocation) WithElevationMeters(m float64) *GeoLocation {
	g.elevationMeters = m
	g.hasElevation = true
	return &g
}

// FromFeet constructs a GeoLocation with elevation given in feet,
// converting to the canonical meters representation.
func FromFeet(lat, lon, elevationFeet float64) (*GeoLocation, error) {
	g, err := NewGeoLocation(lat, lon)
	if err != nil {
		return nil, err
	}
	return g.WithElevationMeters(elevationFeet * metersPerFoot), nil
}

func (g *GeoLocation) Latitude() float64  { return g.latitude }
func (g *GeoLocation) Longitude() float64 { return g.longitude }

func (g *GeoLocation) ElevationMeters() (float64, bool) { return g.elevationMeters, g.hasElevation }

// ElevationFeet converts the stored elevation to feet, rounded to the
// nearest foot (§8 property 9).
func (g *GeoLocation) ElevationFeet() (float64, bool) {
	if !g.hasElevation {
		return 0, false
	}
	feet := g.elevationMeters / metersPerFoot
	return roundToNearest(feet, 1), true
}

func roundToNearest(v float64, unit float64) float64 {
	if v >= 0 {
		return float64(int64(v/unit+0.5)) * unit
	}
	return -float64(int64(-v/unit+0.5)) * unit
}
