package navigation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCenter is where the viewport starts when no fix is known yet.
var DefaultCenter = GeoPoint{Lat: 24.717957, Lon: 125.344340}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Lon)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%g %g", p.Lat, p.Lon)
}

// Fix is a single position sample reported by a LocationSource.
type Fix struct {
	GeoPoint
	Timestamp time.Time `json:"timestamp"`
}

type TravelMode string

const (
	ModeCar        TravelMode = "car"
	ModeBicycle    TravelMode = "bicycle"
	ModePedestrian TravelMode = "pedestrian"
)

func (m TravelMode) IsValid() bool {
	switch m {
	case ModeCar, ModeBicycle, ModePedestrian:
		return true
	}
	return false
}

type State string

const (
	StateIdle           State = "idle"
	StatePointsSelected State = "points_selected"
	StateNavigating     State = "navigating"
)

// Variant selects how the route start point is obtained.
type Variant string

const (
	// VariantTwoPoint routes between two picked points.
	VariantTwoPoint Variant = "two_point"
	// VariantCurrentLocation routes from the live position to a picked destination.
	VariantCurrentLocation Variant = "current_location"
)

func (v Variant) IsValid() bool {
	switch v {
	case VariantTwoPoint, VariantCurrentLocation:
		return true
	}
	return false
}

// DefaultMode is the travel mode asserted when navigation starts.
func (v Variant) DefaultMode() TravelMode {
	if v == VariantCurrentLocation {
		return ModePedestrian
	}
	return ModeCar
}

// Bounds is a latitude/longitude rectangle. The zero value means unset.
type Bounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Contains excludes the edges.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat > b.MinLat && p.Lat < b.MaxLat && p.Lon > b.MinLon && p.Lon < b.MaxLon
}

func (b Bounds) Validate() error {
	if err := (GeoPoint{Lat: b.MinLat, Lon: b.MinLon}).Validate(); err != nil {
		return err
	}
	if err := (GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon}).Validate(); err != nil {
		return err
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return fmt.Errorf("empty bounds %s", b)
	}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// UnmarshalText parses "minLat,minLon,maxLat,maxLon".
func (b *Bounds) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ",")
	if len(parts) != 4 {
		return fmt.Errorf("bounds %q: want minLat,minLon,maxLat,maxLon", text)
	}
	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("bounds %q: %w", text, err)
		}
		v[i] = f
	}
	*b = Bounds{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	return b.Validate()
}
