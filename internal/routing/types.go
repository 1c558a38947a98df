package routing

import (
	"errors"
	"fmt"

	"navigate-map/internal/gis"
	"navigate-map/internal/navigation"
)

type RouteRequest struct {
	Locations      []LocationRequest `json:"locations"`
	Costing        Costing           `json:"costing"`
	CostingOptions *CostingOptions   `json:"costing_options,omitempty"`
	Language       *string           `json:"language,omitempty"`
}

func (r RouteRequest) Validate() error {
	if len(r.Locations) < 2 {
		return errors.New("at least 2 locations must be provided")
	}
	if !r.Costing.IsValid() {
		return fmt.Errorf("costing %q is invalid", r.Costing)
	}
	for i, l := range r.Locations {
		if l.Type != nil && !l.Type.IsValid() {
			return fmt.Errorf("location %d: type %q is invalid", i, *l.Type)
		}
	}
	if r.CostingOptions != nil {
		if err := r.CostingOptions.Validate(); err != nil {
			return fmt.Errorf("costing options: %w", err)
		}
	}
	return nil
}

type LocationRequest struct {
	Lat  float64       `json:"lat"`
	Lon  float64       `json:"lon"`
	Type *LocationType `json:"type,omitempty"`
}

type LocationType string

const (
	LocationTypeBreak        LocationType = "break"
	LocationTypeThrough      LocationType = "through"
	LocationTypeVia          LocationType = "via"
	LocationTypeBreakThrough LocationType = "break_through"
)

func (lt LocationType) IsValid() bool {
	switch lt {
	case LocationTypeBreak, LocationTypeThrough, LocationTypeVia, LocationTypeBreakThrough:
		return true
	default:
		return false
	}
}

type Costing string

const (
	CostingAuto       Costing = "auto"
	CostingBicycle    Costing = "bicycle"
	CostingPedestrian Costing = "pedestrian"
)

func (c Costing) IsValid() bool {
	switch c {
	case CostingAuto, CostingBicycle, CostingPedestrian:
		return true
	default:
		return false
	}
}

// CostingFor maps a travel mode onto the backend costing model.
func CostingFor(mode navigation.TravelMode) Costing {
	switch mode {
	case navigation.ModeBicycle:
		return CostingBicycle
	case navigation.ModePedestrian:
		return CostingPedestrian
	default:
		return CostingAuto
	}
}

// Ratio represents a float between 0 and 1.
type Ratio float64

func (r Ratio) IsValid() bool {
	if r < 0.0 || r > 1.0 {
		return false
	}
	return true
}

// CostingOptions tune the auto costing model. Each preference is a Ratio.
type CostingOptions struct {
	UseHighways *Ratio `json:"use_highways,omitempty"`
	UseTolls    *Ratio `json:"use_tolls,omitempty"`
	UseTracks   *Ratio `json:"use_tracks,omitempty"`
}

func (o *CostingOptions) Validate() error {
	ratios := []struct {
		name  string
		ratio *Ratio
	}{
		{"use_highways", o.UseHighways},
		{"use_tolls", o.UseTolls},
		{"use_tracks", o.UseTracks},
	}
	for _, r := range ratios {
		if r.ratio != nil && !r.ratio.IsValid() {
			return fmt.Errorf("%s %v is not within [0, 1]", r.name, float64(*r.ratio))
		}
	}
	return nil
}

// Response specific

type Route Trip

type RouteResponse struct {
	Data    []Route `json:"data"`
	Message string  `json:"message"`
}

type Trip struct {
	Legs    []Leg   `json:"legs"`
	Summary Summary `json:"summary"`
}

type ManeuverType uint8

// Maneuver types as numbered by Valhalla.
const (
	ManeuverNone             ManeuverType = 0
	ManeuverStart            ManeuverType = 1
	ManeuverStartRight       ManeuverType = 2
	ManeuverStartLeft        ManeuverType = 3
	ManeuverDestination      ManeuverType = 4
	ManeuverDestinationRight ManeuverType = 5
	ManeuverDestinationLeft  ManeuverType = 6
	ManeuverBecomes          ManeuverType = 7
	ManeuverContinue         ManeuverType = 8
	ManeuverSlightRight      ManeuverType = 9
	ManeuverRight            ManeuverType = 10
	ManeuverSharpRight       ManeuverType = 11
	ManeuverUturnRight       ManeuverType = 12
	ManeuverUturnLeft        ManeuverType = 13
	ManeuverSharpLeft        ManeuverType = 14
	ManeuverLeft             ManeuverType = 15
	ManeuverSlightLeft       ManeuverType = 16
	ManeuverRampStraight     ManeuverType = 17
	ManeuverRampRight        ManeuverType = 18
	ManeuverRampLeft         ManeuverType = 19
	ManeuverExitRight        ManeuverType = 20
	ManeuverExitLeft         ManeuverType = 21
	ManeuverStayStraight     ManeuverType = 22
	ManeuverStayRight        ManeuverType = 23
	ManeuverStayLeft         ManeuverType = 24
	ManeuverMerge            ManeuverType = 25
	ManeuverMergeRight       ManeuverType = 37
	ManeuverMergeLeft        ManeuverType = 38
)

// TurnType classifies the maneuver for the turn icon. Types the backend does
// not categorise (roundabouts, ferries, transit) are reported as unknown so
// the instruction text decides.
func (t ManeuverType) TurnType() navigation.TurnType {
	switch t {
	case ManeuverStartRight, ManeuverDestinationRight, ManeuverSlightRight, ManeuverRight, ManeuverSharpRight,
		ManeuverRampRight, ManeuverExitRight, ManeuverStayRight, ManeuverMergeRight:
		return navigation.TurnRight
	case ManeuverStartLeft, ManeuverDestinationLeft, ManeuverSlightLeft, ManeuverLeft, ManeuverSharpLeft,
		ManeuverRampLeft, ManeuverExitLeft, ManeuverStayLeft, ManeuverMergeLeft:
		return navigation.TurnLeft
	case ManeuverUturnRight, ManeuverUturnLeft:
		return navigation.TurnUTurn
	case ManeuverStart, ManeuverDestination, ManeuverBecomes, ManeuverContinue, ManeuverRampStraight,
		ManeuverStayStraight, ManeuverMerge:
		return navigation.TurnStraight
	}
	return navigation.TurnUnknown
}

type Maneuver struct {
	Type            ManeuverType `json:"type"`
	Instruction     string       `json:"instruction"`
	BeginShapeIndex uint         `json:"begin_shape_index"`
	EndShapeIndex   uint         `json:"end_shape_index"`
}

// Summary length is in kilometers and time in seconds.
type Summary struct {
	Time   float64 `json:"time"`
	Length float64 `json:"length"`
}

type Leg struct {
	Maneuvers []Maneuver  `json:"maneuvers"`
	Shape     []gis.Point `json:"shape"`
}
