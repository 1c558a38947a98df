package routing

import (
	"time"

	"navigate-map/internal/gis"
	"navigate-map/internal/navigation"
)

// track is a route flattened across its legs, with maneuver shape indices
// rebased onto the combined shape.
type track struct {
	shape     []gis.Point
	maneuvers []Maneuver
	length    float64 // metres along the shape
	time      float64 // seconds
}

func newTrack(r *Route) track {
	var t track
	for _, leg := range r.Legs {
		offset := uint(len(t.shape))
		shape := leg.Shape
		// Consecutive legs share their boundary vertex.
		if offset > 0 && len(shape) > 0 && shape[0] == t.shape[offset-1] {
			shape = shape[1:]
			offset--
		}
		t.shape = append(t.shape, shape...)
		for _, m := range leg.Maneuvers {
			m.BeginShapeIndex += offset
			m.EndShapeIndex += offset
			t.maneuvers = append(t.maneuvers, m)
		}
	}
	t.length = gis.Length(t.shape, 0, len(t.shape)-1)
	if t.length == 0 {
		t.length = r.Summary.Length * 1000
	}
	t.time = r.Summary.Time
	return t
}

type progress struct {
	turn      navigation.Turn
	hasTurn   bool
	remaining navigation.Remaining
}

// progressAt locates pos (or the route start when pos is nil) on the track
// and derives the next maneuver and what is left to travel.
func (t track) progressAt(pos *navigation.GeoPoint) progress {
	var p progress
	if len(t.shape) < 2 {
		if len(t.maneuvers) > 0 {
			m := t.maneuvers[len(t.maneuvers)-1]
			p.turn = turnFor(m, 0)
			p.hasTurn = true
		}
		p.remaining = navigation.Remaining{Distance: t.length, Time: seconds(t.time)}
		return p
	}

	var proj gis.Projection
	if pos != nil {
		proj, _ = gis.Project(gis.Point{Lat: pos.Lat, Lon: pos.Lon}, t.shape)
	}

	seg := proj.Segment
	segLen := gis.Haversine(t.shape[seg], t.shape[seg+1])
	toNextVertex := (1 - proj.Fraction) * segLen
	last := len(t.shape) - 1

	remaining := toNextVertex + gis.Length(t.shape, seg+1, last)
	p.remaining.Distance = remaining
	if t.length > 0 {
		p.remaining.Time = seconds(t.time * remaining / t.length)
	}

	for _, m := range t.maneuvers {
		if int(m.BeginShapeIndex) > seg {
			p.turn = turnFor(m, toNextVertex+gis.Length(t.shape, seg+1, int(m.BeginShapeIndex)))
			p.hasTurn = true
			break
		}
	}
	return p
}

// offRoute reports whether pos is farther than tolerance metres from the shape.
// A track without a shape is never left.
func (t track) offRoute(pos navigation.GeoPoint, tolerance float64) bool {
	if len(t.shape) == 0 {
		return false
	}
	return !gis.IsPointInPolyline(gis.Point{Lat: pos.Lat, Lon: pos.Lon}, t.shape, tolerance)
}

// arrived reports whether pos is within radius metres of the last shape point.
func (t track) arrived(pos navigation.GeoPoint, radius float64) bool {
	if len(t.shape) == 0 {
		return false
	}
	return gis.Haversine(gis.Point{Lat: pos.Lat, Lon: pos.Lon}, t.shape[len(t.shape)-1]) <= radius
}

func turnFor(m Maneuver, distance float64) navigation.Turn {
	return navigation.Turn{
		Instruction: m.Instruction,
		Distance:    distance,
		Type:        m.Type.TurnType(),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
