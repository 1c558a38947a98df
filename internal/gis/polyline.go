package gis

import (
	"math"
)

// EarthRadius in meters
const EarthRadius = 6378137

// Degrees to radians conversion
const degToRad = math.Pi / 180

type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Haversine distance between two points in meters
func Haversine(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad

	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad

	sinDlat := math.Sin(dLat / 2)
	sinDlon := math.Sin(dLon / 2)

	aVal := sinDlat*sinDlat + sinDlon*sinDlon*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(aVal), math.Sqrt(1-aVal))
	return EarthRadius * c
}

// IsPointInPolyline returns true if given point is within tolerance distance (in metres) from the polyline.
func IsPointInPolyline(point Point, polyline []Point, tolerance float64) bool {
	if len(polyline) == 0 {
		return false
	}
	if len(polyline) == 1 {
		return Haversine(point, polyline[0]) <= tolerance
	}

	for i := 0; i < len(polyline)-1; i++ {
		if d, _ := DistanceToSegment(point, polyline[i], polyline[i+1]); d <= tolerance {
			return true
		}
	}
	return false
}

// Projection locates a point on a polyline.
type Projection struct {
	// Segment is the index of the segment start vertex.
	Segment int
	// Fraction along the segment, in [0,1].
	Fraction float64
	// Distance from the point to the polyline in metres.
	Distance float64
}

// Project finds the polyline segment closest to point. ok is false for an
// empty polyline.
func Project(point Point, polyline []Point) (proj Projection, ok bool) {
	switch len(polyline) {
	case 0:
		return Projection{}, false
	case 1:
		return Projection{Distance: Haversine(point, polyline[0])}, true
	}

	proj.Distance = math.Inf(1)
	for i := 0; i < len(polyline)-1; i++ {
		d, t := DistanceToSegment(point, polyline[i], polyline[i+1])
		if d < proj.Distance {
			proj = Projection{Segment: i, Fraction: t, Distance: d}
		}
	}
	return proj, true
}

// Length of the polyline between vertices from and to (inclusive) in metres.
func Length(polyline []Point, from, to int) float64 {
	from = max(from, 0)
	to = min(to, len(polyline)-1)
	var total float64
	for i := from; i < to; i++ {
		total += Haversine(polyline[i], polyline[i+1])
	}
	return total
}

// DistanceToSegment calculates the minimum distance (in metres) from point P to the segment [A, B],
// and the clamped position t of the projection along the segment.
func DistanceToSegment(P, A, B Point) (float64, float64) {
	lat1 := A.Lat * degToRad
	lon1 := A.Lon * degToRad
	lat2 := B.Lat * degToRad
	lon2 := B.Lon * degToRad
	latP := P.Lat * degToRad
	lonP := P.Lon * degToRad

	// Equirectangular projection around the segment's mean latitude; accurate
	// enough at the segment lengths a route shape has.
	// https://www.movable-type.co.uk/scripts/latlong.html
	latRef := (lat1 + lat2) / 2
	cosLatRef := math.Cos(latRef)

	xA, yA := lon1*EarthRadius*cosLatRef, lat1*EarthRadius
	xB, yB := lon2*EarthRadius*cosLatRef, lat2*EarthRadius
	xP, yP := lonP*EarthRadius*cosLatRef, latP*EarthRadius

	dx, dy := xB-xA, yB-yA

	// Degenerate segment case (A == B)
	if dx == 0 && dy == 0 {
		return math.Hypot(xP-xA, yP-yA), 0
	}

	t := ((xP-xA)*dx + (yP-yA)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	xProj := xA + t*dx
	yProj := yA + t*dy

	return math.Hypot(xP-xProj, yP-yProj), t
}
