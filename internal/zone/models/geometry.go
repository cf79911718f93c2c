package models

import (
	dErrors "zonegrid/pkg/domain-errors"
)

// MultiPolygon is a GeoJSON MultiPolygon in WGS84 (EPSG:4326). Positions are
// [longitude, latitude]. Geometry is replaced wholesale; rings are never
// edited in place.
type MultiPolygon struct {
	Type        string          `json:"type"`
	Coordinates [][][][]float64 `json:"coordinates"`
}

const geometryType = "MultiPolygon"

// ValidLatitude reports whether lat is a usable WGS84 latitude.
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon is a usable WGS84 longitude.
func ValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}

// Validate checks the structural GeoJSON invariants: declared type, at least
// one polygon, closed linear rings with four or more positions, and
// coordinates inside WGS84 bounds. Topology (self-intersection, winding) is
// the storage engine's concern.
func (m *MultiPolygon) Validate() error {
	if m.Type != geometryType {
		return dErrors.New(dErrors.CodeValidation, "geometry type must be MultiPolygon")
	}
	if len(m.Coordinates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "geometry must contain at least one polygon")
	}
	for _, polygon := range m.Coordinates {
		if len(polygon) == 0 {
			return dErrors.New(dErrors.CodeValidation, "polygon must contain at least one ring")
		}
		for _, ring := range polygon {
			if len(ring) < 4 {
				return dErrors.New(dErrors.CodeValidation, "ring must contain at least four positions")
			}
			first, last := ring[0], ring[len(ring)-1]
			if len(first) < 2 || len(last) < 2 || first[0] != last[0] || first[1] != last[1] {
				return dErrors.New(dErrors.CodeValidation, "ring must be closed")
			}
			for _, position := range ring {
				if len(position) < 2 {
					return dErrors.New(dErrors.CodeValidation, "position must contain longitude and latitude")
				}
				if !ValidLongitude(position[0]) || !ValidLatitude(position[1]) {
					return dErrors.New(dErrors.CodeValidation, "position is outside WGS84 bounds")
				}
			}
		}
	}
	return nil
}

// BoundingBox returns [minLon, minLat, maxLon, maxLat] over all rings.
func (m *MultiPolygon) BoundingBox() [4]float64 {
	box := [4]float64{180, 90, -180, -90}
	for _, polygon := range m.Coordinates {
		for _, ring := range polygon {
			for _, p := range ring {
				if len(p) < 2 {
					continue
				}
				if p[0] < box[0] {
					box[0] = p[0]
				}
				if p[1] < box[1] {
					box[1] = p[1]
				}
				if p[0] > box[2] {
					box[2] = p[0]
				}
				if p[1] > box[3] {
					box[3] = p[1]
				}
			}
		}
	}
	return box
}

// Contains reports whether the point lies inside any polygon's outer ring and
// outside its holes, using even-odd ray casting. The in-memory store relies
// on it; the PostgreSQL store delegates to ST_Contains instead.
func (m *MultiPolygon) Contains(lat, lon float64) bool {
	for _, polygon := range m.Coordinates {
		if len(polygon) == 0 {
			continue
		}
		if !ringContains(polygon[0], lat, lon) {
			continue
		}
		inHole := false
		for _, hole := range polygon[1:] {
			if ringContains(hole, lat, lon) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

func ringContains(ring [][]float64, lat, lon float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
