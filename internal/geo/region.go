// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"github.com/paulmach/orb"
)

// Germany is the default region used for grid sampling. It covers 47.3°N to 55.0°N and 5.9°E
// to 15.1°E.
var Germany = Region{
	A: Coordinate{Lat: 47.3, Lon: 5.9},
	B: Coordinate{Lat: 55.0, Lon: 15.1},
}

// Region describes a rectangle in latitude/longitude space by two opposite corners. The corners
// may be given in any order, Bounds normalizes them per axis.
type Region struct {
	A Coordinate `json:"a"`
	B Coordinate `json:"b"`
}

// NewRegion returns a Region spanned by the two given corners.
func NewRegion(a, b Coordinate) Region {
	return Region{A: a, B: b}
}

// Bound returns the normalized orb.Bound of the region.
func (r Region) Bound() orb.Bound {
	return orb.Bound{Min: r.A.Point(), Max: r.A.Point()}.Extend(r.B.Point())
}

// Bounds returns the minimum and maximum latitude and longitude of the region.
func (r Region) Bounds() (latMin, latMax, lonMin, lonMax float64) {
	b := r.Bound()
	return b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon()
}

// Degenerate returns true if the region has no extent along at least one axis.
func (r Region) Degenerate() bool {
	latMin, latMax, lonMin, lonMax := r.Bounds()
	return latMin == latMax || lonMin == lonMax
}

// Contains reports whether c lies within the region, borders included.
func (r Region) Contains(c Coordinate) bool {
	return r.Bound().Contains(c.Point())
}
