// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate represents a geographic coordinate in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate returns a Coordinate for the given latitude and longitude.
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Point returns the coordinate as an orb.Point. Note that orb uses (lon, lat) ordering.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// String returns the coordinate in the "51.2 N 6.5 E" notation.
func (c Coordinate) String() string {
	ns, ew := "N", "E"
	if c.Lat < 0 {
		ns = "S"
	}
	if c.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f %s %.4f %s", math.Abs(c.Lat), ns, math.Abs(c.Lon), ew)
}

// Distance returns the great-circle distance between a and b in kilometers. We are using
// the Haversine formula on a spherical Earth (radius 6378137m, as used by orb). All radius
// thresholds and interpolation weights in stationgrid are expressed in this metric.
func Distance(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point()) / 1000
}

