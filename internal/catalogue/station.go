// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalogue

import (
	"github.com/wneessen/stationgrid/internal/geo"
)

// Station represents a fixed-location weather station.
type Station struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ShortName  string         `json:"short_name"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

// Neighbour pairs a Station with its distance in kilometers to the center of the radius
// query that returned it.
type Neighbour struct {
	Station  Station `json:"station"`
	Distance float64 `json:"distance_km"`
}

func (s Station) validate() error {
	if s.ID == "" {
		return ErrInvalidStation
	}
	if !s.Coordinate.Valid() {
		return ErrInvalidStation
	}
	return nil
}
