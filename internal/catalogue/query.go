// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalogue

import (
	"sort"

	"github.com/wneessen/stationgrid/internal/geo"
)

// WithinRadius returns all stations whose distance to center is strictly less than radiusKm,
// together with that distance. The result follows catalogue order; use SortByDistance for
// nearest-first ordering.
func (c *Catalogue) WithinRadius(center geo.Coordinate, radiusKm float64) []Neighbour {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Neighbour, 0)
	for _, id := range c.order {
		station := c.stations[id]
		dist := geo.Distance(center, station.Coordinate)
		if dist < radiusKm {
			result = append(result, Neighbour{Station: station, Distance: dist})
		}
	}
	return result
}

// SortByDistance orders the neighbours nearest first. Neighbours with equal distance keep their
// relative order.
func SortByDistance(neighbours []Neighbour) {
	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].Distance < neighbours[j].Distance
	})
}
