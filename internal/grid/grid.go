// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package grid discretizes a region into a regular lattice of sample points, each annotated with
// the stations influencing it.
package grid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
	"github.com/wneessen/stationgrid/internal/interpolate"
)

// ErrInvalidParameters is returned for degenerate regions, non-positive counts or radii.
var ErrInvalidParameters = errors.New("invalid grid parameters")

// Querier finds the stations within a radius of a coordinate.
type Querier interface {
	WithinRadius(center geo.Coordinate, radiusKm float64) []catalogue.Neighbour
}

// Cell is a sample coordinate together with the stations within the influence radius.
type Cell struct {
	Coordinate geo.Coordinate        `json:"coordinate"`
	Stations   []catalogue.Neighbour `json:"stations"`
}

// Sample is the interpolated value at a cell coordinate. OK is false if no station within the
// influence radius provided a value.
type Sample struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Value      float64        `json:"value"`
	Stations   int            `json:"stations"`
	OK         bool           `json:"ok"`
}

// Build samples region with countX columns and countY rows. The cells are returned row by row,
// starting at the minimum latitude, with longitudes ascending within a row. The upper bounds of
// the region are exclusive.
func Build(ctx context.Context, q Querier, region geo.Region, radiusKm float64, countX, countY int) ([]Cell, error) {
	if countX <= 0 || countY <= 0 {
		return nil, fmt.Errorf("%w: counts must be positive, got %d x %d", ErrInvalidParameters, countX, countY)
	}
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("%w: influence radius must be positive, got %f", ErrInvalidParameters, radiusKm)
	}
	if region.Degenerate() {
		return nil, fmt.Errorf("%w: region %s to %s has no extent", ErrInvalidParameters, region.A, region.B)
	}

	latMin, latMax, lonMin, lonMax := region.Bounds()
	dLat := (latMax - latMin) / float64(countY)
	dLon := (lonMax - lonMin) / float64(countX)

	cells := make([]Cell, countX*countY)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for row := range countY {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lat := latMin + float64(row)*dLat
			for col := range countX {
				center := geo.Coordinate{Lat: lat, Lon: lonMin + float64(col)*dLon}
				cells[row*countX+col] = Cell{
					Coordinate: center,
					Stations:   q.WithinRadius(center, radiusKm),
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return cells, nil
}

// Interpolate computes the IDW value of every cell from its stations.
func Interpolate(cells []Cell, valueOf interpolate.ValueFunc, power float64) ([]Sample, error) {
	samples := make([]Sample, 0, len(cells))
	for _, cell := range cells {
		sample := Sample{Coordinate: cell.Coordinate, Stations: len(cell.Stations)}
		value, err := interpolate.IDW(cell.Coordinate, cell.Stations, valueOf, power)
		switch {
		case errors.Is(err, interpolate.ErrNoCandidates):
		case err != nil:
			return nil, err
		default:
			sample.Value = value
			sample.OK = true
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
