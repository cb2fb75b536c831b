// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
	"github.com/wneessen/stationgrid/internal/grid"
	"github.com/wneessen/stationgrid/internal/interpolate"
)

// Selector picks the station value that gets interpolated: the observation of a single day, or the
// mean over the whole history if Day is empty.
type Selector struct {
	Name string
	Day  string
}

func (s Selector) valueFunc(cat *catalogue.Catalogue) (interpolate.ValueFunc, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: measurement name must not be empty", catalogue.ErrInvalidObservation)
	}
	if s.Day == "" {
		return cat.MeanValue(s.Name), nil
	}
	date, err := catalogue.ParseDate(s.Day)
	if err != nil {
		return nil, err
	}
	return cat.ValueOn(s.Name, date), nil
}

// Near returns the stations within radiusKm of center, nearest first. A radiusKm that is not
// positive selects the configured query radius.
func (s *Service) Near(center geo.Coordinate, radiusKm float64) []catalogue.Neighbour {
	if radiusKm <= 0 {
		radiusKm = s.config.Query.Radius
	}
	neighbours := s.catalogue.WithinRadius(center, radiusKm)
	catalogue.SortByDistance(neighbours)
	return neighbours
}

// Estimate interpolates the selected value at point from the stations within the query radius.
func (s *Service) Estimate(point geo.Coordinate, sel Selector) (float64, []interpolate.Contribution, error) {
	valueOf, err := sel.valueFunc(s.catalogue)
	if err != nil {
		return 0, nil, err
	}
	candidates := s.catalogue.WithinRadius(point, s.config.Query.Radius)
	value, err := interpolate.IDW(point, candidates, valueOf, s.config.Interpolation.Power)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to interpolate %s at %s: %w", sel.Name, point, err)
	}
	contributions, err := interpolate.Contributions(point, candidates, valueOf, s.config.Interpolation.Power)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to weigh stations at %s: %w", point, err)
	}
	return value, contributions, nil
}

// Grid samples the configured region and interpolates the selected value for every cell.
func (s *Service) Grid(ctx context.Context, sel Selector) ([]grid.Sample, error) {
	valueOf, err := sel.valueFunc(s.catalogue)
	if err != nil {
		return nil, err
	}
	cells, err := grid.Build(ctx, s.catalogue, s.config.Region(), s.config.Grid.Radius, s.config.Grid.CountX,
		s.config.Grid.CountY)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}
	return grid.Interpolate(cells, valueOf, s.config.Interpolation.Power)
}
