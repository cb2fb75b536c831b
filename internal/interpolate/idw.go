// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package interpolate estimates a measured quantity at an arbitrary point from nearby station
// values using inverse distance weighting.
package interpolate

import (
	"errors"
	"math"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
)

// DefaultPower is the default distance-decay exponent.
const DefaultPower = 2.0

var (
	// ErrNoCandidates is returned if no candidate station provides a value for the point.
	ErrNoCandidates = errors.New("no candidate stations for interpolation")

	// ErrInvalidPower is returned for a distance-decay exponent that is not a positive number.
	ErrInvalidPower = errors.New("interpolation power must be positive")
)

// ValueFunc returns the value of a station that should be interpolated. The second return value
// is false if the station has no such value; the station is skipped in that case.
type ValueFunc func(catalogue.Station) (float64, bool)

// Contribution describes how much a station contributed to an interpolated value.
type Contribution struct {
	StationID string  `json:"station_id"`
	Distance  float64 `json:"distance_km"`
	Value     float64 `json:"value"`
	// Weight is the normalized weight in the range 0 to 1
	Weight float64 `json:"weight"`
}

// IDW returns the inverse distance weighted value at point. Distances to the candidates are
// computed from point with geo.Distance. If point coincides with a candidate, the value of the
// first such candidate in input order is returned unchanged.
func IDW(point geo.Coordinate, candidates []catalogue.Neighbour, valueOf ValueFunc, power float64) (float64, error) {
	contributions, err := weigh(point, candidates, valueOf, power)
	if err != nil {
		return 0, err
	}
	if len(contributions) == 1 {
		return contributions[0].Value, nil
	}
	weighted, total := 0.0, 0.0
	for _, c := range contributions {
		weighted += c.Weight * c.Value
		total += c.Weight
	}
	return weighted / total, nil
}

// Contributions returns the normalized weights of all candidates that provide a value. The
// weights of the result sum up to 1.
func Contributions(point geo.Coordinate, candidates []catalogue.Neighbour, valueOf ValueFunc,
	power float64,
) ([]Contribution, error) {
	contributions, err := weigh(point, candidates, valueOf, power)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, c := range contributions {
		total += c.Weight
	}
	for i := range contributions {
		contributions[i].Weight /= total
	}
	return contributions, nil
}

// weigh returns the unnormalized weights of all candidates with a value. If a candidate
// coincides with point, only that candidate is returned.
//
// The weights are (dmin/d)^power, which is 1/d^power scaled by dmin^power. The nearest
// candidate always weighs 1, so the sum can neither underflow to 0 nor overflow for large powers
// or distances.
func weigh(point geo.Coordinate, candidates []catalogue.Neighbour, valueOf ValueFunc,
	power float64,
) ([]Contribution, error) {
	if power <= 0 || math.IsNaN(power) || math.IsInf(power, 0) {
		return nil, ErrInvalidPower
	}

	contributions := make([]Contribution, 0, len(candidates))
	nearest := math.Inf(1)
	for _, candidate := range candidates {
		value, ok := valueOf(candidate.Station)
		if !ok {
			continue
		}
		distance := geo.Distance(point, candidate.Station.Coordinate)
		// Exact local data beats interpolation
		if distance == 0 {
			return []Contribution{{
				StationID: candidate.Station.ID,
				Distance:  distance,
				Value:     value,
				Weight:    1,
			}}, nil
		}
		nearest = min(nearest, distance)
		contributions = append(contributions, Contribution{
			StationID: candidate.Station.ID,
			Distance:  distance,
			Value:     value,
		})
	}
	if len(contributions) == 0 {
		return nil, ErrNoCandidates
	}
	for i := range contributions {
		contributions[i].Weight = math.Pow(nearest/contributions[i].Distance, power)
	}
	return contributions, nil
}
