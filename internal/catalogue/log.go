// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalogue

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// AddObservation appends the observation to the log of its station. If an observation with the
// same station id, date and name already exists, the call is a no-op and returns false. The
// value of the existing observation is not changed.
func (c *Catalogue) AddObservation(obs Observation) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added, err := c.addObservationLocked(obs)
	if err != nil {
		return false, err
	}
	if !added {
		c.logger.Debug("observation already exists", slog.String("station", obs.StationID),
			slog.String("date", obs.Date.String()), slog.String("name", obs.Name))
		return false, nil
	}
	c.revision++
	return true, nil
}

func (c *Catalogue) addObservationLocked(obs Observation) (bool, error) {
	if obs.Name == "" {
		return false, fmt.Errorf("observation of station %q on %s: %w", obs.StationID, obs.Date,
			ErrInvalidObservation)
	}
	if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
		return false, fmt.Errorf("observation of station %q on %s has non-finite value %v: %w", obs.StationID,
			obs.Date, obs.Value, ErrInvalidObservation)
	}
	if _, ok := c.stations[obs.StationID]; !ok {
		return false, fmt.Errorf("observation of station %q: %w", obs.StationID, ErrStationNotFound)
	}

	key := obs.key()
	if _, ok := c.seen[key]; ok {
		return false, nil
	}
	c.seen[key] = struct{}{}
	c.history[obs.StationID] = append(c.history[obs.StationID], obs)
	return true, nil
}

// ObservationsForStation returns all observations with the given name of a station, ordered by
// date ascending.
func (c *Catalogue) ObservationsForStation(id, name string) []Observation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Observation, 0)
	for _, obs := range c.history[id] {
		if obs.Name == name {
			result = append(result, obs)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result
}

// ObservationCount returns the number of observations in the log.
func (c *Catalogue) ObservationCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

// MeanByStation returns the arithmetic mean of all observations with the given name per station.
// Stations without such observations are not part of the result.
func (c *Catalogue) MeanByStation(name string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	means := make(map[string]float64)
	for id, history := range c.history {
		sum, count := 0.0, 0
		for _, obs := range history {
			if obs.Name != name {
				continue
			}
			sum += obs.Value
			count++
		}
		if count > 0 {
			means[id] = sum / float64(count)
		}
	}
	return means
}

// ValueOn returns an accessor yielding the value of the named measurement of a station on the
// given day.
func (c *Catalogue) ValueOn(name string, date Date) func(Station) (float64, bool) {
	return func(station Station) (float64, bool) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for _, obs := range c.history[station.ID] {
			if obs.Name == name && obs.Date == date {
				return obs.Value, true
			}
		}
		return 0, false
	}
}

// MeanValue returns an accessor yielding the mean of the named measurement of a station. The
// means are computed once, when MeanValue is called.
func (c *Catalogue) MeanValue(name string) func(Station) (float64, bool) {
	means := c.MeanByStation(name)
	return func(station Station) (float64, bool) {
		value, ok := means[station.ID]
		return value, ok
	}
}
