// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package catalogue implements the station catalogue of stationgrid: a keyed collection of weather
// stations, the deduplicated observation log attached to them, and radius queries over both.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/stationgrid/internal/logger"
)

var (
	// ErrStationNotFound is returned if a station id is not part of the catalogue.
	ErrStationNotFound = errors.New("station not found")

	// ErrInvalidStation is returned if a station has no id or an invalid coordinate.
	ErrInvalidStation = errors.New("invalid station")

	// ErrInvalidObservation is returned if an observation has no measurement name.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrPersistence is wrapped by every error caused by reading or writing the durable
	// catalogue artifact.
	ErrPersistence = errors.New("catalogue persistence failure")

	// ErrNoArtifact is returned by a Persister if no artifact has been written yet. The
	// catalogue treats it as an empty start.
	ErrNoArtifact = errors.New("no catalogue artifact")

	// ErrNoPersister is returned by Load and Persist on a catalogue without a Persister.
	ErrNoPersister = errors.New("catalogue has no persister")
)

// Persister reads and writes a complete catalogue snapshot to durable storage.
type Persister interface {
	// Load returns the persisted snapshot or ErrNoArtifact if nothing was persisted yet.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the persisted artifact with the given snapshot. A failed Save must leave the
	// previous artifact readable.
	Save(ctx context.Context, snapshot *Snapshot) error
	// Location describes where the artifact lives, e.g. the file path.
	Location() string
}

// Snapshot is a point-in-time copy of the whole catalogue.
type Snapshot struct {
	Stations     []Station     `json:"stations"`
	Observations []Observation `json:"observations"`
}

// Catalogue is the in-memory station catalogue. It is safe for concurrent use: readers never
// observe a partially applied upsert.
type Catalogue struct {
	persister Persister
	logger    *logger.Logger

	// persistLock serializes Load and Persist against each other
	persistLock sync.Mutex

	mu       sync.RWMutex
	order    []string
	stations map[string]Station
	history  map[string][]Observation
	seen     map[observationKey]struct{}
	revision uint64
	saved    uint64
}

// New returns an empty Catalogue backed by the given Persister. persister may be nil for a
// purely in-memory catalogue.
func New(persister Persister, log *logger.Logger) *Catalogue {
	if log == nil {
		log = logger.Discard()
	}
	c := &Catalogue{
		persister: persister,
		logger:    log,
	}
	c.reset()
	return c
}

func (c *Catalogue) reset() {
	c.order = make([]string, 0)
	c.stations = make(map[string]Station)
	c.history = make(map[string][]Observation)
	c.seen = make(map[observationKey]struct{})
}

// UpsertStation inserts the station or overwrites the attributes of the station with the same id.
// An overwritten station keeps its position in the catalogue order.
func (c *Catalogue) UpsertStation(station Station) error {
	if err := station.validate(); err != nil {
		return fmt.Errorf("failed to upsert station %q: %w", station.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertStationLocked(station)
	c.revision++
	return nil
}

func (c *Catalogue) upsertStationLocked(station Station) {
	if _, ok := c.stations[station.ID]; !ok {
		c.order = append(c.order, station.ID)
	}
	c.stations[station.ID] = station
}

// ByID returns the station with the given id. The second return value is false if no such
// station exists.
func (c *Catalogue) ByID(id string) (Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	station, ok := c.stations[id]
	return station, ok
}

// Size returns the number of stations in the catalogue.
func (c *Catalogue) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stations)
}

// IDs returns all station ids in catalogue order.
func (c *Catalogue) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Stations returns a copy of all stations in catalogue order.
func (c *Catalogue) Stations() []Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stations := make([]Station, 0, len(c.order))
	for _, id := range c.order {
		stations = append(stations, c.stations[id])
	}
	return stations
}

// Dirty returns true if the catalogue was modified since it was last loaded or persisted.
func (c *Catalogue) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision != c.saved
}

// Snapshot returns a consistent copy of the complete catalogue.
func (c *Catalogue) Snapshot() *Snapshot {
	snap, _ := c.snapshot()
	return snap
}

func (c *Catalogue) snapshot() (*Snapshot, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &Snapshot{
		Stations:     make([]Station, 0, len(c.order)),
		Observations: make([]Observation, 0, len(c.seen)),
	}
	for _, id := range c.order {
		snap.Stations = append(snap.Stations, c.stations[id])
		snap.Observations = append(snap.Observations, c.history[id]...)
	}
	return snap, c.revision
}

// Load replaces the content of the catalogue with the persisted artifact. If no artifact exists
// yet, the catalogue is left untouched.
func (c *Catalogue) Load(ctx context.Context) error {
	if c.persister == nil {
		return ErrNoPersister
	}
	c.persistLock.Lock()
	defer c.persistLock.Unlock()

	snap, err := c.persister.Load(ctx)
	if errors.Is(err, ErrNoArtifact) {
		c.logger.Debug("no persisted catalogue found, starting empty",
			slog.String("location", c.persister.Location()))
		return nil
	}
	if err != nil {
		return err
	}

	if err = c.restore(snap); err != nil {
		return fmt.Errorf("%w: malformed catalogue at %q: %w", ErrPersistence, c.persister.Location(), err)
	}
	c.logger.Info("catalogue loaded", slog.String("location", c.persister.Location()),
		slog.Int("stations", len(snap.Stations)), slog.Int("observations", len(snap.Observations)))
	return nil
}

// restore swaps in the content of snap. The catalogue stays unchanged if snap is invalid.
func (c *Catalogue) restore(snap *Snapshot) error {
	fresh := New(nil, c.logger)
	for _, station := range snap.Stations {
		if err := station.validate(); err != nil {
			return fmt.Errorf("station %q: %w", station.ID, err)
		}
		fresh.upsertStationLocked(station)
	}
	for _, obs := range snap.Observations {
		if _, err := fresh.addObservationLocked(obs); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = fresh.order
	c.stations = fresh.stations
	c.history = fresh.history
	c.seen = fresh.seen
	c.revision++
	c.saved = c.revision
	return nil
}

// Persist writes the complete catalogue through the Persister. The snapshot is taken under the
// read lock, so concurrent upserts are either fully contained or not at all.
func (c *Catalogue) Persist(ctx context.Context) error {
	if c.persister == nil {
		return ErrNoPersister
	}
	c.persistLock.Lock()
	defer c.persistLock.Unlock()

	snap, revision := c.snapshot()
	if err := c.persister.Save(ctx, snap); err != nil {
		return err
	}

	c.mu.Lock()
	c.saved = revision
	c.mu.Unlock()
	c.logger.Info("catalogue persisted", slog.String("location", c.persister.Location()),
		slog.Int("stations", len(snap.Stations)), slog.Int("observations", len(snap.Observations)))
	return nil
}
