// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package sqlite persists the station catalogue in an embedded SQLite database with a stations
// and an observations table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
)

// SchemaVersion is stored in the meta table on every Save.
const SchemaVersion = 1

const migration = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stations (
	id         TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	short_name TEXT NOT NULL DEFAULT '',
	lat        REAL NOT NULL,
	lon        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS observations (
	station_id TEXT NOT NULL REFERENCES stations(id),
	date       TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      REAL NOT NULL,
	position   INTEGER NOT NULL,
	PRIMARY KEY (station_id, date, name)
);

CREATE INDEX IF NOT EXISTS idx_observations_name ON observations(name);
`

// Store implements catalogue.Persister on top of modernc.org/sqlite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (and if necessary creates) the SQLite database at path and applies the schema.
func New(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: failed to create catalogue directory: %w", catalogue.ErrPersistence, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database %q: %w", catalogue.ErrPersistence, path, err)
	}
	// Pragmas are per connection, a single connection keeps foreign_keys in effect for every tx
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to exec %s: %w", catalogue.ErrPersistence, pragma, err)
		}
	}
	if _, err = db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to migrate sqlite database: %w", catalogue.ErrPersistence, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the path of the database file.
func (s *Store) Location() string {
	return s.path
}

// Load reads all stations and observations. It returns catalogue.ErrNoArtifact if the catalogue
// was never saved to this database.
func (s *Store) Load(ctx context.Context) (*catalogue.Snapshot, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalogue.ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read schema version: %w", catalogue.ErrPersistence, err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", catalogue.ErrPersistence, version)
	}

	snap := &catalogue.Snapshot{}
	if snap.Stations, err = s.loadStations(ctx); err != nil {
		return nil, err
	}
	if snap.Observations, err = s.loadObservations(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadStations(ctx context.Context) ([]catalogue.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, short_name, lat, lon FROM stations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query stations: %w", catalogue.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	stations := make([]catalogue.Station, 0)
	for rows.Next() {
		var station catalogue.Station
		var lat, lon float64
		if err = rows.Scan(&station.ID, &station.Name, &station.ShortName, &lat, &lon); err != nil {
			return nil, fmt.Errorf("%w: failed to scan station: %w", catalogue.ErrPersistence, err)
		}
		station.Coordinate = geo.NewCoordinate(lat, lon)
		stations = append(stations, station)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate stations: %w", catalogue.ErrPersistence, err)
	}
	return stations, nil
}

func (s *Store) loadObservations(ctx context.Context) ([]catalogue.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT station_id, date, name, value FROM observations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query observations: %w", catalogue.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	observations := make([]catalogue.Observation, 0)
	for rows.Next() {
		var obs catalogue.Observation
		var date string
		if err = rows.Scan(&obs.StationID, &date, &obs.Name, &obs.Value); err != nil {
			return nil, fmt.Errorf("%w: failed to scan observation: %w", catalogue.ErrPersistence, err)
		}
		if obs.Date, err = catalogue.ParseDate(date); err != nil {
			return nil, fmt.Errorf("%w: %w", catalogue.ErrPersistence, err)
		}
		observations = append(observations, obs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate observations: %w", catalogue.ErrPersistence, err)
	}
	return observations, nil
}

// Save replaces the content of the database with the snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snapshot *catalogue.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", catalogue.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM observations`, `DELETE FROM stations`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: failed to clear tables: %w", catalogue.ErrPersistence, err)
		}
	}

	stationStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stations (id, position, name, short_name, lat, lon) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare station insert: %w", catalogue.ErrPersistence, err)
	}
	defer func() { _ = stationStmt.Close() }()
	for i, station := range snapshot.Stations {
		if _, err = stationStmt.ExecContext(ctx, station.ID, i, station.Name, station.ShortName,
			station.Coordinate.Lat, station.Coordinate.Lon); err != nil {
			return fmt.Errorf("%w: failed to insert station %q: %w", catalogue.ErrPersistence, station.ID, err)
		}
	}

	obsStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (station_id, date, name, value, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare observation insert: %w", catalogue.ErrPersistence, err)
	}
	defer func() { _ = obsStmt.Close() }()
	for i, obs := range snapshot.Observations {
		if _, err = obsStmt.ExecContext(ctx, obs.StationID, obs.Date.String(), obs.Name, obs.Value, i); err != nil {
			return fmt.Errorf("%w: failed to insert observation of station %q: %w", catalogue.ErrPersistence,
				obs.StationID, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		SchemaVersion); err != nil {
		return fmt.Errorf("%w: failed to write schema version: %w", catalogue.ErrPersistence, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit catalogue: %w", catalogue.ErrPersistence, err)
	}
	return nil
}
