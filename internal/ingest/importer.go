// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ingest feeds station metadata and station histories from CSV sources into the
// catalogue. A source is either a local file path, a file:// URL or a http(s):// URL.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/logger"
)

// ErrNoFetcher is returned for remote sources if the Importer has no Fetcher.
var ErrNoFetcher = errors.New("no HTTP client configured for remote source")

// Store is the part of the catalogue the Importer writes to.
type Store interface {
	UpsertStation(station catalogue.Station) error
	AddObservation(obs catalogue.Observation) (bool, error)
}

// Fetcher retrieves remote sources.
type Fetcher interface {
	Get(ctx context.Context, endpoint string, consume func(io.Reader) error) (int, error)
}

// Result summarizes an import run.
type Result struct {
	Stations   int `json:"stations"`
	Added      int `json:"observations_added"`
	Duplicates int `json:"observations_duplicate"`
	Rejected   int `json:"observations_rejected"`
}

// Importer reads CSV sources and upserts their content into a Store.
type Importer struct {
	store   Store
	fetcher Fetcher
	logger  *logger.Logger
}

// NewImporter returns an Importer. fetcher may be nil if only local sources are used.
func NewImporter(store Store, fetcher Fetcher, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{store: store, fetcher: fetcher, logger: log}
}

// Import reads all station sources first and all observation sources afterwards, so histories can
// refer to stations of the same run. Observations of unknown stations are counted as rejected.
// Import stops at the first source that cannot be read and returns what was imported so far.
func (i *Importer) Import(ctx context.Context, stationSources, observationSources []string) (Result, error) {
	var result Result

	for _, source := range stationSources {
		var stations []catalogue.Station
		err := i.open(ctx, source, func(r io.Reader) (err error) {
			stations, err = ReadStations(r)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to import stations from %s: %w", source, err)
		}
		for _, station := range stations {
			if err = i.store.UpsertStation(station); err != nil {
				return result, fmt.Errorf("failed to import station %q from %s: %w", station.ID, source, err)
			}
			result.Stations++
		}
		i.logger.Debug("stations imported", slog.String("source", source), slog.Int("count", len(stations)))
	}

	for _, source := range observationSources {
		var observations []catalogue.Observation
		err := i.open(ctx, source, func(r io.Reader) (err error) {
			observations, err = ReadObservations(r)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to import observations from %s: %w", source, err)
		}
		for _, obs := range observations {
			added, err := i.store.AddObservation(obs)
			switch {
			case errors.Is(err, catalogue.ErrStationNotFound), errors.Is(err, catalogue.ErrInvalidObservation):
				i.logger.Warn("observation rejected", slog.String("source", source),
					slog.String("station", obs.StationID), slog.String("date", obs.Date.String()), logger.Err(err))
				result.Rejected++
			case err != nil:
				return result, fmt.Errorf("failed to import observation from %s: %w", source, err)
			case added:
				result.Added++
			default:
				result.Duplicates++
			}
		}
		i.logger.Debug("observations imported", slog.String("source", source),
			slog.Int("count", len(observations)))
	}

	i.logger.Info("import finished", slog.Int("stations", result.Stations), slog.Int("added", result.Added),
		slog.Int("duplicates", result.Duplicates), slog.Int("rejected", result.Rejected))
	return result, nil
}

// open hands the content of the source to consume
func (i *Importer) open(ctx context.Context, source string, consume func(io.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if i.fetcher == nil {
			return ErrNoFetcher
		}
		_, err := i.fetcher.Get(ctx, source, consume)
		return err
	}

	path := source
	if strings.HasPrefix(source, "file://") {
		parsed, err := url.Parse(source)
		if err != nil {
			return fmt.Errorf("failed to parse source URL: %w", err)
		}
		path = parsed.Path
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			i.logger.Error("failed to close source file", logger.Err(err))
		}
	}()
	return consume(file)
}
