// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/wneessen/stationgrid/internal/geo"
)

const (
	configEnv = "STATIONGRID"

	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Coordinate is a configurable geographic coordinate
type Coordinate struct {
	Lat float64 `fig:"lat"`
	Lon float64 `fig:"lon"`
}

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Catalogue struct {
		// Allowed values: json, sqlite
		Driver string `fig:"driver" default:"json"`
		File   string `fig:"file"`
	} `fig:"catalogue"`

	Query struct {
		Radius float64 `fig:"radius" default:"36"`
	} `fig:"query"`

	Interpolation struct {
		Power float64 `fig:"power" default:"2.0"`
	} `fig:"interpolation"`

	Grid struct {
		Radius float64 `fig:"radius" default:"120"`
		CountX int     `fig:"count_x" default:"10"`
		CountY int     `fig:"count_y" default:"10"`
		Region struct {
			A Coordinate `fig:"a"`
			B Coordinate `fig:"b"`
		} `fig:"region"`
	} `fig:"grid"`

	Ingest struct {
		Stations     []string `fig:"stations"`
		Observations []string `fig:"observations"`
		// Disables the re-import of the sources after the system resumed from sleep
		DisableResumeImport bool `fig:"disable_resume_import"`
	} `fig:"ingest"`

	Intervals struct {
		Import   time.Duration `fig:"import" default:"6h"`
		Autosave time.Duration `fig:"autosave" default:"5m"`
	} `fig:"intervals"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}

	switch c.Catalogue.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("invalid catalogue driver: %s", c.Catalogue.Driver)
	}
	if c.Catalogue.File == "" {
		ext := ".json"
		if c.Catalogue.Driver == DriverSQLite {
			ext = ".db"
		}
		home, _ := os.UserHomeDir()
		c.Catalogue.File = filepath.Join(home, ".config", "stationgrid", "stations"+ext)
	}

	if c.Query.Radius <= 0 {
		return fmt.Errorf("invalid query radius: %f", c.Query.Radius)
	}
	if c.Interpolation.Power <= 0 {
		return fmt.Errorf("invalid interpolation power: %f", c.Interpolation.Power)
	}
	if c.Grid.Radius <= 0 {
		return fmt.Errorf("invalid grid radius: %f", c.Grid.Radius)
	}
	if c.Grid.CountX < 1 || c.Grid.CountY < 1 {
		return fmt.Errorf("invalid grid size: %d x %d", c.Grid.CountX, c.Grid.CountY)
	}
	if c.Grid.Region.A == (Coordinate{}) && c.Grid.Region.B == (Coordinate{}) {
		c.Grid.Region.A = Coordinate{Lat: geo.Germany.A.Lat, Lon: geo.Germany.A.Lon}
		c.Grid.Region.B = Coordinate{Lat: geo.Germany.B.Lat, Lon: geo.Germany.B.Lon}
	}
	region := c.Region()
	if !region.A.Valid() || !region.B.Valid() || region.Degenerate() {
		return fmt.Errorf("invalid grid region: %s to %s", region.A, region.B)
	}

	if c.Intervals.Import <= 0 || c.Intervals.Autosave <= 0 {
		return fmt.Errorf("invalid intervals: import %s, autosave %s", c.Intervals.Import,
			c.Intervals.Autosave)
	}

	return nil
}

// Region returns the configured grid region.
func (c *Config) Region() geo.Region {
	return geo.NewRegion(geo.NewCoordinate(c.Grid.Region.A.Lat, c.Grid.Region.A.Lon),
		geo.NewCoordinate(c.Grid.Region.B.Lat, c.Grid.Region.B.Lon))
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
