// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/config"
	"github.com/wneessen/stationgrid/internal/geo"
	"github.com/wneessen/stationgrid/internal/logger"
	"github.com/wneessen/stationgrid/internal/report"
	"github.com/wneessen/stationgrid/internal/service"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errMissingFlag    = errors.New("missing required flag")
)

type command struct {
	service  *service.Service
	config   *config.Config
	logger   *logger.Logger
	reporter *report.Reporter
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "serve":
		return c.serve(ctx)
	case "import":
		return c.importSources(ctx)
	case "near":
		return c.near(args)
	case "history":
		return c.history(args)
	case "estimate":
		return c.estimate(args)
	case "grid":
		return c.grid(ctx, args)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
}

func (c *command) serve(ctx context.Context) error {
	c.logger.Info("starting stationgrid service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err := c.service.Run(ctx); err != nil {
		return fmt.Errorf("failed to run stationgrid service: %w", err)
	}
	c.logger.Info("shutting down stationgrid service")
	return nil
}

func (c *command) importSources(ctx context.Context) error {
	result, err := c.service.Import(ctx)
	if err != nil {
		return err
	}
	if err = c.service.Persist(ctx); err != nil {
		return err
	}
	return c.reporter.Import(result)
}

func (c *command) near(args []string) error {
	flags := newFlagSet("near")
	lat, lon := coordinateFlags(flags)
	radius := flags.Float64("radius", c.config.Query.Radius, "search radius in kilometers")
	if err := flags.Parse(args); err != nil {
		return err
	}
	center, err := coordinate(flags, *lat, *lon)
	if err != nil {
		return err
	}
	return c.reporter.Neighbours(center, *radius, c.service.Near(center, *radius))
}

func (c *command) history(args []string) error {
	flags := newFlagSet("history")
	id := flags.String("id", "", "station id")
	name := flags.String("name", catalogue.Evaporation, "measurement name")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id", errMissingFlag)
	}
	station, ok := c.service.Catalogue().ByID(*id)
	if !ok {
		return fmt.Errorf("%w: %s", catalogue.ErrStationNotFound, *id)
	}
	return c.reporter.History(station, *name, c.service.Catalogue().ObservationsForStation(*id, *name))
}

func (c *command) estimate(args []string) error {
	flags := newFlagSet("estimate")
	lat, lon := coordinateFlags(flags)
	sel := selectorFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	point, err := coordinate(flags, *lat, *lon)
	if err != nil {
		return err
	}
	value, contributions, err := c.service.Estimate(point, *sel)
	if err != nil {
		return err
	}
	return c.reporter.Estimate(point, sel.Name, value, contributions)
}

func (c *command) grid(ctx context.Context, args []string) error {
	flags := newFlagSet("grid")
	sel := selectorFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	samples, err := c.service.Grid(ctx, *sel)
	if err != nil {
		return err
	}
	return c.reporter.Grid(sel.Name, samples)
}

func newFlagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	return flags
}

func coordinateFlags(flags *flag.FlagSet) (*float64, *float64) {
	lat := flags.Float64("lat", 0, "latitude in decimal degrees")
	lon := flags.Float64("lon", 0, "longitude in decimal degrees")
	return lat, lon
}

func selectorFlags(flags *flag.FlagSet) *service.Selector {
	sel := new(service.Selector)
	flags.StringVar(&sel.Name, "name", catalogue.Evaporation, "measurement name")
	flags.StringVar(&sel.Day, "day", "", "day of the observations (YYYY-MM-DD), mean of all days if empty")
	return sel
}

// coordinate requires both -lat and -lon to be set explicitly
func coordinate(flags *flag.FlagSet, lat, lon float64) (geo.Coordinate, error) {
	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["lat"] || !set["lon"] {
		return geo.Coordinate{}, fmt.Errorf("%w: -lat and -lon", errMissingFlag)
	}
	point := geo.NewCoordinate(lat, lon)
	if !point.Valid() {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinate: %s", point)
	}
	return point, nil
}
