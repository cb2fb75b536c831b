// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the stationgrid command line tool and service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/stationgrid/internal/config"
	"github.com/wneessen/stationgrid/internal/logger"
	"github.com/wneessen/stationgrid/internal/report"
	"github.com/wneessen/stationgrid/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `Usage: stationgrid [-config file] [-format text|json] <command> [flags]

Commands:
  serve       run the service: scheduled import, autosave, HUP re-imports, USR1 persists
  import      import the configured ingest sources once and persist the catalogue
  near        list the stations around a coordinate
  history     show the observation history of a station
  estimate    interpolate a measurement at a coordinate
  grid        interpolate a measurement on the configured grid
  version     print the version
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	format := flag.String("format", string(report.FormatText), "output format: text or json")
	flag.Usage = func() { _, _ = fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if flag.Arg(0) == "version" {
		fmt.Printf("stationgrid %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(conf.LogLevel)

	serv, err := service.New(ctx, conf, log)
	if err != nil {
		log.Error("failed to initialize stationgrid service", logger.Err(err))
		os.Exit(1)
	}

	cmd := &command{
		service:  serv,
		config:   conf,
		logger:   log,
		reporter: report.New(os.Stdout, report.Format(*format), conf.Locale),
	}
	err = cmd.run(ctx, flag.Arg(0), flag.Args()[1:])
	if closeErr := serv.Close(); closeErr != nil {
		log.Error("failed to close catalogue", logger.Err(closeErr))
	}
	if err != nil {
		if errors.Is(err, errUnknownCommand) {
			flag.Usage()
			os.Exit(2)
		}
		log.Error("command failed", slog.String("command", flag.Arg(0)), logger.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads the defaults and environment, then the given file or the file in the default
// location, if any.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}
	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "stationgrid", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
