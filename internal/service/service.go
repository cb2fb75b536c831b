// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service wires the catalogue, its storage, the ingest sources and the query components
// into the long-running stationgrid service and the one-shot CLI commands.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/config"
	"github.com/wneessen/stationgrid/internal/http"
	"github.com/wneessen/stationgrid/internal/ingest"
	"github.com/wneessen/stationgrid/internal/logger"
	"github.com/wneessen/stationgrid/internal/storage/jsonfile"
	"github.com/wneessen/stationgrid/internal/storage/sqlite"
)

const (
	importJobName   = "catalogue_import_job"
	autosaveJobName = "catalogue_autosave_job"

	shutdownPersistTimeout = 30 * time.Second
)

// Service owns the catalogue and everything that feeds or queries it.
type Service struct {
	config    *config.Config
	logger    *logger.Logger
	catalogue *catalogue.Catalogue
	importer  *ingest.Importer
	scheduler gocron.Scheduler
	closer    io.Closer

	// importLock serializes imports triggered by the scheduler, signals and resume events
	importLock sync.Mutex

	shutdownOnce sync.Once
	shutdownErr  error
	closeOnce    sync.Once
	closeErr     error

	SignalSrc     signalSource
	monitorResume func(ctx context.Context)
}

// New opens the configured catalogue storage and loads the persisted catalogue.
func New(ctx context.Context, conf *config.Config, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.Discard()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	persister, closer, err := openPersister(ctx, conf)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	cat := catalogue.New(persister, log)
	if err = cat.Load(ctx); err != nil {
		_ = scheduler.Shutdown()
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		catalogue: cat,
		importer:  ingest.NewImporter(cat, http.New(log), log),
		scheduler: scheduler,
		closer:    closer,
		SignalSrc: stdLibSignalSource{},
	}
	service.monitorResume = service.monitorSleepResume
	return service, nil
}

// openPersister returns the storage backend selected by the catalogue driver. The io.Closer is nil
// for backends without resources to release.
func openPersister(ctx context.Context, conf *config.Config) (catalogue.Persister, io.Closer, error) {
	switch conf.Catalogue.Driver {
	case config.DriverJSON:
		return jsonfile.New(conf.Catalogue.File), nil, nil
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, conf.Catalogue.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalogue database: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported catalogue driver: %s", conf.Catalogue.Driver)
	}
}

// Catalogue returns the catalogue of the service.
func (s *Service) Catalogue() *catalogue.Catalogue {
	return s.catalogue
}

// Import reads the configured ingest sources into the catalogue.
func (s *Service) Import(ctx context.Context) (ingest.Result, error) {
	s.importLock.Lock()
	defer s.importLock.Unlock()
	return s.importer.Import(ctx, s.config.Ingest.Stations, s.config.Ingest.Observations)
}

// Persist writes the catalogue if it was modified since it was loaded or last persisted.
func (s *Service) Persist(ctx context.Context) error {
	if !s.catalogue.Dirty() {
		s.logger.Debug("catalogue unchanged, skipping persist")
		return nil
	}
	if err := s.catalogue.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist catalogue: %w", err)
	}
	return nil
}

// Close stops the scheduler and releases the catalogue storage. It does not persist the catalogue.
func (s *Service) Close() error {
	shutdownErr := s.shutdownScheduler()
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return errors.Join(shutdownErr, s.closeErr)
}

func (s *Service) shutdownScheduler() error {
	s.shutdownOnce.Do(func() {
		if err := s.scheduler.Shutdown(); err != nil {
			s.shutdownErr = fmt.Errorf("failed to shut down scheduler: %w", err)
		}
	})
	return s.shutdownErr
}

// Run starts the scheduled import and autosave jobs and blocks until ctx is cancelled. The
// catalogue is persisted one last time before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if s.hasSources() {
		if err := s.createScheduledJob(ctx, s.config.Intervals.Import, s.importTask, importJobName,
			gocron.WithStartAt(gocron.WithStartImmediately())); err != nil {
			return err
		}
	}
	if err := s.createScheduledJob(ctx, s.config.Intervals.Autosave, s.autosaveTask, autosaveJobName); err != nil {
		return err
	}
	s.scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGHUP, syscall.SIGUSR1)
	go s.HandleSignals(ctx, sigChan)
	if s.hasSources() && !s.config.Ingest.DisableResumeImport && s.monitorResume != nil {
		go s.monitorResume(ctx)
	}

	// Wait for the context to cancel
	<-ctx.Done()
	s.SignalSrc.Stop(sigChan)
	shutdownErr := s.shutdownScheduler()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownPersistTimeout)
	defer cancel()
	if err := s.Persist(persistCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	return errors.Join(shutdownErr, s.Close())
}

func (s *Service) hasSources() bool {
	return len(s.config.Ingest.Stations) > 0 || len(s.config.Ingest.Observations) > 0
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string, options ...gocron.JobOption,
) error {
	options = append(options,
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	_, err := s.scheduler.NewJob(gocron.DurationJob(interval), gocron.NewTask(task), options...)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// importTask imports the configured sources. Failures are logged, the next run retries.
func (s *Service) importTask(ctx context.Context) {
	result, err := s.Import(ctx)
	if err != nil {
		s.logger.Error("failed to import catalogue sources", logger.Err(err),
			slog.Int("stations", result.Stations), slog.Int("observations", result.Added))
	}
}

// autosaveTask persists the catalogue if it has unsaved modifications.
func (s *Service) autosaveTask(ctx context.Context) {
	if err := s.Persist(ctx); err != nil {
		s.logger.Error("failed to autosave catalogue", logger.Err(err))
	}
}
