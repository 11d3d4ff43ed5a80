/*
 * Copyright 2025 OpenPrinting.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package lifecycle runs a service under signal control: TERM/INT shut it
// down, USR1 switches to permanent mode, USR2 re-enables auto-shutdown.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/logger"
)

const ShutdownTimeout = 10 * time.Second

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// Options holds configuration for running a service.
type Options struct {
	ServiceName  string
	Service      Service
	LoggerConfig *logger.Config
	Logger       logger.Logger

	// ShutdownRequests lets the service ask for its own orderly exit
	// (auto-shutdown). Optional.
	ShutdownRequests <-chan struct{}

	// OnPermanentMode runs on USR1, OnAutoShutdownMode on USR2. Optional.
	OnPermanentMode    func()
	OnAutoShutdownMode func()
}

// Run starts the service and blocks until a signal or a shutdown request
// ends it.
func Run(ctx context.Context, opts *Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Logger

	if log == nil {
		createdLogger, err := CreateComponentLogger(ctx, opts.ServiceName, opts.LoggerConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		log = createdLogger

		defer func() {
			if err := logger.Shutdown(); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown logger")
			}
		}()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			errChan <- fmt.Errorf("service start failed: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return stopService(opts.Service, log)

		case err := <-errChan:
			_ = stopService(opts.Service, log)
			return err

		case <-opts.ShutdownRequests:
			log.Info().Msg("Auto-shutdown requested")
			return stopService(opts.Service, log)

		case sig := <-sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				log.Info().Str("signal", sig.String()).Msg("Shutting down")
				return stopService(opts.Service, log)

			case syscall.SIGUSR1:
				log.Info().Msg("Entering permanent mode, auto-shutdown disabled")

				if opts.OnPermanentMode != nil {
					opts.OnPermanentMode()
				}

			case syscall.SIGUSR2:
				log.Info().Msg("Auto-shutdown enabled")

				if opts.OnAutoShutdownMode != nil {
					opts.OnAutoShutdownMode()
				}
			}
		}
	}
}

func stopService(service Service, log logger.Logger) error {
	stopCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := service.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Service stop failed")
		return err
	}

	return nil
}

// CreateComponentLogger initializes the global logger from config and
// returns a component-scoped logger.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	if err := logger.Init(ctx, config); err != nil {
		return nil, err
	}

	componentLogger := logger.WithComponent(component)

	return logger.NewLogger(componentLogger), nil
}
