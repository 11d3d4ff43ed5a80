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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/zdohnal/cups-browsed/pkg/config"
	"github.com/zdohnal/cups-browsed/pkg/core"
	"github.com/zdohnal/cups-browsed/pkg/lifecycle"
	"github.com/zdohnal/cups-browsed/pkg/logger"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

// overrideFlags collects repeated -o key=value flags.
type overrideFlags []string

func (o *overrideFlags) String() string { return fmt.Sprint(*o) }

func (o *overrideFlags) Set(value string) error {
	*o = append(*o, value)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/cups-browsed/cups-browsed.json", "Path to daemon config file")
	debug := flag.Bool("debug", false, "Enable debug logging")

	var overrides overrideFlags

	flag.Var(&overrides, "o", "Configuration override key=value (repeatable)")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg core.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	if err := cfgLoader.ApplyOverrides(&cfg, overrides); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	if *debug {
		logConfig.Debug = true
	}

	daemonLogger, err := lifecycle.CreateComponentLogger(ctx, "cups-browsed", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	daemon, err := core.New(&cfg, daemonLogger)
	if err != nil {
		return err
	}

	return lifecycle.Run(ctx, &lifecycle.Options{
		ServiceName:        "cups-browsed",
		Service:            daemon,
		Logger:             daemonLogger,
		ShutdownRequests:   daemon.ShutdownRequests(),
		OnPermanentMode:    func() { daemon.SetAutoShutdown(false) },
		OnAutoShutdownMode: func() { daemon.SetAutoShutdown(true) },
	})
}
