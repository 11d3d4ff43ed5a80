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

// Package config provides configuration loading with file backend,
// command-line overrides and validation.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/logger"
)

var (
	errInvalidConfigPtr = errors.New("config must be a non-nil pointer")
	errInvalidOverride  = errors.New("override must have the form key=value")
)

// Validator is implemented by config structs that can validate themselves.
type Validator interface {
	Validate() error
}

// ConfigLoader loads a configuration document into dst.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Config holds the configuration loading dependencies.
type Config struct {
	loader ConfigLoader
	logger logger.Logger
}

// NewConfig initializes a new Config instance with a file loader.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		loader: &FileConfigLoader{logger: log},
		logger: log,
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration file and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if cfg == nil {
		return errInvalidConfigPtr
	}

	if err := c.loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}

// ApplyOverrides overlays "key=value" pairs onto cfg and revalidates. Keys
// use dots to address nested fields by their JSON names
// (e.g. "logging.level=debug"). Values are parsed as
// JSON when possible and fall back to plain strings.
func (c *Config) ApplyOverrides(cfg interface{}, overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}

	baseBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	var base map[string]interface{}
	if err := json.Unmarshal(baseBytes, &base); err != nil {
		return err
	}

	for _, override := range overrides {
		key, value, found := strings.Cut(override, "=")
		if !found || key == "" {
			return fmt.Errorf("%w: %q", errInvalidOverride, override)
		}

		setPath(base, strings.Split(key, "."), parseOverrideValue(value))
	}

	mergedBytes, err := json.Marshal(base)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(mergedBytes, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}

// parseOverrideValue interprets the value as JSON if it parses, else string.
func parseOverrideValue(value string) interface{} {
	var parsed interface{}
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		return parsed
	}

	return value
}

func setPath(doc map[string]interface{}, path []string, value interface{}) {
	for i := 0; i < len(path)-1; i++ {
		child, ok := doc[path[i]].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			doc[path[i]] = child
		}

		doc = child
	}

	doc[path[len(path)-1]] = value
}
