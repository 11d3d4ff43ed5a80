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

// Package state persists the daemon's small on-disk state in the cache
// directory: the recorded default printers and the per-queue option files
// read back on queue re-creation.
package state

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	localDefaultFile  = "local-default-printer"
	remoteDefaultFile = "remote-default-printer"
	optionsPrefix     = "options-"
)

// Store reads and writes the cache directory.
type Store struct {
	dir string
}

// NewStore creates the cache directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// SaveOptions writes options-<queue> as key=value lines, one per recorded
// option, sorted for stable files.
func (s *Store) SaveOptions(queue string, options map[string]string) error {
	if len(options) == 0 {
		return s.DeleteOptions(queue)
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, options[k])
	}

	return s.writeAtomic(optionsPrefix+queue, []byte(b.String()))
}

// LoadOptions reads options-<queue>; a missing file yields an empty map.
func (s *Store) LoadOptions(queue string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(s.dir, optionsPrefix+queue))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}

		return nil, fmt.Errorf("read options for %s: %w", queue, err)
	}

	defer func() { _ = f.Close() }()

	options := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			continue
		}

		options[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read options for %s: %w", queue, err)
	}

	return options, nil
}

// DeleteOptions removes options-<queue>.
func (s *Store) DeleteOptions(queue string) error {
	err := os.Remove(filepath.Join(s.dir, optionsPrefix+queue))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove options for %s: %w", queue, err)
	}

	return nil
}

// SaveLocalDefault records the local default printer that held the default
// before one of the daemon's queues took it.
func (s *Store) SaveLocalDefault(name string) error {
	return s.writeAtomic(localDefaultFile, []byte(name+"\n"))
}

// LoadLocalDefault returns the recorded local default, or "".
func (s *Store) LoadLocalDefault() string {
	return s.readLine(localDefaultFile)
}

// ClearLocalDefault forgets the recorded local default.
func (s *Store) ClearLocalDefault() error {
	return s.remove(localDefaultFile)
}

// SaveRemoteDefault records the daemon queue that was default when it
// disappeared, so default status is restored on reappearance.
func (s *Store) SaveRemoteDefault(name string) error {
	return s.writeAtomic(remoteDefaultFile, []byte(name+"\n"))
}

// LoadRemoteDefault returns the recorded remote default, or "".
func (s *Store) LoadRemoteDefault() string {
	return s.readLine(remoteDefaultFile)
}

// ClearRemoteDefault forgets the recorded remote default.
func (s *Store) ClearRemoteDefault() error {
	return s.remove(remoteDefaultFile)
}

func (s *Store) writeAtomic(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

func (s *Store) readLine(name string) string {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func (s *Store) remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
