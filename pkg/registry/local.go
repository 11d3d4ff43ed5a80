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

package registry

import (
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// SetLocalPrinters replaces the local-printer cache with a fresh spooler
// listing.
func (r *Registry) SetLocalPrinters(printers []models.LocalPrinter) {
	r.localMu.Lock()
	defer r.localMu.Unlock()

	r.local = make(map[string]models.LocalPrinter, len(printers))

	for _, p := range printers {
		r.local[strings.ToLower(p.Name)] = p
	}
}

// UpsertLocal records one queue in the cache.
func (r *Registry) UpsertLocal(printer models.LocalPrinter) {
	r.localMu.Lock()
	defer r.localMu.Unlock()

	r.local[strings.ToLower(printer.Name)] = printer
}

// RemoveLocal drops one queue from the cache.
func (r *Registry) RemoveLocal(name string) {
	r.localMu.Lock()
	defer r.localMu.Unlock()

	delete(r.local, strings.ToLower(name))
}

// LookupLocal finds a cached queue by case-insensitive name. It implements
// the name resolver's collision check.
func (r *Registry) LookupLocal(name string) (models.LocalPrinter, bool) {
	r.localMu.RLock()
	defer r.localMu.RUnlock()

	p, ok := r.local[strings.ToLower(name)]

	return p, ok
}
