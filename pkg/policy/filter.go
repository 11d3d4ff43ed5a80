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

package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// FilterSense inverts a browse filter.
type FilterSense string

const (
	SenseMatch    FilterSense = "match"
	SenseNotMatch FilterSense = "not-match"
)

// BrowseFilter is one filter applied to discovery event metadata. Without a
// pattern the filter checks the field for the DNS-SD boolean "T"; with a
// pattern it matches the field's string representation.
type BrowseFilter struct {
	Sense   FilterSense
	Field   string
	Pattern string

	regex *regexp.Regexp
}

// NewBrowseFilter compiles the filter. An empty pattern produces the
// boolean-TXT form.
func NewBrowseFilter(sense FilterSense, field, pattern string) (*BrowseFilter, error) {
	if sense != SenseNotMatch {
		sense = SenseMatch
	}

	f := &BrowseFilter{Sense: sense, Field: field, Pattern: pattern}

	if pattern != "" {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid browse filter pattern %q: %w", pattern, err)
		}

		f.regex = regex
	}

	return f, nil
}

// matches evaluates the filter against one event without applying the sense.
func (f *BrowseFilter) matches(event *models.DiscoveryEvent) bool {
	value, ok := eventField(event, f.Field)

	if f.regex == nil {
		// Boolean TXT convention: a "true" value is the literal "T".
		return ok && strings.EqualFold(value, "T")
	}

	if !ok {
		return false
	}

	return f.regex.MatchString(value)
}

// Accepts applies the filter sense: a non-match under "match" or a match
// under "not-match" rejects the event.
func (f *BrowseFilter) Accepts(event *models.DiscoveryEvent) bool {
	matched := f.matches(event)

	if f.Sense == SenseNotMatch {
		return !matched
	}

	return matched
}

// FilterChain evaluates filters in sequence; the first rejection wins.
type FilterChain []*BrowseFilter

// Accepts reports whether the event passes every filter.
func (c FilterChain) Accepts(event *models.DiscoveryEvent) bool {
	for _, f := range c {
		if !f.Accepts(event) {
			return false
		}
	}

	return true
}

// eventField resolves a filter field name to the event's value. Well-known
// fields come first; anything else is looked up in the TXT metadata.
func eventField(event *models.DiscoveryEvent, field string) (string, bool) {
	switch strings.ToLower(field) {
	case "name", "queue":
		return event.Identity.ServiceName, event.Identity.ServiceName != ""
	case "host", "hostname":
		return event.Host, event.Host != ""
	case "port":
		return strconv.Itoa(event.Port), event.Port != 0
	case "service", "service_type":
		return event.ServiceType, event.ServiceType != ""
	case "domain":
		return event.Identity.Domain, event.Identity.Domain != ""
	default:
		value, ok := event.TXT[field]
		return value, ok
	}
}
