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

// Package ipputil holds the helpers shared by every component that speaks
// IPP: URI building, attribute extraction and the mapping from raw printer
// attributes to the capability document.
package ipputil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	ipp "github.com/phin1x/go-ipp"
)

// Attributes the daemon adds to queues it controls. They are registered
// with the go-ipp encoder so requests carrying them encode cleanly.
const (
	// AttrControlledMarker is the configuration bit identifying a queue as
	// daemon-controlled.
	AttrControlledMarker = "cups-browsed"
	// AttrDestinationOption is the per-job destination option the
	// cooperating backend reads ("<job-id> <uri> <format> <resolution>").
	AttrDestinationOption = "cups-browsed-dest-printer-default"
)

//nolint:gochecknoinits // go-ipp only encodes attributes it has a tag for
func init() {
	ipp.AttributeTagMapping[AttrControlledMarker] = ipp.TagName
	ipp.AttributeTagMapping[AttrDestinationOption] = ipp.TagName
}

// PrinterURI builds the spooler queue URI scheme://host:port/printers/<name>
// with the name percent-encoded.
func PrinterURI(scheme, host string, port int, name string) string {
	return fmt.Sprintf("%s://%s:%d/printers/%s", scheme, host, port, url.PathEscape(name))
}

// HTTPURL converts an ipp:// or ipps:// endpoint URI into the http(s) URL
// the request is POSTed to.
func HTTPURL(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid printer uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "ipp", "http":
		u.Scheme = "http"

		if u.Port() == "" {
			u.Host = u.Host + ":631"
		}
	case "ipps", "https":
		u.Scheme = "https"

		if u.Port() == "" {
			u.Host = u.Host + ":631"
		}
	default:
		return "", fmt.Errorf("invalid printer uri scheme %q: %w", u.Scheme, errBadScheme)
	}

	return u.String(), nil
}

// StringValue returns the first string value of the attribute.
func StringValue(attrs map[string][]ipp.Attribute, name string) (string, bool) {
	values, ok := attrs[name]
	if !ok || len(values) == 0 {
		return "", false
	}

	switch v := values[0].Value.(type) {
	case string:
		return v, true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// StringsValue returns every string value of the attribute.
func StringsValue(attrs map[string][]ipp.Attribute, name string) []string {
	values, ok := attrs[name]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(values))

	for _, a := range values {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprintf("%v", a.Value))
		}
	}

	return out
}

// IntValue returns the first integer value of the attribute.
func IntValue(attrs map[string][]ipp.Attribute, name string) (int, bool) {
	values, ok := attrs[name]
	if !ok || len(values) == 0 {
		return 0, false
	}

	return toInt(values[0].Value)
}

// IntsValue returns every integer value of the attribute.
func IntsValue(attrs map[string][]ipp.Attribute, name string) []int {
	values, ok := attrs[name]
	if !ok {
		return nil
	}

	out := make([]int, 0, len(values))

	for _, a := range values {
		if n, ok := toInt(a.Value); ok {
			out = append(out, n)
		}
	}

	return out
}

// BoolValue returns the first boolean value of the attribute.
func BoolValue(attrs map[string][]ipp.Attribute, name string) (bool, bool) {
	values, ok := attrs[name]
	if !ok || len(values) == 0 {
		return false, false
	}

	switch v := values[0].Value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case string:
		return v == "true" || v == "1", true
	default:
		return false, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

// ParseResolution parses "600dpi" or "600x600dpi" style values; it also
// accepts whatever string form a decoded resolution attribute prints as.
func ParseResolution(s string) (x, y int, ok bool) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.Trim(s, "{}")), "dpi")
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, 0, false
	}

	if fields := strings.Fields(s); len(fields) >= 2 {
		// "{600 600 3}" style struct dump: width height depth.
		x, errX := strconv.Atoi(fields[0])
		y, errY := strconv.Atoi(fields[1])

		if errX == nil && errY == nil {
			return x, y, true
		}

		return 0, 0, false
	}

	parts := strings.SplitN(s, "x", 2)

	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}

	if len(parts) == 1 {
		return x, x, true
	}

	y, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}

	return x, y, true
}
