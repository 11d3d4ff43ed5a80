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

// Package capability merges the capability documents of a cluster's members
// into the single document advertised by the local queue, computes the
// cluster-wide defaults, and derives the capability constraints the driver
// descriptor needs.
package capability

import (
	"sort"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// AutoValue is substituted for a default when the cluster cannot agree on
// an explicit one.
const AutoValue = "auto"

// defaultable lists the keyword attributes that carry a cluster default.
var defaultable = []string{
	models.AttrMedia,
	models.AttrColorMode,
	models.AttrOutputBin,
	models.AttrContentOptimize,
	models.AttrRendering,
	models.AttrScaling,
}

// Merged is the merger's output for one cluster.
type Merged struct {
	Capabilities *models.Capabilities
	Conflicts    []ConstraintPair
}

// Merge unions the capability documents of all live cluster members. The
// member order is the cluster's insertion order; the result is fully
// deterministic for a given member list.
func Merge(members []*models.Capabilities) *Merged {
	live := make([]*models.Capabilities, 0, len(members))

	for _, m := range members {
		if m != nil {
			live = append(live, m)
		}
	}

	if len(live) == 0 {
		return &Merged{Capabilities: &models.Capabilities{}}
	}

	merged := &models.Capabilities{
		Keywords: make(map[string][]string),
		Enums:    make(map[string][]int),
		Margins:  make(map[string][]int),
		Defaults: make(map[string]string),
	}

	for _, m := range live {
		merged.PDLs = unionStrings(merged.PDLs, m.PDLs)

		for attr, values := range m.Keywords {
			merged.Keywords[attr] = unionStrings(merged.Keywords[attr], values)
		}

		for attr, values := range m.Enums {
			merged.Enums[attr] = unionInts(merged.Enums[attr], values)
		}

		for attr, values := range m.Margins {
			merged.Margins[attr] = unionInts(merged.Margins[attr], values)
		}

		merged.Resolutions = unionResolutions(merged.Resolutions, m.Resolutions)
		merged.MediaSizes = unionMediaSizes(merged.MediaSizes, m.MediaSizes)
		merged.MediaSizeRanges = unionMediaSizeRanges(merged.MediaSizeRanges, m.MediaSizeRanges)
		merged.MediaCols = unionMediaCols(merged.MediaCols, m.MediaCols)

		if m.Throughput > merged.Throughput {
			merged.Throughput = m.Throughput
		}
	}

	provider := canonicalProvider(live)
	merged.MakeModel = provider.MakeModel

	applyDefaults(merged, provider)

	return &Merged{
		Capabilities: merged,
		Conflicts:    conflicts(merged, live),
	}
}

// canonicalProvider picks the member with the highest advertised throughput;
// ties break by insertion order.
func canonicalProvider(members []*models.Capabilities) *models.Capabilities {
	best := members[0]

	for _, m := range members[1:] {
		if m.Throughput > best.Throughput {
			best = m
		}
	}

	return best
}

// applyDefaults sets each cluster default from the canonical provider,
// substituting "auto" when the merged list offers a real choice and the
// provider published no explicit default.
func applyDefaults(merged, provider *models.Capabilities) {
	for _, attr := range defaultable {
		if def, ok := provider.Defaults[attr]; ok && def != "" {
			merged.Defaults[attr] = def
			continue
		}

		if len(merged.Keywords[attr]) > 1 {
			merged.Defaults[attr] = AutoValue
		} else if len(merged.Keywords[attr]) == 1 {
			merged.Defaults[attr] = merged.Keywords[attr][0]
		}
	}

	if provider.DefaultResolution != nil {
		res := *provider.DefaultResolution
		merged.DefaultResolution = &res
	}

	if provider.DefaultMediaCol != nil {
		col := *provider.DefaultMediaCol
		merged.DefaultMediaCol = &col
	}
}

func unionStrings(dst, src []string) []string {
	for _, v := range src {
		if !containsString(dst, v) {
			dst = append(dst, v)
		}
	}

	return dst
}

func containsString(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}

	return false
}

func unionInts(dst, src []int) []int {
	for _, v := range src {
		found := false

		for _, e := range dst {
			if e == v {
				found = true
				break
			}
		}

		if !found {
			dst = append(dst, v)
		}
	}

	sort.Ints(dst)

	return dst
}

// unionResolutions unions by (x, y) and keeps the comparator order
// (x ascending, then y ascending).
func unionResolutions(dst, src []models.Resolution) []models.Resolution {
	for _, v := range src {
		found := false

		for _, e := range dst {
			if e == v {
				found = true
				break
			}
		}

		if !found {
			dst = append(dst, v)
		}
	}

	sort.Slice(dst, func(i, j int) bool { return dst[i].Less(dst[j]) })

	return dst
}

func unionMediaSizes(dst, src []models.MediaSize) []models.MediaSize {
	for _, v := range src {
		found := false

		for _, e := range dst {
			if e == v {
				found = true
				break
			}
		}

		if !found {
			dst = append(dst, v)
		}
	}

	sort.Slice(dst, func(i, j int) bool {
		if dst[i].Width != dst[j].Width {
			return dst[i].Width < dst[j].Width
		}

		return dst[i].Height < dst[j].Height
	})

	return dst
}

func unionMediaSizeRanges(dst, src []models.MediaSizeRange) []models.MediaSizeRange {
	for _, v := range src {
		found := false

		for _, e := range dst {
			if e == v {
				found = true
				break
			}
		}

		if !found {
			dst = append(dst, v)
		}
	}

	return dst
}

// unionMediaCols unions by the full (size, margins, source, type) tuple with
// source and type sanitised to keyword form first.
func unionMediaCols(dst, src []models.MediaCol) []models.MediaCol {
	for _, v := range src {
		v.Source = sanitizeKeyword(v.Source)
		v.Type = sanitizeKeyword(v.Type)

		found := false

		for _, e := range dst {
			if e == v {
				found = true
				break
			}
		}

		if !found {
			dst = append(dst, v)
		}
	}

	return dst
}

func sanitizeKeyword(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}
