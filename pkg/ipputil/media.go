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

package ipputil

import (
	"strconv"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// BorderlessSuffix marks the borderless variant of a self-describing media
// size name.
const BorderlessSuffix = ".Borderless"

// ParseMediaSize extracts the dimensions of a PWG self-describing media
// name ("iso_a4_210x297mm", "na_letter_8.5x11in") in hundredths of
// millimeters.
func ParseMediaSize(name string) (models.MediaSize, bool) {
	name = strings.TrimSuffix(name, BorderlessSuffix)

	idx := strings.LastIndex(name, "_")
	if idx < 0 || idx == len(name)-1 {
		return models.MediaSize{}, false
	}

	dims := name[idx+1:]

	var unitFactor float64

	switch {
	case strings.HasSuffix(dims, "mm"):
		unitFactor = 100
		dims = strings.TrimSuffix(dims, "mm")
	case strings.HasSuffix(dims, "in"):
		unitFactor = 2540
		dims = strings.TrimSuffix(dims, "in")
	default:
		return models.MediaSize{}, false
	}

	parts := strings.SplitN(dims, "x", 2)
	if len(parts) != 2 {
		return models.MediaSize{}, false
	}

	w, errW := strconv.ParseFloat(parts[0], 64)
	h, errH := strconv.ParseFloat(parts[1], 64)

	if errW != nil || errH != nil {
		return models.MediaSize{}, false
	}

	return models.MediaSize{
		Width:  int(w * unitFactor),
		Height: int(h * unitFactor),
	}, true
}

// SameMediaSize compares two self-describing names, treating a bordered
// size as implicitly covering its borderless variant.
func SameMediaSize(requested, supported string) bool {
	if requested == supported {
		return true
	}

	return strings.TrimSuffix(requested, BorderlessSuffix) ==
		strings.TrimSuffix(supported, BorderlessSuffix)
}
