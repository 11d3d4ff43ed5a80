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

package dispatch

import (
	"github.com/zdohnal/cups-browsed/pkg/ipputil"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

// Print quality enums.
const (
	qualityDraft  = 3
	qualityNormal = 4
	qualityHigh   = 5
)

// suitable reports whether the member's capability set satisfies the job's
// requested options.
func suitable(member *models.RemotePrinter, job *spooler.JobAttributes) bool {
	caps := member.Capabilities
	if caps == nil {
		return false
	}

	if job.Format != "" && job.Format != defaultFormat && !caps.SupportsPDL(job.Format) {
		return false
	}

	if job.PageSize != "" && !supportsPageSize(caps, job.PageSize) {
		return false
	}

	if sides := mapDuplex(job.Sides); sides != "" && !caps.SupportsKeyword(models.AttrSides, sides) {
		return false
	}

	if job.ColorMode != "" && !caps.SupportsKeyword(models.AttrColorMode, job.ColorMode) {
		return false
	}

	if job.MediaType != "" && !caps.SupportsKeyword(models.AttrMediaType, job.MediaType) {
		return false
	}

	if job.OutputBin != "" && !caps.SupportsKeyword(models.AttrOutputBin, job.OutputBin) {
		return false
	}

	for _, finishing := range job.Finishings {
		if !supportsEnum(caps, models.AttrFinishings, finishing) {
			return false
		}
	}

	if job.Quality != 0 && len(caps.Enums[models.AttrQuality]) > 0 &&
		!supportsEnum(caps, models.AttrQuality, job.Quality) {
		return false
	}

	return true
}

// supportsPageSize honors the convention that a bordered size implicitly
// covers its .Borderless variant.
func supportsPageSize(caps *models.Capabilities, requested string) bool {
	for _, supported := range caps.Keywords[models.AttrMedia] {
		if ipputil.SameMediaSize(requested, supported) {
			return true
		}
	}

	return false
}

func supportsEnum(caps *models.Capabilities, attr string, value int) bool {
	for _, v := range caps.Enums[attr] {
		if v == value {
			return true
		}
	}

	return false
}

// mapDuplex translates the spooler's duplex naming into the endpoint's
// sides vocabulary; sides values pass through.
func mapDuplex(value string) string {
	switch value {
	case "None", "Off":
		return "one-sided"
	case "DuplexNoTumble":
		return "two-sided-long-edge"
	case "DuplexTumble":
		return "two-sided-short-edge"
	default:
		return value
	}
}

// selectResolution picks draft -> minimum, high -> maximum, otherwise the
// endpoint's default with a fixed sentinel when none is published.
func selectResolution(caps *models.Capabilities, quality int) string {
	if caps == nil {
		return fallbackResolve
	}

	switch quality {
	case qualityDraft:
		if r, ok := minResolution(caps); ok {
			return r.String()
		}
	case qualityHigh:
		if r, ok := maxResolution(caps); ok {
			return r.String()
		}
	}

	if caps.DefaultResolution != nil {
		return caps.DefaultResolution.String()
	}

	return fallbackResolve
}

func minResolution(caps *models.Capabilities) (models.Resolution, bool) {
	if len(caps.Resolutions) == 0 {
		return models.Resolution{}, false
	}

	best := caps.Resolutions[0]

	for _, r := range caps.Resolutions[1:] {
		if r.Less(best) {
			best = r
		}
	}

	return best, true
}

func maxResolution(caps *models.Capabilities) (models.Resolution, bool) {
	if len(caps.Resolutions) == 0 {
		return models.Resolution{}, false
	}

	best := caps.Resolutions[0]

	for _, r := range caps.Resolutions[1:] {
		if best.Less(r) {
			best = r
		}
	}

	return best, true
}
