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
	ipp "github.com/phin1x/go-ipp"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// keywordAttributes are the keyword-list capabilities carried into the
// capability document verbatim.
var keywordAttributes = map[string]string{
	"media-supported":                  models.AttrMedia,
	"media-source-supported":           models.AttrMediaSource,
	"media-type-supported":             models.AttrMediaType,
	"output-bin-supported":             models.AttrOutputBin,
	"print-color-mode-supported":       models.AttrColorMode,
	"sides-supported":                  models.AttrSides,
	"print-content-optimize-supported": models.AttrContentOptimize,
	"print-rendering-intent-supported": models.AttrRendering,
	"print-scaling-supported":          models.AttrScaling,
	"finishing-template-supported":     models.AttrFinishingTemplate,
}

// defaultAttributes map the endpoint's "-default" attributes onto the
// document's defaults.
var defaultAttributes = map[string]string{
	"media-default":                  models.AttrMedia,
	"media-source-default":           models.AttrMediaSource,
	"media-type-default":             models.AttrMediaType,
	"output-bin-default":             models.AttrOutputBin,
	"print-color-mode-default":       models.AttrColorMode,
	"sides-default":                  models.AttrSides,
	"print-content-optimize-default": models.AttrContentOptimize,
	"print-rendering-intent-default": models.AttrRendering,
	"print-scaling-default":          models.AttrScaling,
}

var enumAttributes = map[string]string{
	"finishings-supported":    models.AttrFinishings,
	"print-quality-supported": models.AttrQuality,
}

var marginAttributes = []string{
	"media-left-margin-supported",
	"media-right-margin-supported",
	"media-top-margin-supported",
	"media-bottom-margin-supported",
}

// CapabilitiesFromAttributes builds the capability document from a
// Get-Printer-Attributes response group.
func CapabilitiesFromAttributes(attrs map[string][]ipp.Attribute) *models.Capabilities {
	caps := &models.Capabilities{
		Keywords: make(map[string][]string),
		Enums:    make(map[string][]int),
		Margins:  make(map[string][]int),
		Defaults: make(map[string]string),
	}

	caps.MakeModel, _ = StringValue(attrs, "printer-make-and-model")
	caps.Throughput, _ = IntValue(attrs, "pages-per-minute")
	caps.PDLs = StringsValue(attrs, "document-format-supported")

	for attrName, key := range keywordAttributes {
		if values := StringsValue(attrs, attrName); len(values) > 0 {
			caps.Keywords[key] = values
		}
	}

	for attrName, key := range defaultAttributes {
		if value, ok := StringValue(attrs, attrName); ok && value != "" {
			caps.Defaults[key] = value
		}
	}

	for attrName, key := range enumAttributes {
		if values := IntsValue(attrs, attrName); len(values) > 0 {
			caps.Enums[key] = values
		}
	}

	for _, attrName := range marginAttributes {
		if values := IntsValue(attrs, attrName); len(values) > 0 {
			caps.Margins[attrName] = values
		}
	}

	for _, raw := range StringsValue(attrs, "printer-resolution-supported") {
		if x, y, ok := ParseResolution(raw); ok {
			caps.Resolutions = append(caps.Resolutions, models.Resolution{X: x, Y: y})
		}
	}

	if raw, ok := StringValue(attrs, "printer-resolution-default"); ok {
		if x, y, ok := ParseResolution(raw); ok {
			caps.DefaultResolution = &models.Resolution{X: x, Y: y}
		}
	}

	for _, name := range caps.Keywords[models.AttrMedia] {
		if size, ok := ParseMediaSize(name); ok {
			caps.MediaSizes = appendMediaSize(caps.MediaSizes, size)
		}
	}

	return caps
}

func appendMediaSize(sizes []models.MediaSize, size models.MediaSize) []models.MediaSize {
	for _, s := range sizes {
		if s == size {
			return sizes
		}
	}

	return append(sizes, size)
}

// PrinterStateFromAttributes extracts the printer state and the
// accepting-jobs flag used by the dispatcher.
func PrinterStateFromAttributes(attrs map[string][]ipp.Attribute) (models.PrinterState, bool) {
	state, ok := IntValue(attrs, "printer-state")
	if !ok {
		return models.PrinterIdle, false
	}

	accepting, ok := BoolValue(attrs, "printer-is-accepting-jobs")
	if !ok {
		accepting = true
	}

	return models.PrinterState(state), accepting
}
