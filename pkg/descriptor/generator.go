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

package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/capability"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

// PPDGenerator writes a descriptor synthesised directly from the capability
// document into a spool directory.
type PPDGenerator struct {
	dir string
}

var _ Generator = (*PPDGenerator)(nil)

// NewPPDGenerator builds a generator writing into dir.
func NewPPDGenerator(dir string) *PPDGenerator {
	return &PPDGenerator{dir: dir}
}

func (g *PPDGenerator) Generate(queueName string, caps *models.Capabilities, conflicts []capability.ConstraintPair) (string, error) {
	if caps == nil {
		return "", errNoCapabilities
	}

	var b strings.Builder

	nickname := caps.MakeModel
	if nickname == "" {
		nickname = queueName
	}

	b.WriteString("*PPD-Adobe: \"4.3\"\n")
	b.WriteString("*FormatVersion: \"4.3\"\n")
	b.WriteString("*FileVersion: \"1.0\"\n")
	b.WriteString("*LanguageVersion: English\n")
	b.WriteString("*LanguageEncoding: ISOLatin1\n")
	fmt.Fprintf(&b, "*PCFileName: \"%s.PPD\"\n", pcFileName(queueName))
	fmt.Fprintf(&b, "*Manufacturer: \"%s\"\n", manufacturer(nickname))
	fmt.Fprintf(&b, "*ModelName: \"%s\"\n", nickname)
	fmt.Fprintf(&b, "*Product: \"(%s)\"\n", nickname)
	fmt.Fprintf(&b, "*NickName: \"%s, driverless\"\n", nickname)
	fmt.Fprintf(&b, "*ShortNickName: \"%s\"\n", nickname)

	writeColorDevice(&b, caps)
	writePageSizes(&b, caps)
	writeDuplex(&b, caps)
	writeResolutions(&b, caps)
	writeConstraints(&b, conflicts)

	path := filepath.Join(g.dir, pcFileName(queueName)+".ppd")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}

	return path, nil
}

func writeColorDevice(b *strings.Builder, caps *models.Capabilities) {
	color := false

	for _, mode := range caps.Keywords[models.AttrColorMode] {
		if mode == "color" {
			color = true
			break
		}
	}

	fmt.Fprintf(b, "*ColorDevice: %v\n", color)

	if color {
		b.WriteString("*OpenUI *ColorModel/Color Mode: PickOne\n")
		b.WriteString("*DefaultColorModel: RGB\n")
		b.WriteString("*ColorModel Gray/Grayscale: \"\"\n")
		b.WriteString("*ColorModel RGB/Color: \"\"\n")
		b.WriteString("*CloseUI: *ColorModel\n")
	}
}

func writePageSizes(b *strings.Builder, caps *models.Capabilities) {
	media := caps.Keywords[models.AttrMedia]
	if len(media) == 0 {
		return
	}

	defaultSize := ppdSizeName(caps.Defaults[models.AttrMedia])
	if defaultSize == "" {
		defaultSize = ppdSizeName(media[0])
	}

	b.WriteString("*OpenUI *PageSize/Media Size: PickOne\n")
	fmt.Fprintf(b, "*DefaultPageSize: %s\n", defaultSize)

	for _, m := range media {
		if name := ppdSizeName(m); name != "" {
			fmt.Fprintf(b, "*PageSize %s: \"\"\n", name)
		}
	}

	b.WriteString("*CloseUI: *PageSize\n")

	// PageRegion mirrors PageSize; the pair never appears in constraints.
	b.WriteString("*OpenUI *PageRegion/Media Size: PickOne\n")
	fmt.Fprintf(b, "*DefaultPageRegion: %s\n", defaultSize)

	for _, m := range media {
		if name := ppdSizeName(m); name != "" {
			fmt.Fprintf(b, "*PageRegion %s: \"\"\n", name)
		}
	}

	b.WriteString("*CloseUI: *PageRegion\n")
}

func writeDuplex(b *strings.Builder, caps *models.Capabilities) {
	sides := caps.Keywords[models.AttrSides]
	if len(sides) < 2 {
		return
	}

	b.WriteString("*OpenUI *Duplex/2-Sided Printing: PickOne\n")
	b.WriteString("*DefaultDuplex: None\n")
	b.WriteString("*Duplex None/Off: \"\"\n")

	for _, s := range sides {
		switch s {
		case "two-sided-long-edge":
			b.WriteString("*Duplex DuplexNoTumble/Long-Edge Binding: \"\"\n")
		case "two-sided-short-edge":
			b.WriteString("*Duplex DuplexTumble/Short-Edge Binding: \"\"\n")
		}
	}

	b.WriteString("*CloseUI: *Duplex\n")
}

func writeResolutions(b *strings.Builder, caps *models.Capabilities) {
	if len(caps.Resolutions) == 0 {
		return
	}

	def := caps.Resolutions[0]
	if caps.DefaultResolution != nil {
		def = *caps.DefaultResolution
	}

	b.WriteString("*OpenUI *Resolution/Resolution: PickOne\n")
	fmt.Fprintf(b, "*DefaultResolution: %s\n", def)

	for _, r := range caps.Resolutions {
		fmt.Fprintf(b, "*Resolution %s: \"\"\n", r)
	}

	b.WriteString("*CloseUI: *Resolution\n")
}

func writeConstraints(b *strings.Builder, conflicts []capability.ConstraintPair) {
	for _, pair := range conflicts {
		opt1, choice1, ok1 := ppdOptionChoice(pair.First)
		opt2, choice2, ok2 := ppdOptionChoice(pair.Second)

		if !ok1 || !ok2 {
			continue
		}

		fmt.Fprintf(b, "*UIConstraints: \"*%s %s *%s %s\"\n", opt1, choice1, opt2, choice2)
	}
}

// ppdOptionChoice maps a keyword attribute value onto the descriptor's
// option/choice vocabulary.
func ppdOptionChoice(v capability.OptionValue) (string, string, bool) {
	switch v.Keyword {
	case models.AttrMedia:
		return "PageSize", ppdSizeName(v.Value), true
	case models.AttrColorMode:
		switch v.Value {
		case "color":
			return "ColorModel", "RGB", true
		case "monochrome":
			return "ColorModel", "Gray", true
		}

		return "", "", false
	case models.AttrSides:
		switch v.Value {
		case "one-sided":
			return "Duplex", "None", true
		case "two-sided-long-edge":
			return "Duplex", "DuplexNoTumble", true
		case "two-sided-short-edge":
			return "Duplex", "DuplexTumble", true
		}

		return "", "", false
	case models.AttrOutputBin:
		return "OutputBin", sanitizeChoice(v.Value), true
	case models.AttrMediaSource:
		return "InputSlot", sanitizeChoice(v.Value), true
	case models.AttrMediaType:
		return "MediaType", sanitizeChoice(v.Value), true
	default:
		return "", "", false
	}
}

// ppdSizeName turns a self-describing media name into the descriptor size
// name ("iso_a4_210x297mm" -> "A4").
func ppdSizeName(media string) string {
	if media == "" {
		return ""
	}

	media = strings.TrimSuffix(media, ".Borderless")

	parts := strings.Split(media, "_")
	if len(parts) < 2 {
		return sanitizeChoice(media)
	}

	name := parts[1]
	if name == "" {
		return sanitizeChoice(media)
	}

	switch {
	case strings.HasPrefix(name, "a") || strings.HasPrefix(name, "b") || strings.HasPrefix(name, "c"):
		return strings.ToUpper(name)
	default:
		return strings.ToUpper(name[:1]) + name[1:]
	}
}

func sanitizeChoice(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "Unknown"
	}

	return b.String()
}

func pcFileName(queueName string) string {
	name := sanitizeChoice(queueName)

	if len(name) > 8 {
		name = name[:8]
	}

	return strings.ToUpper(name)
}

func manufacturer(makeModel string) string {
	fields := strings.Fields(makeModel)
	if len(fields) == 0 {
		return "Generic"
	}

	return fields[0]
}
