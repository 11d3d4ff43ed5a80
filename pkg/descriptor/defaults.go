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

// PPDDefaults translates persisted queue option defaults (IPP "-default"
// attributes) into the descriptor's Default* vocabulary for the edit pass.
// Options without a descriptor counterpart are applied over IPP instead.
func PPDDefaults(options map[string]string) map[string]string {
	defaults := make(map[string]string)

	for option, value := range options {
		switch option {
		case "media-default":
			if name := ppdSizeName(value); name != "" {
				defaults["PageSize"] = name
			}
		case "sides-default":
			switch value {
			case "one-sided":
				defaults["Duplex"] = "None"
			case "two-sided-long-edge":
				defaults["Duplex"] = "DuplexNoTumble"
			case "two-sided-short-edge":
				defaults["Duplex"] = "DuplexTumble"
			}
		case "print-color-mode-default":
			switch value {
			case "color":
				defaults["ColorModel"] = "RGB"
			case "monochrome":
				defaults["ColorModel"] = "Gray"
			}
		case "output-bin-default":
			defaults["OutputBin"] = sanitizeChoice(value)
		}
	}

	return defaults
}
