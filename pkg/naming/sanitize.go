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

package naming

import "strings"

// SanitizeQueueName mirrors the spooler's own name mangling: whitespace,
// slashes and hashes turn into underscores, any other character the spooler
// refuses is dropped, and leading/trailing underscores are trimmed.
func SanitizeQueueName(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '/' || r == '#':
			b.WriteByte('_')
		case allowedQueueRune(r):
			b.WriteRune(r)
		}
	}

	return strings.Trim(b.String(), "_")
}

// SanitizeLabel is the generic form used outside queue names: runs of
// disallowed characters collapse into a single dash.
func SanitizeLabel(s string) string {
	var b strings.Builder

	pendingDash := false

	for _, r := range s {
		if allowedQueueRune(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}

			pendingDash = false

			b.WriteRune(r)

			continue
		}

		pendingDash = true
	}

	return b.String()
}

func allowedQueueRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.' || r == '%':
		return true
	default:
		return false
	}
}

// QualifyWithHost builds the "<name>@<host>" fallback used when the plain
// name collides with a queue the daemon does not control. The queue name
// itself may carry the '@'; both halves are sanitised separately.
func QualifyWithHost(name, host string) string {
	host = SanitizeQueueName(host)
	if host == "" {
		return SanitizeQueueName(name)
	}

	return SanitizeQueueName(name) + "@" + host
}

// ValidQueueName reports whether the spooler would accept the name.
func ValidQueueName(name string) bool {
	if name == "" || len(name) > 127 {
		return false
	}

	for _, r := range name {
		if r == ' ' || r == '\t' || r == '/' || r == '#' || r < 0x20 || r > 0x7e {
			return false
		}
	}

	return true
}
