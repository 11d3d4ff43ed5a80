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
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// filterLine redirects data conversion so no device-specific filtering runs
// locally; the cooperating backend ships the data as-is.
const filterLine = `*cupsFilter2: "application/vnd.cups-pdf application/pdf 0 -"`

// EditOptions direct one descriptor edit pass.
type EditOptions struct {
	// Defaults maps descriptor option names (PageSize, Duplex, ...) to the
	// choice restored from the persisted options of a previous queue.
	Defaults map[string]string

	// RemoteQueueID, when non-empty, marks the queue as a remote spooler
	// queue in the spooler's bookkeeping.
	RemoteQueueID string
}

// Edit rewrites the descriptor at path in place and returns its nickname.
func Edit(path string, opts *EditOptions) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read descriptor: %w", err)
	}

	edited, nickname := editContent(string(content), opts)

	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}

	return nickname, nil
}

// Nickname extracts the *NickName value without editing.
func Nickname(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		if name, ok := nicknameOf(scanner.Text()); ok {
			return name
		}
	}

	return ""
}

func editContent(content string, opts *EditOptions) (string, string) {
	var (
		b        strings.Builder
		nickname string
	)

	seenDefaults := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(content))

	first := true

	for scanner.Scan() {
		line := scanner.Text()

		if name, ok := nicknameOf(line); ok {
			nickname = name
		}

		// Restored defaults replace the generated ones.
		if option, ok := defaultOptionOf(line); ok {
			if choice, restore := opts.Defaults[option]; restore {
				line = fmt.Sprintf("*Default%s: %s", option, choice)
				seenDefaults[option] = true
			}
		}

		b.WriteString(line)
		b.WriteByte('\n')

		if first {
			// Directly below the header: the filter redirection and, for
			// remote spooler queues, the remote-queue directive.
			b.WriteString(filterLine)
			b.WriteByte('\n')

			if opts.RemoteQueueID != "" {
				fmt.Fprintf(&b, "*cupsRemoteQueue: \"%s\"\n", opts.RemoteQueueID)
			}

			first = false
		}
	}

	// Defaults for options the descriptor never mentioned are appended so
	// the restore still round-trips.
	missing := make([]string, 0, len(opts.Defaults))

	for option := range opts.Defaults {
		if !seenDefaults[option] {
			missing = append(missing, option)
		}
	}

	sort.Strings(missing)

	for _, option := range missing {
		fmt.Fprintf(&b, "*Default%s: %s\n", option, opts.Defaults[option])
	}

	return b.String(), nickname
}

func nicknameOf(line string) (string, bool) {
	const prefix = "*NickName:"

	if !strings.HasPrefix(line, prefix) {
		return "", false
	}

	value := strings.TrimSpace(strings.TrimPrefix(line, prefix))

	return strings.Trim(value, `"`), true
}

func defaultOptionOf(line string) (string, bool) {
	if !strings.HasPrefix(line, "*Default") {
		return "", false
	}

	rest := strings.TrimPrefix(line, "*Default")

	idx := strings.Index(rest, ":")
	if idx <= 0 {
		return "", false
	}

	return rest[:idx], true
}
