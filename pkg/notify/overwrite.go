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

package notify

import "github.com/zdohnal/cups-browsed/pkg/spooler"

// OverwriteResult classifies what an external modification replaced.
type OverwriteResult int

const (
	// OverwriteNone: the queue still looks like ours.
	OverwriteNone OverwriteResult = iota
	// OverwriteURI: the device URI no longer points at the daemon; the user
	// has replaced the queue.
	OverwriteURI
	// OverwriteDescriptor: the URI is ours but the descriptor was swapped.
	OverwriteDescriptor
)

// DetectOverwrite compares the queue's current attributes with what the
// daemon installed: first the device URI, then the descriptor nickname
// recorded at create time.
func DetectOverwrite(attrs *spooler.QueueAttributes, expectedURI, expectedNickname string) OverwriteResult {
	if attrs.DeviceURI != expectedURI {
		return OverwriteURI
	}

	if expectedNickname != "" && attrs.Nickname != "" && attrs.Nickname != expectedNickname {
		return OverwriteDescriptor
	}

	return OverwriteNone
}
