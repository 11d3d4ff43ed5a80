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

//go:generate mockgen -destination=mock_descriptor.go -package=descriptor github.com/zdohnal/cups-browsed/pkg/descriptor Generator

// Package descriptor produces and edits the driver descriptor (PPD) files
// installed with daemon-controlled queues. Descriptor generation from a
// capability document is a pure function behind the Generator interface;
// the editing applied before installation lives here.
package descriptor

import (
	"github.com/zdohnal/cups-browsed/pkg/capability"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

// Generator turns a capability document into a descriptor file on disk and
// returns its path.
type Generator interface {
	Generate(queueName string, caps *models.Capabilities, conflicts []capability.ConstraintPair) (string, error)
}
