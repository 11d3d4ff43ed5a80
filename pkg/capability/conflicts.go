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

package capability

import "github.com/zdohnal/cups-browsed/pkg/models"

// conflictKeywords is the fixed order in which attribute pairs are examined.
// PageRegion is deliberately absent: it aliases the page size semantically
// and may never appear in a constraint.
var conflictKeywords = []string{
	models.AttrMedia,
	models.AttrColorMode,
	models.AttrSides,
	models.AttrOutputBin,
	models.AttrMediaSource,
	models.AttrMediaType,
}

// OptionValue is one (keyword attribute, value) leg of a constraint.
type OptionValue struct {
	Keyword string
	Value   string
}

// ConstraintPair marks two option choices no single cluster member can
// satisfy together.
type ConstraintPair struct {
	First  OptionValue
	Second OptionValue
}

// conflicts derives the constraint list for the merged document: for each
// ordered attribute pair (K1, K2) and each member, every K1 value the member
// lacks is paired with every K2 value it has — unless some other member
// supports both, in which case the combination is printable and no
// constraint is emitted. Each surviving pair is emitted once, with its
// mirror.
func conflicts(merged *models.Capabilities, members []*models.Capabilities) []ConstraintPair {
	if len(members) < 2 {
		return nil
	}

	seen := make(map[ConstraintPair]struct{})

	var out []ConstraintPair

	for i, k1 := range conflictKeywords {
		for _, k2 := range conflictKeywords[i+1:] {
			for _, member := range members {
				for _, v := range merged.Keywords[k1] {
					if v == AutoValue || member.SupportsKeyword(k1, v) {
						continue
					}

					for _, u := range member.Keywords[k2] {
						if u == AutoValue {
							continue
						}

						if anySupportsBoth(members, k1, v, k2, u) {
							continue
						}

						pair := ConstraintPair{
							First:  OptionValue{Keyword: k1, Value: v},
							Second: OptionValue{Keyword: k2, Value: u},
						}

						if _, dup := seen[pair]; dup {
							continue
						}

						seen[pair] = struct{}{}
						seen[mirror(pair)] = struct{}{}

						out = append(out, pair, mirror(pair))
					}
				}
			}
		}
	}

	return out
}

func mirror(p ConstraintPair) ConstraintPair {
	return ConstraintPair{First: p.Second, Second: p.First}
}

func anySupportsBoth(members []*models.Capabilities, k1, v, k2, u string) bool {
	for _, m := range members {
		if m.SupportsKeyword(k1, v) && m.SupportsKeyword(k2, u) {
			return true
		}
	}

	return false
}
