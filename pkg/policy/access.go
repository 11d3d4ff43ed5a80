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

// Package policy implements access control for discovery events, browse
// filters and the auto-shutdown decision.
package policy

import (
	"fmt"
	"net"
	"strings"
)

// RuleSense says whether a matching rule admits or rejects the source.
type RuleSense string

const (
	SenseAllow RuleSense = "allow"
	SenseDeny  RuleSense = "deny"
)

// RuleKind distinguishes single-address, network and catch-all rules.
type RuleKind string

const (
	KindIP  RuleKind = "ip"
	KindNet RuleKind = "net"
	KindAny RuleKind = "any"
)

// BrowseOrder fixes the evaluation order of the rule list.
type BrowseOrder string

const (
	OrderAllowDeny BrowseOrder = "allow,deny"
	OrderDenyAllow BrowseOrder = "deny,allow"
)

// AllowRule is one access-control entry.
type AllowRule struct {
	Sense RuleSense
	Kind  RuleKind
	IP    net.IP
	Net   *net.IPNet
}

// Matches reports whether the rule applies to addr.
func (r *AllowRule) Matches(addr net.IP) bool {
	switch r.Kind {
	case KindAny:
		return true
	case KindIP:
		return r.IP != nil && r.IP.Equal(addr)
	case KindNet:
		return r.Net != nil && r.Net.Contains(addr)
	default:
		return false
	}
}

// ParseAllowRule parses "all", an address, or a CIDR into a rule.
func ParseAllowRule(sense RuleSense, spec string) (AllowRule, error) {
	spec = strings.TrimSpace(spec)

	if strings.EqualFold(spec, "all") {
		return AllowRule{Sense: sense, Kind: KindAny}, nil
	}

	if strings.Contains(spec, "/") {
		_, network, err := net.ParseCIDR(spec)
		if err != nil {
			return AllowRule{}, fmt.Errorf("invalid network %q: %w", spec, err)
		}

		return AllowRule{Sense: sense, Kind: KindNet, Net: network}, nil
	}

	ip := net.ParseIP(spec)
	if ip == nil {
		return AllowRule{}, fmt.Errorf("invalid address %q: %w", spec, errBadAddress)
	}

	return AllowRule{Sense: sense, Kind: KindIP, IP: ip}, nil
}

// AccessList evaluates allow/deny rules in the configured browse order.
type AccessList struct {
	order BrowseOrder
	rules []AllowRule
}

// NewAccessList builds an access list. Order defaults to allow,deny.
func NewAccessList(order BrowseOrder, rules []AllowRule) *AccessList {
	if order != OrderDenyAllow {
		order = OrderAllowDeny
	}

	return &AccessList{order: order, rules: rules}
}

// Allowed decides whether a discovery event from addr is accepted.
//
// With no rules everything is allowed. When only allow rules exist the
// default flips to deny; when only deny rules exist the default stays allow.
// Rules are then evaluated in the configured order and the last match wins.
func (l *AccessList) Allowed(addr net.IP) bool {
	if len(l.rules) == 0 {
		return true
	}

	hasAllow := false

	for i := range l.rules {
		if l.rules[i].Sense == SenseAllow {
			hasAllow = true
			break
		}
	}

	allowed := !hasAllow

	first, second := SenseAllow, SenseDeny
	if l.order == OrderDenyAllow {
		first, second = SenseDeny, SenseAllow
	}

	for _, sense := range []RuleSense{first, second} {
		for i := range l.rules {
			rule := &l.rules[i]
			if rule.Sense != sense || !rule.Matches(addr) {
				continue
			}

			allowed = rule.Sense == SenseAllow
		}
	}

	return allowed
}
