package policy

import (
	"net"
	"testing"
)

func mustRule(t *testing.T, sense RuleSense, spec string) AllowRule {
	t.Helper()

	rule, err := ParseAllowRule(sense, spec)
	if err != nil {
		t.Fatalf("ParseAllowRule(%q, %q): %v", sense, spec, err)
	}

	return rule
}

func TestAccessListDefaults(t *testing.T) {
	addr := net.ParseIP("192.168.1.20")

	tests := []struct {
		name    string
		rules   []AllowRule
		want    bool
		address net.IP
	}{
		{
			name:    "no rules allows everything",
			rules:   nil,
			want:    true,
			address: addr,
		},
		{
			name:    "only allow rules deny by default",
			rules:   []AllowRule{mustRule(t, SenseAllow, "10.0.0.0/8")},
			want:    false,
			address: addr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := NewAccessList(OrderAllowDeny, tt.rules)
			if got := list.Allowed(tt.address); got != tt.want {
				t.Fatalf("Allowed(%v) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestAccessListOnlyAllowRules(t *testing.T) {
	list := NewAccessList(OrderAllowDeny, []AllowRule{
		mustRule(t, SenseAllow, "10.0.0.0/8"),
	})

	if !list.Allowed(net.ParseIP("10.1.2.3")) {
		t.Fatalf("expected 10.1.2.3 to be allowed")
	}

	// Default flips to deny when allow rules exist.
	if list.Allowed(net.ParseIP("192.168.1.1")) {
		t.Fatalf("expected 192.168.1.1 to be denied")
	}
}

func TestAccessListOnlyDenyRules(t *testing.T) {
	list := NewAccessList(OrderAllowDeny, []AllowRule{
		mustRule(t, SenseDeny, "172.16.0.0/12"),
	})

	if list.Allowed(net.ParseIP("172.16.5.5")) {
		t.Fatalf("expected 172.16.5.5 to be denied")
	}

	if !list.Allowed(net.ParseIP("8.8.8.8")) {
		t.Fatalf("expected 8.8.8.8 to be allowed by default")
	}
}

func TestAccessListOrderDecidesWinner(t *testing.T) {
	rules := []AllowRule{
		mustRule(t, SenseAllow, "10.0.0.5"),
		mustRule(t, SenseDeny, "10.0.0.0/8"),
	}

	addr := net.ParseIP("10.0.0.5")

	// allow,deny: the deny pass runs last and wins.
	allowDeny := NewAccessList(OrderAllowDeny, rules)
	if allowDeny.Allowed(addr) {
		t.Fatalf("allow,deny: expected %v to be denied", addr)
	}

	// deny,allow: the allow pass runs last and wins.
	denyAllow := NewAccessList(OrderDenyAllow, rules)
	if !denyAllow.Allowed(addr) {
		t.Fatalf("deny,allow: expected %v to be allowed", addr)
	}
}

func TestParseAllowRuleAll(t *testing.T) {
	rule := mustRule(t, SenseDeny, "ALL")

	if rule.Kind != KindAny {
		t.Fatalf("expected kind any, got %q", rule.Kind)
	}

	if !rule.Matches(net.ParseIP("1.2.3.4")) {
		t.Fatalf("expected catch-all rule to match")
	}
}

func TestParseAllowRuleRejectsGarbage(t *testing.T) {
	if _, err := ParseAllowRule(SenseAllow, "not-an-address"); err == nil {
		t.Fatalf("expected error for invalid address")
	}

	if _, err := ParseAllowRule(SenseAllow, "10.0.0.0/99"); err == nil {
		t.Fatalf("expected error for invalid network")
	}
}
