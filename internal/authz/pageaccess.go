package authz

import (
	"sort"
	"strings"
)

// AdminRoleCode is the role code that, together with ActorKindAdmin, enables
// the admin bypass on page rules.
const AdminRoleCode = "admin"

// PageRule binds a URI pattern to the requirements for opening that page.
// Patterns ending in "*" match by prefix after the suffix is stripped;
// anything else matches exactly. Rules are read-only at evaluation time.
type PageRule struct {
	Pattern string
	// RequiredRoles grants access when the actor holds any of them.
	RequiredRoles []string
	// RequiredPermissions must all be present in the actor's set.
	RequiredPermissions []string
	// RequiredAnyPermissions grants when at least one is present.
	RequiredAnyPermissions []string
	// AdminBypass lets admin-kind actors and admin-role holders skip checks.
	AdminBypass bool
	// AuthenticatedOnly allows any signed-in actor without further checks.
	AuthenticatedOnly bool
}

// Policy is a declarative page access rule table with routing-table style
// longest-prefix matching for wildcard patterns.
type Policy struct {
	exact    map[string]*PageRule
	prefixes []prefixRule
}

type prefixRule struct {
	prefix string
	rule   *PageRule
}

// NewPolicy builds a Policy from a rule list. Later rules win on duplicate
// patterns.
func NewPolicy(rules []PageRule) *Policy {
	p := &Policy{exact: make(map[string]*PageRule, len(rules))}
	for i := range rules {
		rule := rules[i]
		if strings.HasSuffix(rule.Pattern, "*") {
			prefix := strings.TrimSuffix(rule.Pattern, "*")
			replaced := false
			for j := range p.prefixes {
				if p.prefixes[j].prefix == prefix {
					p.prefixes[j].rule = &rule
					replaced = true
					break
				}
			}
			if !replaced {
				p.prefixes = append(p.prefixes, prefixRule{prefix: prefix, rule: &rule})
			}
			continue
		}
		p.exact[rule.Pattern] = &rule
	}
	// Longest prefix first so Match can take the first hit.
	sort.SliceStable(p.prefixes, func(i, j int) bool {
		return len(p.prefixes[i].prefix) > len(p.prefixes[j].prefix)
	})
	return p
}

// Match finds the rule governing a path: exact match first, then the
// longest wildcard prefix. A nil result means no rule exists; callers treat
// that as authenticated-only.
func (p *Policy) Match(path string) *PageRule {
	if rule, ok := p.exact[path]; ok {
		return rule
	}
	for _, candidate := range p.prefixes {
		if strings.HasPrefix(path, candidate.prefix) {
			return candidate.rule
		}
	}
	return nil
}

// Decide evaluates a matched rule against the actor's precomputed role and
// permission sets.
//
// When the caller supplies an empty permission set the permission clauses are
// skipped entirely. This is a deliberate bootstrap concession so an unseeded
// permission table cannot lock every user out, and a known soft spot: an
// actor with zero loaded permissions bypasses permission checks while still
// being subject to role checks.
func (p *Policy) Decide(rule *PageRule, actorRoles, actorPermissions []string, kind ActorKind) bool {
	if rule == nil {
		return true
	}
	if rule.AdminBypass && (kind == ActorKindAdmin || contains(actorRoles, AdminRoleCode)) {
		return true
	}
	if rule.AuthenticatedOnly {
		return true
	}
	if len(rule.RequiredRoles) > 0 {
		if !intersects(actorRoles, rule.RequiredRoles) {
			return false
		}
	}
	if len(rule.RequiredPermissions) > 0 && len(actorPermissions) > 0 {
		for _, required := range rule.RequiredPermissions {
			if !contains(actorPermissions, required) {
				return false
			}
		}
	}
	if len(rule.RequiredAnyPermissions) > 0 && len(actorPermissions) > 0 {
		if !intersects(actorPermissions, rule.RequiredAnyPermissions) {
			return false
		}
	}
	return true
}

// DefaultPageRules covers the dashboard surfaces of the hotel/restaurant
// operations app. Deployments may replace or extend the table via NewPolicy.
func DefaultPageRules() []PageRule {
	return []PageRule{
		{Pattern: "/dashboard", AuthenticatedOnly: true},
		{Pattern: "/dashboard/admin/*", AdminBypass: true, RequiredRoles: []string{"admin", "general_manager"}},
		{Pattern: "/dashboard/admin/users/*", AdminBypass: true, RequiredPermissions: []string{"users.manage"}},
		{Pattern: "/dashboard/bookings/*", AdminBypass: true, RequiredAnyPermissions: []string{"bookings.view", "bookings.manage"}},
		{Pattern: "/dashboard/pos/*", AdminBypass: true, RequiredAnyPermissions: []string{"orders.create", "orders.view"}},
		{Pattern: "/dashboard/inventory/*", AdminBypass: true, RequiredPermissions: []string{"inventory.view"}},
		{Pattern: "/dashboard/employees/*", AdminBypass: true, RequiredRoles: []string{"admin", "general_manager", "hr_manager"}},
		{Pattern: "/dashboard/reports/*", AdminBypass: true, RequiredAnyPermissions: []string{"reports.read"}},
	}
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func intersects(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[v] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
