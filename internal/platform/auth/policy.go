package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Rule grants access to requests matching Method and Pattern.
// An empty Method matches every method. Public rules skip authentication;
// otherwise the caller must be authenticated and, when Roles is non-empty,
// hold at least one of them.
//
// Patterns are slash-separated: a literal segment matches itself, "*"
// matches exactly one segment and a trailing "**" matches the prefix and
// everything below it ("/anime/**" matches "/anime" and "/anime/1/x").
type Rule struct {
	Method  string
	Pattern string
	Public  bool
	Roles   []string
}

// Policy is an ordered rule table. The first matching rule decides.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) (Policy, error) {
	for i, r := range rules {
		if !strings.HasPrefix(r.Pattern, "/") {
			return Policy{}, fmt.Errorf("rule #%d: pattern %q must start with /", i+1, r.Pattern)
		}
		segs := splitPath(r.Pattern)
		for j, s := range segs {
			if s == "**" && j != len(segs)-1 {
				return Policy{}, fmt.Errorf("rule #%d: ** is only allowed as the last segment", i+1)
			}
		}
		rules[i].Method = strings.ToUpper(strings.TrimSpace(r.Method))
	}
	return Policy{rules: rules}, nil
}

// DefaultPolicy is the access table of the anime API.
func DefaultPolicy() Policy {
	p, err := NewPolicy(
		Rule{Method: http.MethodGet, Pattern: "/healthz", Public: true},
		Rule{Method: http.MethodGet, Pattern: "/readyz", Public: true},
		Rule{Method: http.MethodGet, Pattern: "/metrics", Public: true},
		Rule{Method: http.MethodPost, Pattern: "/login", Public: true},
		Rule{Method: http.MethodGet, Pattern: "/anime/**", Roles: []string{RoleUser}},
		Rule{Method: http.MethodPost, Pattern: "/anime/**", Roles: []string{RoleAdmin}},
		Rule{Method: http.MethodPut, Pattern: "/anime/**", Roles: []string{RoleAdmin}},
		Rule{Method: http.MethodDelete, Pattern: "/anime/**", Roles: []string{RoleAdmin}},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// Match returns the first rule matching the request line.
func (p Policy) Match(method, path string) (Rule, bool) {
	method = strings.ToUpper(method)
	segs := splitPath(path)
	for _, r := range p.rules {
		if r.Method != "" && r.Method != method {
			continue
		}
		if matchSegments(splitPath(r.Pattern), segs) {
			return r, true
		}
	}
	return Rule{}, false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, path []string) bool {
	for i, seg := range pattern {
		if seg == "**" {
			return true
		}
		if i >= len(path) {
			return false
		}
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return len(pattern) == len(path)
}
