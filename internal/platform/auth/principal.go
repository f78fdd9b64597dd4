package auth

import (
	"context"
	"strings"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Principal is the authenticated caller.
type Principal struct {
	Username string
	Roles    []string
}

// HasAnyRole reports whether p holds one of roles. Comparison ignores case.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		want = strings.TrimSpace(want)
		for _, have := range p.Roles {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				return true
			}
		}
	}
	return false
}

type ctxKeyPrincipal struct{}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	return v, ok
}

// WithPrincipal injects p into ctx. Useful for testing.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

// UsernameFromContext returns the authenticated username or "".
func UsernameFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Username
}
