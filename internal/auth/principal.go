package auth

import "context"

// Principal is the authenticated caller of a gated operation. Core operations
// receive it as an explicit argument; the context helpers only carry it from
// the HTTP middleware to the handlers.
type Principal struct {
	UserID string
}

// Anonymous reports whether the principal carries no identity.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil || p.Anonymous() {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && !p.Anonymous()
}
