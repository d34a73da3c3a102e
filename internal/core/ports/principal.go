package ports

import "context"

// Principal is the authenticated caller of a request, derived from its
// bearer token without a store round trip.
type Principal struct {
	Subject  string // identity ID
	Role     string
	Email    string
	Audience string
}

type principalKey struct{}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}
