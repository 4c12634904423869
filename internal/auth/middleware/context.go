package auth

import "context"

type ctxKey struct{}

var ctxKeyClaims ctxKey

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	if v := ctx.Value(ctxKeyClaims); v != nil {
		if c, ok := v.(*Claims); ok {
			return c
		}
	}
	return nil
}

// UserIDFromContext returns the authenticated user's id, or nil for guest
// and unauthenticated requests. Callers pass the result straight through to
// attempt creation, where nil means anonymous.
func UserIDFromContext(ctx context.Context) *int64 {
	c := ClaimsFromContext(ctx)
	if c == nil || c.UserID == 0 {
		return nil
	}
	id := c.UserID
	return &id
}
