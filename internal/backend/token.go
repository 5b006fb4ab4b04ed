package backend

import "context"

type tokenKey struct{}

// WithToken attaches the caller's backend API token to ctx. Requests made with
// that ctx and no explicit Request.Token send it as a bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token set by WithToken.
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}
