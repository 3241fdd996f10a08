package auth

import "context"

type authContextKey string

const userContextKey authContextKey = "user"

// WithUser returns a copy of ctx carrying the token info of the caller.
func WithUser(ctx context.Context, info TokenInfo) context.Context {
	return context.WithValue(ctx, userContextKey, info)
}

// GetUser returns the token info of the caller, if the request was authenticated.
func GetUser(ctx context.Context) (TokenInfo, bool) {
	info, ok := ctx.Value(userContextKey).(TokenInfo)
	return info, ok
}
