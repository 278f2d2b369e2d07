package core

import "context"

// TokenProvider returns a bearer token for an upstream service call.
// Gateways receive one at construction time instead of reaching into ambient
// storage, so the token lifecycle stays an explicit, testable collaborator.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken returns a TokenProvider that always yields the same token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}
