package partner

import (
	"context"
	"errors"
	"strings"
)

var ErrNoCredentials = errors.New("no backend credentials")

// CredentialProvider supplies the bearer token sent to the backend.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNoCredentials
	}
	return string(t), nil
}

type bearerTokenKey struct{}

// WithBearerToken returns a context carrying the caller's bearer token.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// BearerToken forwards the token stored in the request context by
// WithBearerToken. It is the provider used by the HTTP server, where each
// partner calls the backend with their own login.
type BearerToken struct{}

func (BearerToken) Token(ctx context.Context) (string, error) {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

// ParseAuthorization extracts the token from an "Authorization: Bearer" header.
func ParseAuthorization(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
