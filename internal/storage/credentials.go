package storage

import (
	"context"
	"errors"
	"fmt"
)

// DefaultProfile is the session profile used when none is given.
const DefaultProfile = "default"

var ErrNotLoggedIn = errors.New("not logged in")

// SessionCredentials supplies the bearer token of a stored partner session.
type SessionCredentials struct {
	Store   *SQLiteStore
	Profile string
}

// Token returns the stored token for the profile.
func (c SessionCredentials) Token(ctx context.Context) (string, error) {
	profile := c.Profile
	if profile == "" {
		profile = DefaultProfile
	}
	session, err := c.Store.GetSession(profile)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("%w: run login first (profile %q)", ErrNotLoggedIn, profile)
	}
	return session.Token, nil
}
