package authsource

import (
	"fmt"

	"sevpn/application"
	"sevpn/domain/protoerr"
)

// PasswordSource returns a fixed username/password pair, e.g. read from a
// host-side credential prompt or keyring before the session starts.
type PasswordSource struct {
	Username string
	Password string
}

// Resolve implements application.AuthSource.
func (s PasswordSource) Resolve() (application.AuthOptions, error) {
	if s.Username == "" || s.Password == "" {
		return application.AuthOptions{}, fmt.Errorf("authsource: %w", protoerr.ErrAuthMissingCredential)
	}
	return application.AuthOptions{Username: s.Username, Password: s.Password}, nil
}
