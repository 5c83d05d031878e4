// Package authsource implements application.AuthSource collaborators: a
// cached-OIDC-token reader and a plain username/password source, selected
// by whether the provider configuration carries an oidc group.
package authsource

import (
	"encoding/json"
	"fmt"
	"os"

	"sevpn/application"
	"sevpn/domain/protoerr"
)

// cachedToken is the on-disk shape a host-side OIDC login flow is expected
// to have written: the provider configuration's oidc group only locates
// this cache, it does not drive a token acquisition flow itself (out of
// scope for the protocol core).
type cachedToken struct {
	IDToken string `json:"id_token"`
}

// CachedTokenSource reads a previously-obtained OIDC ID token from disk.
type CachedTokenSource struct {
	Path string
}

// Resolve implements application.AuthSource.
func (s CachedTokenSource) Resolve() (application.AuthOptions, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return application.AuthOptions{}, fmt.Errorf("authsource: read cached token %q: %w", s.Path, protoerr.ErrTokenAcquisitionFailed)
	}

	var tok cachedToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return application.AuthOptions{}, fmt.Errorf("authsource: parse cached token %q: %w", s.Path, protoerr.ErrTokenAcquisitionFailed)
	}
	if tok.IDToken == "" {
		return application.AuthOptions{}, fmt.Errorf("authsource: %q: %w", s.Path, protoerr.ErrMissingIDToken)
	}

	return application.AuthOptions{JWT: tok.IDToken}, nil
}
