//go:build linux

package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"sevpn/domain/protoerr"
)

type jwtClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// usernameFromJWT extracts the first of email, preferred_username from an
// unverified JWT's payload segment. The token's signature is not this
// client's concern: the server re-validates it during Auth (authtype=6).
func usernameFromJWT(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("session: %w: malformed token", protoerr.ErrBuildAuthFromToken)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("session: %w: %v", protoerr.ErrBuildAuthFromToken, err)
	}

	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("session: %w: %v", protoerr.ErrBuildAuthFromToken, err)
	}

	if claims.Email != "" {
		return claims.Email, nil
	}
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername, nil
	}
	return "", fmt.Errorf("session: %w", protoerr.ErrBuildAuthFromToken)
}
