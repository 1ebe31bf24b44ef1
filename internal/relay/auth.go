// Package relay verifies connection credentials before a client is admitted
// to the registry. Verification runs exactly once per connection.
package relay

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrAuthFailed is returned for every credential problem: missing, malformed,
// expired, bad signature, or missing subject. Callers must refuse the
// connection without creating any state.
var ErrAuthFailed = errors.New("authentication failed")

// Verifier validates signed bearer tokens and extracts the user identifier
// they were issued for.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier that checks token signatures against the
// provided HMAC secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Authenticate checks the token's signature and time claims and returns the
// user identifier from the subject claim.
func (v *Verifier) Authenticate(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing credential", ErrAuthFailed)
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// Only the HMAC family is accepted; anything else is an attack or a
		// misconfigured issuer.
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrAuthFailed)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: claims type mismatch", ErrAuthFailed)
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrAuthFailed)
	}

	return userID, nil
}
