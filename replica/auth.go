package replica

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// checkToken fails fast when the token is a JWT that has already expired.
// Validation of the signature is the remote's job; opaque (non-JWT) tokens
// pass through untouched.
func checkToken(token string) error {
	if token == "" {
		return nil
	}

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// Not a JWT; let the remote decide.
		return nil
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	if exp.Before(time.Now()) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}
