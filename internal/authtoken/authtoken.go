package authtoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims is the observer-session payload gating the Log Bus subscribe
// path and the admin job-list endpoint (SPEC_FULL §4.5). It carries no
// authorization beyond "may observe": the archive Fetch endpoint is
// capability-bearing via the jobId itself and does not consult tokens.
type Claims struct {
	jwt.StandardClaims
}

// Verifier checks HS256 observer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token string, returning an error for any
// malformed, unsigned, or expired token.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify observer token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid observer token")
	}
	return claims, nil
}

// Issue mints a short-lived observer token, used by the status page to
// bootstrap a websocket subscription.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: time.Now().Add(ttl).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
