package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken reports a token that fails verification.
var ErrInvalidToken = errors.New("invalid access token")

// Claims mirrors the access tokens issued by the backend's auth service:
// the subject is the user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Configured reports whether a secret is set. Without one every token is rejected.
func (v *Verifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses tokenStr and returns the session it carries.
func (v *Verifier) Verify(tokenStr string) (Session, error) {
	if !v.Configured() {
		return Session{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Session{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Session{UserID: claims.Subject, Email: claims.Email, Token: tokenStr}, nil
}

// Issue signs a token for userID. The service itself never logs users in; this
// exists for local tooling and tests.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if !v.Configured() {
		return "", fmt.Errorf("issue token: no signing secret configured")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
