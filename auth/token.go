// server/auth/token.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ViniZap4/noteful-server/domain"
)

// Claims is the payload of a session token. The username doubles as the
// subject.
type Claims struct {
	User domain.Identity `json:"user"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared secret. Tokens
// are stateless: nothing is stored server side, so there is no logout.
type Issuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, expiry time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (i *Issuer) Issue(user domain.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the identity inside.
// Every failure wraps domain.ErrUnauthorized.
func (i *Issuer) Verify(token string) (domain.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.User.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: token carries no user", domain.ErrUnauthorized)
	}
	return claims.User, nil
}
