// server/auth/credentials.go
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ViniZap4/noteful-server/domain"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores everything past 72 bytes
)

// UserStore is the slice of the store the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Authenticator checks credentials against stored password hashes and
// hands out tokens from its Issuer.
type Authenticator struct {
	users  UserStore
	issuer *Issuer
	cost   int

	// dummyHash is compared against when the username is unknown so both
	// rejection paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthenticator(users UserStore, issuer *Issuer) *Authenticator {
	return &Authenticator{users: users, issuer: issuer, cost: bcrypt.DefaultCost}
}

// Login returns a fresh token for valid credentials. Unknown users and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.Invalid("Missing credentials")
	}

	user, err := a.users.UserByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.unknownUserHash(), []byte(password))
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return a.issuer.Issue(user.Identity())
}

func (a *Authenticator) unknownUserHash() []byte {
	a.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("noteful-unknown-user"), a.cost)
		if err == nil {
			a.dummyHash = hash
		}
	})
	return a.dummyHash
}

// Refresh re-signs an already verified identity with a new expiry.
func (a *Authenticator) Refresh(user domain.Identity) (string, error) {
	return a.issuer.Issue(user)
}

// Register creates a user with a bcrypt hash of password.
func (a *Authenticator) Register(ctx context.Context, username, password string) (*domain.User, error) {
	switch {
	case username == "":
		return nil, domain.Invalid("Missing `username` in request body")
	case password == "":
		return nil, domain.Invalid("Missing `password` in request body")
	case strings.TrimSpace(username) != username:
		return nil, domain.Invalid("Field `username` cannot start or end with whitespace")
	case strings.TrimSpace(password) != password:
		return nil, domain.Invalid("Field `password` cannot start or end with whitespace")
	case len(password) < minPasswordLen:
		return nil, domain.Invalid("Field `password` must be at least 8 characters long")
	case len(password) > maxPasswordLen:
		return nil, domain.Invalid("Field `password` must be at most 72 characters long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Username: username, PasswordHash: string(hash)}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
