package auth

import (
	"crypto/subtle"
	"time"

	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
)

// Authenticator checks operator credentials and issues tokens.
type Authenticator struct {
	username string
	hash     string
	issuer   *Issuer
}

// NewAuthenticator creates an authenticator for the configured operator.
func NewAuthenticator(cfg config.SecurityConfig) *Authenticator {
	return &Authenticator{
		username: cfg.Operator.Username,
		hash:     cfg.Operator.PasswordHash,
		issuer:   NewIssuer(cfg.JWT),
	}
}

// Login verifies the credentials and returns an access token with its
// expiry. Any mismatch, including a broken stored hash, is reported as
// ErrInvalidCredentials.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK, err := VerifyPassword(password, a.hash)
	if err != nil || !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.issuer.Issue(a.username)
}

// Verify validates an access token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return a.issuer.Parse(token)
}
