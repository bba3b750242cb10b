package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=3,p=2$") {
		t.Errorf("hash = %q, want argon2id PHC with box parameters", hash)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"correct-horse-battery-staple", true},
		{"wrong", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := VerifyPassword(tt.password, hash)
		if err != nil {
			t.Fatalf("VerifyPassword(%q) error = %v", tt.password, err)
		}
		if ok != tt.want {
			t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, ok, tt.want)
		}
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	b, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=32768,t=3,p=2$c2FsdA$a2V5"},
		{"wrong version", "$argon2id$v=16$m=32768,t=3,p=2$c2FsdA$a2V5"},
		{"bad parameters", "$argon2id$v=19$m=x$c2FsdA$a2V5"},
		{"bad salt", "$argon2id$v=19$m=32768,t=3,p=2$!!!$a2V5"},
		{"empty key", "$argon2id$v=19$m=32768,t=3,p=2$c2FsdA$"},
		{"too few fields", "$argon2id$v=19$c2FsdA$a2V5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("x", tt.hash)
			if !errors.Is(err, ErrMalformedHash) {
				t.Errorf("VerifyPassword() error = %v, want ErrMalformedHash", err)
			}
		})
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer(config.JWTConfig{Secret: testSecret, AccessTokenTTL: 5})

	token, expires, err := iss.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if d := time.Until(expires); d < 4*time.Minute || d > 5*time.Minute {
		t.Errorf("expiry in %v, want about 5m", d)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "admin" || claims.ID == "" {
		t.Errorf("claims = %+v, want subject admin with an id", claims)
	}
}

func TestIssuer_DefaultTTL(t *testing.T) {
	iss := NewIssuer(config.JWTConfig{Secret: testSecret})
	if iss.ttl != 15*time.Minute {
		t.Errorf("ttl = %v, want 15m", iss.ttl)
	}
}

func TestIssuer_Rejects(t *testing.T) {
	iss := NewIssuer(config.JWTConfig{Secret: testSecret, AccessTokenTTL: 1})
	good, _, err := iss.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewIssuer(config.JWTConfig{Secret: testSecret, AccessTokenTTL: 1})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewIssuer(config.JWTConfig{Secret: "another-secret-that-is-32-chars-long"})
	forged, _, err := other.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"expired", old},
		{"wrong secret", forged},
		{"unsigned", none},
		{"tampered", good + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := iss.Parse(tt.token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestAuthenticator_Login(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	a := NewAuthenticator(config.SecurityConfig{
		JWT:      config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		Operator: config.OperatorConfig{Username: "admin", PasswordHash: hash},
	})

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "admin", "s3cret", false},
		{"wrong password", "admin", "nope", true},
		{"wrong user", "root", "s3cret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := a.Login(tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if _, err := a.Verify(token); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestAuthenticator_BrokenStoredHash(t *testing.T) {
	a := NewAuthenticator(config.SecurityConfig{
		JWT:      config.JWTConfig{Secret: testSecret},
		Operator: config.OperatorConfig{Username: "admin", PasswordHash: "plaintext"},
	})
	if _, _, err := a.Login("admin", "plaintext"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}
