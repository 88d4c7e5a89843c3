package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// ErrNotSignedIn means there is no usable token: the credentials file is
// missing, the token field is empty, or a JWT token has expired. Callers
// treat this as fatal and point the user at sign-in.
var ErrNotSignedIn = errors.New("auth: not signed in")

// Credentials is the externally managed token and display name pair.
// This package only ever reads it.
type Credentials struct {
	Token       string `yaml:"token"`
	DisplayName string `yaml:"display_name"`
}

// Load reads the credentials file and resolves the display name. Opaque
// tokens are accepted as-is; tokens that parse as JWTs are checked for
// expiry up front and may contribute a name claim when no display name
// is stored. A still-missing display name falls back to a generated
// anonymous one.
func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("auth: parse credentials file %s: %w", path, err)
	}
	creds.Token = strings.TrimSpace(creds.Token)
	creds.DisplayName = strings.TrimSpace(creds.DisplayName)
	if creds.Token == "" {
		return Credentials{}, fmt.Errorf("%w: empty token in %s", ErrNotSignedIn, path)
	}

	if claims := peekClaims(creds.Token); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
			return Credentials{}, fmt.Errorf("%w: token expired at %s", ErrNotSignedIn, exp.Format(time.RFC3339))
		}
		if creds.DisplayName == "" {
			if name, ok := claims["name"].(string); ok {
				creds.DisplayName = strings.TrimSpace(name)
			}
		}
	}

	if creds.DisplayName == "" {
		creds.DisplayName = anonName()
	}
	return creds, nil
}

// peekClaims decodes JWT claims without verifying the signature. The
// server is the authority on token validity; this is only an early
// local check. Returns nil for opaque tokens.
func peekClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func anonName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return "anon-" + hex.EncodeToString(b)
}
