package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewServiceAccountTokenFileSupplier builds a domain.JWTSupplier that
// rereads a projected Kubernetes service-account token from path on every
// call (the kubelet rotates the file in place, so the supplier must not
// cache it). The token is parsed, unverified, purely to reject an
// already-expired file early with a clear error instead of sending a
// doomed login request; the core never verifies or signs the token itself,
// per the signed-credential boundary in domain.CredentialSigner/JWTSupplier.
func NewServiceAccountTokenFileSupplier(path string) func(ctx context.Context) (string, error) {
	parser := jwt.NewParser()
	return func(ctx context.Context) (string, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading service account token %q: %w", path, err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("service account token %q is empty", path)
		}

		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return "", fmt.Errorf("service account token %q is not a well-formed JWT: %w", path, err)
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
			return "", fmt.Errorf("service account token %q expired at %s", path, exp.Time)
		}
		return token, nil
	}
}
