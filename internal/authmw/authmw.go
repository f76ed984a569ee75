// Package authmw provides HTTP middleware for per-client bearer token
// authentication. Every kiosk and nursing station gets its own token so one
// can be revoked without touching the others.
package authmw

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Token is one named client credential.
type Token struct {
	Client string
	Secret string
}

// ParseTokens parses "client=secret" entries. Client names and secrets must
// be non-empty and client names unique.
func ParseTokens(entries []string) ([]Token, error) {
	out := make([]Token, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		client, secret, ok := strings.Cut(strings.TrimSpace(e), "=")
		client = strings.TrimSpace(client)
		if !ok || client == "" || secret == "" {
			return nil, fmt.Errorf("api token %d: want client=secret", i)
		}
		if seen[client] {
			return nil, fmt.Errorf("api token %d: duplicate client %q", i, client)
		}
		seen[client] = true
		out = append(out, Token{Client: client, Secret: secret})
	}
	return out, nil
}

type clientKey struct{}

// ClientFromContext returns the authenticated client name, if any.
func ClientFromContext(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(clientKey{}).(string)
	return c, ok
}

// BearerTokens returns middleware that accepts a Bearer token matching any of
// tokens and stores the matching client name in the request context. Every
// token is compared in constant time, with no early exit.
func BearerTokens(tokens []Token) func(http.Handler) http.Handler {
	secrets := make([][]byte, len(tokens))
	for i, t := range tokens {
		secrets[i] = []byte(t.Secret)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			match := -1
			for i, s := range secrets {
				if subtle.ConstantTimeCompare(got, s) == 1 {
					match = i
				}
			}
			if match < 0 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), clientKey{}, tokens[match].Client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
