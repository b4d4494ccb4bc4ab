// Package auth resolves bearer tokens to authenticated principals.
// Token issuance and session management belong to an external identity
// provider; this package only verifies what arrives on the wire.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrUnauthorized is returned for a missing, unknown, or malformed token.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier resolves a bearer token to a principal identifier.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// NewVerifier selects a verifier from the configured token spec. An
// empty spec yields the NopVerifier.
func NewVerifier(spec string) Verifier {
	if strings.TrimSpace(spec) == "" {
		slog.Warn("No auth tokens configured, all requests map to local-user")
		return NopVerifier{}
	}
	return NewStaticVerifier(spec)
}

// StaticVerifier maps opaque tokens to principals from configuration,
// for deployments fronted by a gateway that mints per-user tokens.
type StaticVerifier struct {
	tokens map[string]string
}

// NewStaticVerifier parses a "token:principal,token:principal" spec.
// Malformed pairs are skipped with a warning rather than failing
// startup.
func NewStaticVerifier(spec string) *StaticVerifier {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			slog.Warn("Skipping malformed auth token entry")
			continue
		}
		tokens[parts[0]] = parts[1]
	}
	slog.Info("Static token verifier configured", "principals", len(tokens))
	return &StaticVerifier{tokens: tokens}
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (string, error) {
	principal, ok := v.tokens[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return principal, nil
}

// NopVerifier authenticates every request as a fixed local principal.
// Development use only.
type NopVerifier struct{}

func (NopVerifier) Verify(ctx context.Context, token string) (string, error) {
	return "local-user", nil
}
