package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// JoinToken authorizes JoinCluster calls until it expires or is revoked;
// validating it does not use it up. Role records what the
// issuer meant the token for even though the coordinator only ever
// admits members as voters today; kept so a future non-voting role
// doesn't need a new token shape. CreatedAt/ExpiresAt are protobuf's
// well-known Timestamp rather than time.Time: the admin surface has no
// generated message types of its own to carry these over the wire (see
// doc.go), so the well-known types fill in as the wire-level time
// representation instead.
type JoinToken struct {
	Token     string
	Role      string
	CreatedAt *timestamppb.Timestamp
	ExpiresAt *timestamppb.Timestamp
}

// Expired reports whether now is past the token's ExpiresAt.
func (jt *JoinToken) Expired(now time.Time) bool {
	return now.After(jt.ExpiresAt.AsTime())
}

// TokenManager issues and validates join tokens. Held by Server, never
// shared across coordinators.
type TokenManager struct {
	mu     sync.RWMutex
	tokens map[string]*JoinToken
}

func NewTokenManager() *TokenManager {
	return &TokenManager{tokens: make(map[string]*JoinToken)}
}

// GenerateToken mints a random token for role, valid until ttl elapses.
func (tm *TokenManager) GenerateToken(role string, ttl time.Duration) (*JoinToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("api: generate token: %w", err)
	}

	now := time.Now()
	jt := &JoinToken{
		Token:     hex.EncodeToString(raw),
		Role:      role,
		CreatedAt: timestamppb.New(now),
		ExpiresAt: timestamppb.New(now.Add(ttl)),
	}

	tm.mu.Lock()
	tm.tokens[jt.Token] = jt
	tm.mu.Unlock()
	return jt, nil
}

// ValidateToken returns the role a token was issued for, or an error if
// it's unknown or expired.
func (tm *TokenManager) ValidateToken(token string) (string, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	jt, ok := tm.tokens[token]
	if !ok {
		return "", fmt.Errorf("api: invalid join token")
	}
	if jt.Expired(time.Now()) {
		return "", fmt.Errorf("api: join token expired")
	}
	return jt.Role, nil
}

// RevokeToken deletes token regardless of whether it had already
// expired.
func (tm *TokenManager) RevokeToken(token string) {
	tm.mu.Lock()
	delete(tm.tokens, token)
	tm.mu.Unlock()
}

// CleanupExpiredTokens removes every token past its ExpiresAt. Callers
// run this on a ticker; TokenManager never does it on its own.
func (tm *TokenManager) CleanupExpiredTokens() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for token, jt := range tm.tokens {
		if jt.Expired(now) {
			delete(tm.tokens, token)
		}
	}
}

// ListTokens returns every token currently tracked, expired or not.
func (tm *TokenManager) ListTokens() []*JoinToken {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]*JoinToken, 0, len(tm.tokens))
	for _, jt := range tm.tokens {
		out = append(out, jt)
	}
	return out
}
