package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/easternmills/millops/pkg/access"
)

const (
	// TokenPrefix identifies millops session tokens
	TokenPrefix = "millops_"
	// tokenLength is the number of random bytes per token (256 bits)
	tokenLength = 32

	// cacheSize bounds the in-process session lookup cache. The cache only
	// shortcuts the Redis round-trip for the session record; access
	// decisions are re-resolved on every request regardless.
	cacheSize = 4096
	cacheTTL  = 30 * time.Second
)

// ErrSessionNotFound is returned for unknown, revoked or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// GenerateToken creates a new opaque session token.
// Format: millops_<base64url(32 random bytes)>. Only the SHA-256 hash is
// ever stored.
func GenerateToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, tokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token = TokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hex digest of a token for lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// SessionStore persists sessions keyed by token hash.
type SessionStore interface {
	Put(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

// RedisSessionStore stores sessions in Redis with a TTL so expiry needs no
// sweeper.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (s *RedisSessionStore) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

// Put stores the session under its token hash.
func (s *RedisSessionStore) Put(ctx context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.TokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get fetches a session by token hash.
func (s *RedisSessionStore) Get(ctx context.Context, tokenHash string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	session.TokenHash = tokenHash
	return &session, nil
}

// Delete revokes a session.
func (s *RedisSessionStore) Delete(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, s.key(tokenHash)).Err()
}

// Manager issues and validates session tokens. Validation results are cached
// in a small expirable LRU to bound store round-trips under render-heavy
// clients.
type Manager struct {
	store SessionStore
	cache *lru.LRU[string, *Session]
	ttl   time.Duration
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(store SessionStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store: store,
		cache: lru.NewLRU[string, *Session](cacheSize, nil, cacheTTL),
		ttl:   ttl,
	}
}

// Issue creates a session for an authenticated principal and returns the
// plain token exactly once.
func (m *Manager) Issue(ctx context.Context, principal access.Principal, provider string) (string, *Session, error) {
	token, tokenHash, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		TokenHash:   tokenHash,
		SubjectID:   principal.SubjectID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
		Provider:    provider,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, session, m.ttl); err != nil {
		return "", nil, err
	}
	return token, session, nil
}

// Validate resolves a plain token to its session, or ErrSessionNotFound.
func (m *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	tokenHash := HashToken(token)

	if session, ok := m.cache.Get(tokenHash); ok {
		if session.Expired(time.Now().UTC()) {
			m.cache.Remove(tokenHash)
			return nil, ErrSessionNotFound
		}
		return session, nil
	}

	session, err := m.store.Get(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		return nil, ErrSessionNotFound
	}
	m.cache.Add(tokenHash, session)
	return session, nil
}

// Revoke deletes a session and drops it from the cache.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	tokenHash := HashToken(token)
	m.cache.Remove(tokenHash)
	return m.store.Delete(ctx, tokenHash)
}

// Principal returns the session's principal value.
func (s *Session) Principal() access.Principal {
	return access.Principal{
		SubjectID:   s.SubjectID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
	}
}
