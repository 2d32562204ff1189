package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes JWTs before their natural expiry. Logout revokes a
// single JTI; a credential reset revokes every token a user holds.
type TokenBlacklist interface {
	// AddToBlacklist revokes a token by its JTI. The ttl should match the
	// remaining token lifetime so the entry expires with the token.
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted reports whether a JTI has been revoked
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokensToBlacklist records a cutoff for a user; tokens issued
	// at or before the cutoff are rejected
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenInvalidated reports whether a token issued at the given
	// time falls under the user's cutoff
	IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

const blacklistKeyPrefix = "livrocaixa:token:revoked:"

// RedisTokenBlacklist keeps revocations in Redis so every replica sees them
type RedisTokenBlacklist struct {
	client *redis.Client
}

// RedisTokenBlacklistConfig holds the Redis connection settings for the
// blacklist
type RedisTokenBlacklistConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenBlacklist connects to Redis and verifies the connection
// before handing the blacklist back
func NewRedisTokenBlacklist(cfg RedisTokenBlacklistConfig) (*RedisTokenBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis for token blacklist: %w", err)
	}

	return &RedisTokenBlacklist{client: client}, nil
}

func jtiKey(jti string) string {
	return blacklistKeyPrefix + "jti:" + jti
}

func userKey(userID string) string {
	return blacklistKeyPrefix + "user:" + userID
}

// AddToBlacklist revokes a single JTI for the given ttl
func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether a JTI has been revoked
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return exists > 0, nil
}

// AddUserTokensToBlacklist stores the current time as the user's revocation
// cutoff
func (b *RedisTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	cutoff := time.Now().Unix()
	if err := b.client.Set(ctx, userKey(userID), cutoff, ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// IsUserTokenInvalidated compares the token's issue time against the user's
// revocation cutoff
func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user token revocation: %w", err)
	}

	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation cutoff: %w", err)
	}

	return tokenIssuedAt.Unix() <= cutoff, nil
}

// Close releases the Redis client
func (b *RedisTokenBlacklist) Close() error {
	return b.client.Close()
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist is the single-instance fallback used when Redis is
// unreachable and in tests. Revocations do not survive a restart and are
// invisible to other replicas.
type InMemoryTokenBlacklist struct {
	mu          sync.RWMutex
	revokedJTIs map[string]time.Time // JTI -> entry expiry
	userCutoffs map[string]time.Time // userID -> revocation cutoff
}

// NewInMemoryTokenBlacklist creates an empty in-memory blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		revokedJTIs: make(map[string]time.Time),
		userCutoffs: make(map[string]time.Time),
	}
}

// AddToBlacklist revokes a single JTI for the given ttl
func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revokedJTIs[jti] = time.Now().Add(ttl)
	return nil
}

// IsBlacklisted reports whether a JTI is revoked, dropping expired entries
// as it finds them
func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, exists := b.revokedJTIs[jti]
	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.revokedJTIs, jti)
		return false, nil
	}
	return true, nil
}

// AddUserTokensToBlacklist stores the current time as the user's revocation
// cutoff
func (b *InMemoryTokenBlacklist) AddUserTokensToBlacklist(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userCutoffs[userID] = time.Now()
	return nil
}

// IsUserTokenInvalidated compares the token's issue time against the user's
// revocation cutoff. Nanosecond precision so tests can issue and revoke
// within the same second.
func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff, exists := b.userCutoffs[userID]
	if !exists {
		return false, nil
	}
	return tokenIssuedAt.UnixNano() <= cutoff.UnixNano(), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
