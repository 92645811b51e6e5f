package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/notenews/internal/model"
)

// SessionCache はセッションの読み取りキャッシュのインターフェース。
// Getはキャッシュミスの場合nilを返す。
type SessionCache interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Set(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionCache はRedisを使用したセッションキャッシュ。
// キーは "session:<id>"、TTLはセッションの残り有効期間。
type RedisSessionCache struct {
	client *redis.Client
}

// NewRedisSessionCache はredisURLに接続してRedisSessionCacheを生成する。
func NewRedisSessionCache(ctx context.Context, redisURL string) (*RedisSessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionCache{client: client}, nil
}

// Close はRedis接続を閉じる。
func (c *RedisSessionCache) Close() error {
	return c.client.Close()
}

func sessionKey(id string) string {
	return "session:" + id
}

// Get はキャッシュからセッションを取得する。
func (c *RedisSessionCache) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

// Set はセッションを残り有効期間をTTLとしてキャッシュする。
func (c *RedisSessionCache) Set(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// Delete はキャッシュからセッションを削除する。
func (c *RedisSessionCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached session: %w", err)
	}
	return nil
}

// CachedSessionRepo はSessionRepositoryの前段にキャッシュを置くデコレーター。
// キャッシュ障害時はログを出してDBにフォールバックする。
type CachedSessionRepo struct {
	inner  SessionRepository
	cache  SessionCache
	logger *slog.Logger
}

// NewCachedSessionRepo はCachedSessionRepoを生成する。
func NewCachedSessionRepo(inner SessionRepository, cache SessionCache, logger *slog.Logger) *CachedSessionRepo {
	return &CachedSessionRepo{inner: inner, cache: cache, logger: logger}
}

// Create はDBにセッションを作成する。キャッシュは初回読み取り時に埋める。
func (r *CachedSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.inner.Create(ctx, session)
}

// FindByID はキャッシュを参照し、ミスした場合はDBから取得してキャッシュする。
func (r *CachedSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	cached, err := r.cache.Get(ctx, id)
	if err != nil {
		r.logger.Warn("session cache read failed", slog.String("error", err.Error()))
	}
	if cached != nil {
		return cached, nil
	}

	session, err := r.inner.FindByID(ctx, id)
	if err != nil || session == nil {
		return session, err
	}

	if err := r.cache.Set(ctx, session); err != nil {
		r.logger.Warn("session cache write failed", slog.String("error", err.Error()))
	}
	return session, nil
}

// DeleteByID はキャッシュとDBの両方からセッションを削除する。
func (r *CachedSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.logger.Warn("session cache delete failed", slog.String("error", err.Error()))
	}
	return r.inner.DeleteByID(ctx, id)
}

// DeleteExpired はDB上の期限切れセッションを削除する。キャッシュ側はTTLで消える。
func (r *CachedSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.inner.DeleteExpired(ctx, before)
}

// compile-time interface check
var _ SessionRepository = (*CachedSessionRepo)(nil)
var _ SessionCache = (*RedisSessionCache)(nil)
