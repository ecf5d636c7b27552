package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// releaseLockScript deletes the lock only if it is still held by the caller's token
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// SaveSession stores a logged-in session with a TTL
func (c *Client) SaveSession(ctx context.Context, id string, sess *models.Session, ttl time.Duration) error {
	key := sessionKey(id)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "loggedIn", sess.LoggedIn, "username", sess.Username)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetSession loads a session; a missing or expired session returns nil without error
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	result, err := c.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	return &models.Session{
		LoggedIn: result["loggedIn"] == "1" || result["loggedIn"] == "true",
		Username: result["username"],
	}, nil
}

// DeleteSession destroys a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, sessionKey(id)).Err()
}

// AcquireLock acquires a distributed lock holding token until ttl elapses or ReleaseLock
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
}

// ReleaseLock releases a distributed lock held by token
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
