package journal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlGame = 24 * time.Hour

// Redis keeps the journal in Redis so a restarted client can still
// inspect its last game. Keys expire with the game's server-side TTL.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(redisURL string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required for redis journal")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) Append(ctx context.Context, gameID, uci string) error {
	key := gameKey(gameID)
	if err := r.rdb.RPush(ctx, key, uci).Err(); err != nil {
		return err
	}
	return r.rdb.Expire(ctx, key, ttlGame).Err()
}

func (r *Redis) Moves(ctx context.Context, gameID string) ([]string, error) {
	moves, err := r.rdb.LRange(ctx, gameKey(gameID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return moves, err
}

func (r *Redis) Clear(ctx context.Context, gameID string) error {
	return r.rdb.Del(ctx, gameKey(gameID)).Err()
}

func gameKey(id string) string { return "journal:game:" + strings.TrimSpace(id) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
