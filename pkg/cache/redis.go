package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/classquest-api/pkg/config"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// StandingsKey is the cache key for a room's standings of the given kind ("teams" or
// "students") computed at generation gen.
func StandingsKey(roomID string, gen int64, kind string) string {
	return fmt.Sprintf("standings:%s:%d:%s", roomID, gen, kind)
}

// StandingsPattern matches every cached standings payload of a room.
func StandingsPattern(roomID string) string {
	return fmt.Sprintf("standings:%s:*", roomID)
}

// StandingsGenerationKey is the counter bumped on every write to a room. It is outside
// StandingsPattern so invalidation never resets it.
func StandingsGenerationKey(roomID string) string {
	return fmt.Sprintf("standings-gen:%s", roomID)
}
