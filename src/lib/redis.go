package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CountAttempt bumps the TTL-expiring attempt counter for the given scope
// and caller. The counter lives in redis so limits survive restarts and
// hold across instances. A nil or unreachable client fails open.
func CountAttempt(ctx context.Context, scope string, userId uint, window time.Duration) (int64, error) {
	rdb := GetRedisClient()
	if rdb == nil {
		return 0, nil
	}
	key := fmt.Sprintf("attempts:%s:%d", scope, userId)
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[redis] Error incrementing %s: %s\n", key, err.Error())
		return 0, nil
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			log.Printf("[redis] Error setting TTL on %s: %s\n", key, err.Error())
		}
	}
	return count, nil
}
