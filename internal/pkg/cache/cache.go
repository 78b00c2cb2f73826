package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planflowhq/planflow/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the Redis connection used for view caching and
// as the backing store for web sessions.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key ...string) error {
	return GetClient().Del(ctx, key...).Err()
}

// LessonViewKey is the cache key for the public share-link view of a lesson.
func LessonViewKey(shareLink string) string {
	return "lesson:view:" + shareLink
}

// DashboardKey is the cache key for a user's private dashboard lesson list.
func DashboardKey(userID uint) string {
	return fmt.Sprintf("dashboard:user:%d", userID)
}

// InvalidateLessonViews drops both the private dashboard view and the
// public share-link view for a lesson after a mutation.
func InvalidateLessonViews(ownerID uint, shareLink string) {
	if err := Delete(DashboardKey(ownerID), LessonViewKey(shareLink)); err != nil {
		log.Printf("cache invalidation failed for lesson %s: %v", shareLink, err)
	}
}
