package repository

import (
	"context"

	"github.com/edupay/ipn-gateway/internal/pkg/cache"
)

// queueRepository implements the QueueRepository interface
type queueRepository struct {
	// Note: This repository doesn't use GORM since it operates on Redis
}

// NewQueueRepository creates a new queue repository instance
func NewQueueRepository() QueueRepository {
	return &queueRepository{}
}

// GetListLength returns the length of a Redis list
func (r *queueRepository) GetListLength(key string) (int64, error) {
	redisClient := cache.GetClient()
	ctx := context.Background()

	length, err := redisClient.LLen(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	return length, nil
}

// GetHashAll returns all fields of a Redis hash (job stats)
func (r *queueRepository) GetHashAll(key string) (map[string]string, error) {
	redisClient := cache.GetClient()
	ctx := context.Background()

	return redisClient.HGetAll(ctx, key).Result()
}

// Ping verifies the Redis connection is alive
func (r *queueRepository) Ping() error {
	return cache.GetClient().Ping(context.Background()).Err()
}

// GetValue retrieves a value for a specific key from Redis
func (r *queueRepository) GetValue(key string) (string, error) {
	redisClient := cache.GetClient()
	ctx := context.Background()

	value, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}

	return value, nil
}
