package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func TestTokenBucket_Allow(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	// Create token bucket with 5 tokens, refill 5 per minute
	bucket := NewTokenBucket(redisClient, 5, 5)

	ctx := context.Background()
	caller := "198.51.100.7"
	action := "upload"

	// Test that we can consume tokens up to the limit
	for i := 0; i < 5; i++ {
		allowed, err := bucket.Allow(ctx, caller, action)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	// Test that the 6th request is denied
	allowed, err := bucket.Allow(ctx, caller, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected request to be denied after limit reached")
	}

	// Test remaining tokens
	remaining, err := bucket.GetRemaining(ctx, caller, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("Expected 0 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_SeparateCallers(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 2, 2)
	ctx := context.Background()

	// Exhaust one caller's bucket.
	for i := 0; i < 2; i++ {
		if _, err := bucket.Allow(ctx, "198.51.100.7", "upload"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	allowed, err := bucket.Allow(ctx, "198.51.100.7", "upload")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected exhausted caller to be denied")
	}

	// A different caller still has a full bucket.
	allowed, err = bucket.Allow(ctx, "203.0.113.9", "upload")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("Expected a fresh caller to be allowed")
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 5, 5)

	ctx := context.Background()
	caller := "198.51.100.7"
	action := "upload"

	// Consume all tokens
	for i := 0; i < 5; i++ {
		bucket.Allow(ctx, caller, action)
	}

	// Reset the bucket
	err := bucket.Reset(ctx, caller, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Should be able to consume tokens again
	remaining, err := bucket.GetRemaining(ctx, caller, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("Expected 5 remaining tokens after reset, got %d", remaining)
	}
}
