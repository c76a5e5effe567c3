package views

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

func TestCounter_IncrementAndGet(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	counter := NewCounter(redisClient)
	ctx := context.Background()

	// Absent counters read as 0.
	count, err := counter.Get(ctx, "vid_missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 views for unknown reference, got %d", count)
	}

	// N increments raise the count by exactly N.
	for i := 0; i < 7; i++ {
		if err := counter.Increment(ctx, "vid_abc"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	count, err = counter.Get(ctx, "vid_abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 7 {
		t.Fatalf("Expected 7 views, got %d", count)
	}
}

func TestCounter_GetMany(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	counter := NewCounter(redisClient)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := counter.Increment(ctx, "vid_one"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := counter.Increment(ctx, "vid_two"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	counts, err := counter.GetMany(ctx, []string{"vid_one", "vid_two", "vid_absent"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if counts["vid_one"] != 3 {
		t.Fatalf("Expected 3 views for vid_one, got %d", counts["vid_one"])
	}
	if counts["vid_two"] != 1 {
		t.Fatalf("Expected 1 view for vid_two, got %d", counts["vid_two"])
	}

	// Absent references still appear in the result, as 0.
	count, ok := counts["vid_absent"]
	if !ok {
		t.Fatal("Expected vid_absent to be present in the result")
	}
	if count != 0 {
		t.Fatalf("Expected 0 views for vid_absent, got %d", count)
	}
}

func TestCounter_GetManyEmpty(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	counter := NewCounter(redisClient)

	counts, err := counter.GetMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("Expected empty result, got %d entries", len(counts))
	}
}

func TestCounter_Delete(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	counter := NewCounter(redisClient)
	ctx := context.Background()

	if err := counter.Increment(ctx, "vid_gone"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := counter.Delete(ctx, "vid_gone"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	count, err := counter.Get(ctx, "vid_gone")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 views after delete, got %d", count)
	}
}
