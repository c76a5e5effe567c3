package queue

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDialWithBackoff_Schedule(t *testing.T) {
	dialErr := errors.New("connection refused")

	var attempts int
	var sleeps []time.Duration

	_, err := dialWithBackoff(func() (*amqp.Connection, error) {
		attempts++
		return nil, dialErr
	}, func(d time.Duration) {
		sleeps = append(sleeps, d)
	})

	if !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}

	// Waits 1, 2, 4, ..., 64 seconds between attempts, then gives up after
	// one final attempt once the factor would exceed 64.
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 64 * time.Second,
	}

	if len(sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(sleeps))
	}
	for i, d := range want {
		if sleeps[i] != d {
			t.Fatalf("sleep %d: expected %s, got %s", i, d, sleeps[i])
		}
	}

	if attempts != len(want)+1 {
		t.Fatalf("expected %d attempts, got %d", len(want)+1, attempts)
	}

	var total time.Duration
	for _, d := range sleeps {
		total += d
	}
	if total != 127*time.Second {
		t.Fatalf("expected cumulative wait of 127s, got %s", total)
	}
}

func TestDialWithBackoff_SucceedsAfterFailures(t *testing.T) {
	var attempts int
	var sleeps int

	conn := &amqp.Connection{}

	got, err := dialWithBackoff(func() (*amqp.Connection, error) {
		attempts++
		if attempts < 4 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}, func(time.Duration) {
		sleeps++
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != conn {
		t.Fatal("expected the dialed connection to be returned")
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
	if sleeps != 3 {
		t.Fatalf("expected 3 sleeps, got %d", sleeps)
	}
}

func TestDialWithBackoff_ImmediateSuccess(t *testing.T) {
	conn := &amqp.Connection{}

	got, err := dialWithBackoff(func() (*amqp.Connection, error) {
		return conn, nil
	}, func(time.Duration) {
		t.Fatal("should not sleep when the first dial succeeds")
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != conn {
		t.Fatal("expected the dialed connection to be returned")
	}
}
