package retry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 || attempts != 3 {
		t.Fatalf("expected success on third attempt, got result=%d attempts=%d", result, attempts)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("transient")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cause := errors.New("bad request")
	attempts := 0
	_, err := Do(context.Background(), fastConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		attempts++
		return 0, Permanent(cause)
	})
	if attempts != 1 {
		t.Fatalf("permanent errors must not be retried, got %d attempts", attempts)
	}
	// The cause comes back unwrapped.
	if err != cause {
		t.Fatalf("expected the cause itself, got %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, fastConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		t.Fatal("function must not run after cancellation")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
