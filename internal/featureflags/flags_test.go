package featureflags

import (
	"context"
	"errors"
	"testing"
)

type memStore struct {
	values map[string]string
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", errors.New("missing")
}

func TestEnabledReadsStore(t *testing.T) {
	flags := New(&memStore{values: map[string]string{"flag:staff_sync": "true"}}, nil)

	if !flags.Enabled(context.Background(), "staff_sync") {
		t.Fatalf("expected flag enabled from store")
	}
	if flags.Enabled(context.Background(), "other") {
		t.Fatalf("unknown flag must be disabled")
	}
}

func TestEnabledFallsBackToEnv(t *testing.T) {
	t.Setenv("FLAG_STAFF_SYNC", "yes")

	flags := New(nil, nil)
	if !flags.Enabled(context.Background(), "staff_sync") {
		t.Fatalf("expected env fallback when no store is configured")
	}

	// A store miss also falls back to env.
	flags = New(&memStore{values: map[string]string{}}, nil)
	if !flags.Enabled(context.Background(), "staff_sync") {
		t.Fatalf("expected env fallback on store miss")
	}
}

func TestStoreValueWinsOverEnv(t *testing.T) {
	t.Setenv("FLAG_STAFF_SYNC", "true")

	flags := New(&memStore{values: map[string]string{"flag:staff_sync": "off"}}, nil)
	if flags.Enabled(context.Background(), "staff_sync") {
		t.Fatalf("store value must take precedence over env")
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		if !truthy(v) {
			t.Fatalf("%q should be truthy", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "maybe"} {
		if truthy(v) {
			t.Fatalf("%q should be falsy", v)
		}
	}
}
