package featureflags

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Store reads flag values from a shared store. The Redis client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Flags resolves feature flags from a shared store with an environment
// fallback, so flags can be flipped without a redeploy. Env flags are read
// as FLAG_<NAME>=true/1/yes (case-insensitive); store keys are flag:<name>.
type Flags struct {
	store  Store
	logger *slog.Logger
}

// New creates a flag resolver. A nil store means env-only resolution.
func New(store Store, logger *slog.Logger) *Flags {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flags{store: store, logger: logger}
}

// Enabled returns true if the flag is enabled in the store or, failing that,
// via environment variable.
func (f *Flags) Enabled(ctx context.Context, name string) bool {
	if f.store != nil {
		if v, err := f.store.Get(ctx, "flag:"+strings.ToLower(name)); err == nil {
			return truthy(v)
		}
	}
	return EnabledFromEnv(name)
}

// EnabledFromEnv returns true if a flag is enabled via environment variable.
func EnabledFromEnv(name string) bool {
	return truthy(os.Getenv("FLAG_" + strings.ToUpper(name)))
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
