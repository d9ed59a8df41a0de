package blob

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
)

// StoreConfig selects and configures a blob store backend.
type StoreConfig struct {
	// Type is one of "memory", "file" or "redis".
	Type string
	// Dir is the storage directory for the file backend.
	Dir string
	// RedisURL is the connection URL for the redis backend.
	RedisURL string
}

// Factory creates blob stores based on configuration.
type Factory struct {
	cfg           StoreConfig
	logger        *zap.Logger
	allowFallback bool
}

// FactoryOption is a functional option for configuring the factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory.
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithFileFallback controls whether an unreachable Redis falls back to the
// file backend. Default is true.
func WithFileFallback(allow bool) FactoryOption {
	return func(f *Factory) { f.allowFallback = allow }
}

// NewFactory creates a factory for the given configuration.
func NewFactory(cfg StoreConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:           cfg,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the configured store. A Redis connection failure falls back
// to the file backend when fallback is allowed, so a missing Redis never
// prevents the engine from starting.
func (f *Factory) Create() (domain.BlobStore, error) {
	switch f.cfg.Type {
	case "memory":
		return NewMemoryStore(), nil

	case "file":
		return NewFileStore(f.cfg.Dir)

	case "redis":
		store, err := NewRedisStore(f.cfg.RedisURL, "")
		if err == nil {
			return store, nil
		}
		if !f.allowFallback {
			return nil, err
		}
		f.logger.Warn("redis blob store unavailable, falling back to file store",
			zap.Error(err))
		return NewFileStore(f.cfg.Dir)

	default:
		return nil, fmt.Errorf("unknown blob store type %q", f.cfg.Type)
	}
}
