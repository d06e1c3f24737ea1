package history

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// BackendType selects a persistence driver.
type BackendType string

const (
	BackendTypeFile   BackendType = "file"
	BackendTypeRedis  BackendType = "redis"
	BackendTypeMemory BackendType = "memory"
)

var (
	// ErrInvalidBackendType is returned for an unknown backend type.
	ErrInvalidBackendType = errors.New("history: invalid backend type")
	// ErrInvalidBackendConfig is returned when a backend is missing a
	// required option.
	ErrInvalidBackendConfig = errors.New("history: invalid backend config")
)

// BackendOption is a functional option for configuring a backend.
type BackendOption func(*backendConfig)

type backendConfig struct {
	dir         string
	redisClient *redis.Client
}

// WithDir sets the directory for the file backend.
func WithDir(dir string) BackendOption {
	return func(c *backendConfig) { c.dir = dir }
}

// WithRedisClient sets the Redis client for the redis backend.
func WithRedisClient(client *redis.Client) BackendOption {
	return func(c *backendConfig) { c.redisClient = client }
}

// NewBackend creates a Backend of the given type.
func NewBackend(backendType BackendType, opts ...BackendOption) (Backend, error) {
	config := &backendConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch backendType {
	case BackendTypeFile:
		if config.dir == "" {
			return nil, ErrInvalidBackendConfig
		}
		return NewFileBackend(config.dir)

	case BackendTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidBackendConfig
		}
		return NewRedisBackend(config.redisClient), nil

	case BackendTypeMemory:
		return NewMemoryBackend(), nil

	default:
		return nil, ErrInvalidBackendType
	}
}
