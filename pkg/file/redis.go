package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/multipartkit/pkg/uniqid"
)

// RedisClient is the subset of redis.Cmdable used by RedisStorage.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	SetArgs(ctx context.Context, key string, value any, a redis.SetArgs) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisConfig contains configuration for Redis storage.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" yaml:"url"`
	Prefix         string        `env:"REDIS_PREFIX" envDefault:"multipart:" yaml:"prefix"`
	TTL            time.Duration `env:"REDIS_TTL" envDefault:"1h" yaml:"ttl"` // Upper bound for attachments a crashed process never released
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s" yaml:"retry_interval"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s" yaml:"connect_timeout"`
}

// ConnectRedis dials cfg.ConnectionURL and pings until the server answers,
// retrying cfg.RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// RedisStorage implements Storage with one Redis string per attachment.
// Every key carries a TTL, so content outlives a crashed process by at most
// that long.
type RedisStorage struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	ids    uniqid.Generator
}

// RedisOption defines a function that configures RedisStorage.
type RedisOption func(*RedisStorage)

// WithRedisIDGenerator sets the generator used to build keys.
func WithRedisIDGenerator(g uniqid.Generator) RedisOption {
	return func(s *RedisStorage) {
		if g != nil {
			s.ids = g
		}
	}
}

// NewRedisStorage wraps client. A TTL of zero keeps keys until released.
func NewRedisStorage(client RedisClient, cfg RedisConfig, opts ...RedisOption) (*RedisStorage, error) {
	if client == nil || cfg.TTL < 0 {
		return nil, ErrInvalidConfig
	}

	s := &RedisStorage{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		ids:    uniqid.Hashed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStorage) key(h Handle) string {
	return s.prefix + string(h)
}

// Allocate reserves an empty key with SETNX.
func (s *RedisStorage) Allocate(ctx context.Context) (Handle, error) {
	for range maxAllocateAttempts {
		h := Handle(DefaultNamePrefix + s.ids.Next())
		ok, err := s.client.SetNX(ctx, s.key(h), []byte{}, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFailedToAllocate, err)
		}
		if ok {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: key collision after %d attempts", ErrFailedToAllocate, maxAllocateAttempts)
}

// Write replaces the value of an allocated key, keeping its TTL.
func (s *RedisStorage) Write(ctx context.Context, h Handle, data []byte) error {
	if !validHandle(h) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}

	err := s.client.SetArgs(ctx, s.key(h), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, h)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToWriteFile, err)
	}
	return nil
}

// Open returns the stored value. The whole value is read into memory.
func (s *RedisStorage) Open(ctx context.Context, h Handle) (io.ReadCloser, error) {
	if !validHandle(h) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}

	data, err := s.client.Get(ctx, s.key(h)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, h)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToOpenFile, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Path returns the redis:// location of h.
func (s *RedisStorage) Path(h Handle) string {
	return "redis://" + s.key(h)
}

// Release deletes the key behind h.
func (s *RedisStorage) Release(ctx context.Context, h Handle) error {
	if !validHandle(h) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}

	n, err := s.client.Del(ctx, s.key(h)).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDeleteFile, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFileNotFound, h)
	}
	return nil
}
