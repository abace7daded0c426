package file_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/uniqid"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return redis.NewBoolResult(args.Bool(0), args.Error(1))
}

func (m *MockRedisClient) SetArgs(ctx context.Context, key string, value any, a redis.SetArgs) *redis.StatusCmd {
	args := m.Called(ctx, key, value, a)
	return redis.NewStatusResult(args.String(0), args.Error(1))
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

const redisKey = "multipart:multipart-related-id"

func newTestRedisStorage(t *testing.T, client *MockRedisClient) *file.RedisStorage {
	t.Helper()
	storage, err := file.NewRedisStorage(client,
		file.RedisConfig{Prefix: "multipart:", TTL: time.Hour},
		file.WithRedisIDGenerator(uniqid.Func(func() string { return "id" })),
	)
	require.NoError(t, err)
	return storage
}

func TestNewRedisStorage(t *testing.T) {
	t.Parallel()

	_, err := file.NewRedisStorage(nil, file.RedisConfig{})
	assert.ErrorIs(t, err, file.ErrInvalidConfig)

	_, err = file.NewRedisStorage(&MockRedisClient{}, file.RedisConfig{TTL: -time.Second})
	assert.ErrorIs(t, err, file.ErrInvalidConfig)
}

func TestRedisStorage_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := &MockRedisClient{}
	client.On("SetNX", mock.Anything, redisKey, []byte{}, time.Hour).Return(true, nil).Once()
	client.On("SetArgs", mock.Anything, redisKey, []byte("hello"), redis.SetArgs{Mode: "XX", KeepTTL: true}).Return("OK", nil).Once()
	client.On("Get", mock.Anything, redisKey).Return("hello", nil).Once()
	client.On("Del", mock.Anything, []string{redisKey}).Return(1, nil).Once()

	storage := newTestRedisStorage(t, client)

	h, err := storage.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, file.Handle("multipart-related-id"), h)
	assert.Equal(t, "redis://"+redisKey, storage.Path(h))

	require.NoError(t, storage.Write(ctx, h, []byte("hello")))

	rc, err := storage.Open(ctx, h)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, storage.Release(ctx, h))
	client.AssertExpectations(t)
}

func TestRedisStorage_AllocateCollision(t *testing.T) {
	t.Parallel()

	client := &MockRedisClient{}
	client.On("SetNX", mock.Anything, redisKey, []byte{}, time.Hour).Return(false, nil).Times(3)

	_, err := newTestRedisStorage(t, client).Allocate(context.Background())
	assert.ErrorIs(t, err, file.ErrFailedToAllocate)
	client.AssertExpectations(t)
}

func TestRedisStorage_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := file.Handle("multipart-related-id")

	t.Run("write to missing key", func(t *testing.T) {
		t.Parallel()
		client := &MockRedisClient{}
		client.On("SetArgs", mock.Anything, redisKey, mock.Anything, mock.Anything).Return("", redis.Nil)

		err := newTestRedisStorage(t, client).Write(ctx, h, []byte("x"))
		assert.ErrorIs(t, err, file.ErrFileNotFound)
	})

	t.Run("open missing key", func(t *testing.T) {
		t.Parallel()
		client := &MockRedisClient{}
		client.On("Get", mock.Anything, redisKey).Return("", redis.Nil)

		_, err := newTestRedisStorage(t, client).Open(ctx, h)
		assert.ErrorIs(t, err, file.ErrFileNotFound)
	})

	t.Run("release missing key", func(t *testing.T) {
		t.Parallel()
		client := &MockRedisClient{}
		client.On("Del", mock.Anything, []string{redisKey}).Return(0, nil)

		err := newTestRedisStorage(t, client).Release(ctx, h)
		assert.ErrorIs(t, err, file.ErrFileNotFound)
	})

	t.Run("connection failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection refused")
		client := &MockRedisClient{}
		client.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, boom)

		_, err := newTestRedisStorage(t, client).Allocate(ctx)
		assert.ErrorIs(t, err, file.ErrFailedToAllocate)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid handle", func(t *testing.T) {
		t.Parallel()
		storage := newTestRedisStorage(t, &MockRedisClient{})

		assert.ErrorIs(t, storage.Write(ctx, "../x", nil), file.ErrInvalidHandle)
		assert.ErrorIs(t, storage.Release(ctx, ""), file.ErrInvalidHandle)
		_, err := storage.Open(ctx, "a\x00b")
		assert.ErrorIs(t, err, file.ErrInvalidHandle)
	})
}

func TestConnectRedis_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := file.ConnectRedis(context.Background(), file.RedisConfig{ConnectionURL: "http://not-redis"})
	assert.ErrorIs(t, err, file.ErrFailedToParseRedisURL)
}
