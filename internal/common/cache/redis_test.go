package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"emi-decision-engine/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "emi:model:x", "payload", time.Minute))

	val, err := c.Get(ctx, "emi:model:x")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "emi:model:x")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClient_Del(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Del(ctx, "a"))
	assert.False(t, mr.Exists("a"))
}

func TestRedisClient_ErrorsPassThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectGet("k").SetErr(errors.New("connection reset"))
	_, err := c.Get(context.Background(), "k")
	assert.EqualError(t, err, "connection reset")
	assert.False(t, errors.Is(err, ErrMiss))

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.ErrorContains(t, c.Ping(context.Background()), "redis ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}
