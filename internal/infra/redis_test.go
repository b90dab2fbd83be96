package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClientRejectsBadInput(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "", "")
	assert.ErrorContains(t, err, "redis url is required")

	_, err = NewRedisClient(context.Background(), "http://nope", "")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewPostgresPoolRejectsBadInput(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "", PoolOptions{})
	assert.ErrorContains(t, err, "database url is required")

	_, err = NewPostgresPool(context.Background(), "postgres://host:notaport/db", PoolOptions{})
	assert.ErrorContains(t, err, "parse postgres config")
}
