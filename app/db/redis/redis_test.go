package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockDown = errors.New("redis is down")

func TestLanguage(t *testing.T) {
	ctx := context.Background()
	client := NewMockRedisClient()

	assert.Equal(t, "en", GetLanguage(ctx, client, 555, "en"))
	require.NoError(t, SaveLanguage(ctx, client, 555, "fa"))
	assert.Equal(t, "fa", GetLanguage(ctx, client, 555, "en"))
	assert.Equal(t, "en", GetLanguage(ctx, client, 556, "en"))

	require.NoError(t, ClearLanguage(ctx, client, 555))
	assert.Equal(t, "en", GetLanguage(ctx, client, 555, "en"))

	client.SetErr = errMockDown
	assert.Error(t, SaveLanguage(ctx, client, 555, "ru"))
}

func TestWrapInCache(t *testing.T) {
	client := NewMockRedisClient()
	calls := 0
	fn := WrapInCache(client, ServerInfoKey, time.Minute, func() (string, error) {
		calls++
		return "cpu 3%", nil
	})

	for i := 0; i < 3; i++ {
		data, err := fn()
		require.NoError(t, err)
		assert.Equal(t, "cpu 3%", data)
	}
	assert.Equal(t, 1, calls)

	failing := WrapInCache(client, "other", time.Minute, func() (string, error) {
		return "", errors.New("cli failed")
	})
	_, err := failing()
	assert.Error(t, err)
}
