package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAdapter_ErrorsAreWrapped(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	adapter := NewRedisAdapterFromClient(client)
	ctx := context.Background()

	data, err := adapter.Get(ctx, "recommendations:u-1::10")
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "failed to get from cache")

	err = adapter.DeletePattern(ctx, "recommendations:u-1:*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recommendations:u-1:*")
}

func TestRedisAdapter_GetMultiEmpty(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	adapter := NewRedisAdapterFromClient(client)

	// no round trip for an empty key set
	values, err := adapter.GetMulti(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = adapter.GetMulti(context.Background(), []string{"provider:p-1"})
	assert.Error(t, err)
}
