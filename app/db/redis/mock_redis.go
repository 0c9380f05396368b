package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	r "github.com/go-redis/redis/v8"
)

// MockRedisClient is a mock for the Redis client in the redis package.
type MockRedisClient struct {
	Client

	mu      sync.Mutex
	data    map[string]interface{}
	PingErr error
	SetErr  error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]interface{}),
	}
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *r.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok {
		strValue := fmt.Sprintf("%v", value) // Convert the value to a string
		cmd.SetVal(strValue)
	} else {
		cmd.SetVal("")
		cmd.SetErr(r.Nil)
	}
	return cmd
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStatusCmd(ctx)
	if m.SetErr != nil {
		cmd.SetErr(m.SetErr)
		return cmd
	}
	m.data[key] = value
	cmd.SetVal("OK")
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewIntCmd(ctx)
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	if m.PingErr != nil {
		cmd.SetErr(m.PingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}
