package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hysteriabot/m/v2/app/db/mongo"
	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/provisioning"
	"hysteriabot/m/v2/app/status"
	"hysteriabot/m/v2/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmins struct {
	mu     sync.Mutex
	alerts []string
}

func (f *fakeAdmins) Alert(ctx context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, text)
}

func (f *fakeAdmins) NotifyAdmins(ctx context.Context, text string) {}

func newTestWorker(t *testing.T) (*Worker, *provisioning.MockRunner, *redis.MockRedisClient, *fakeAdmins) {
	runner := provisioning.NewMockRunner()
	runner.Outputs["list-users"] = `{"alice": {}}`
	redisClient := redis.NewMockRedisClient()
	admins := &fakeAdmins{}
	handler := status.New(mongo.NewMockMongoDBClient(), redisClient, provisioning.NewGateway(runner, t.TempDir()), nil)
	w := workers.NewWorker("status", "hysteria_bot", admins, time.Minute, true)
	return New(w, handler, redisClient, &statsd.NoOpClient{}), runner, redisClient, admins
}

func TestRunCachesStatus(t *testing.T) {
	w, _, redisClient, admins := newTestWorker(t)

	w.Run()

	cached, err := redisClient.Get(context.Background(), SystemStatusKey).Result()
	require.NoError(t, err)
	assert.Contains(t, cached, `"hysteria":{"available":true}`)
	assert.Contains(t, cached, `"total_accounts":1`)
	assert.Empty(t, admins.alerts)

	fromCache, err := w.Cached()
	require.NoError(t, err)
	assert.Equal(t, cached, fromCache)
}

func TestRunAlertsOncePerOutage(t *testing.T) {
	w, runner, _, admins := newTestWorker(t)
	runner.OnRunErr = errors.New("exec: python3: not found")

	w.Run()
	w.Run()
	assert.Equal(t, []string{"🔥 hysteria_bot: Hysteria is down 🔥"}, admins.alerts)

	runner.OnRunErr = nil
	w.Run()
	runner.OnRunErr = errors.New("exec: python3: not found")
	w.Run()
	assert.Len(t, admins.alerts, 2)
}

func TestWorkerRunsOnStartAndStops(t *testing.T) {
	runs := make(chan struct{}, 1)
	w := workers.NewWorker("test", "hysteria_bot", nil, time.Hour, true)
	w.Run = func() { runs <- struct{}{} }

	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("worker did not run on start")
	}
	w.StopWorker()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
