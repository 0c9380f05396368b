package status

import (
	"context"
	"errors"
	"testing"

	"hysteriabot/m/v2/app/db/mongo"
	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/provisioning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingSettlements []models.PendingSettlement

func (p pendingSettlements) Pending() []models.PendingSettlement { return p }

func TestGetSystemStatus(t *testing.T) {
	store := mongo.NewMockMongoDBClient()
	ctx := context.Background()
	require.NoError(t, store.AppendAccountRecord(ctx, models.AccountRecord{ChatID: 1, AccountName: "1_1"}))
	require.NoError(t, store.AppendAccountRecord(ctx, models.AccountRecord{ChatID: 1, AccountName: "1_2"}))
	require.NoError(t, store.AppendAccountRecord(ctx, models.AccountRecord{ChatID: 2, AccountName: "2_1"}))
	runner := provisioning.NewMockRunner()
	runner.Outputs["list-users"] = `{"1_1": {"blocked": true}, "1_2": {}, "2_1": {}}`
	pending := pendingSettlements{{SettlementID: "inv-1"}}

	status := New(store, redis.NewMockRedisClient(), provisioning.NewGateway(runner, t.TempDir()), pending).GetSystemStatus(ctx)

	assert.True(t, status.MongoDB.Available)
	assert.True(t, status.Redis.Available)
	assert.True(t, status.Hysteria.Available)
	assert.Equal(t, SystemUsage{
		TotalAccounts:      3,
		ActiveAccounts:     2,
		BlockedAccounts:    1,
		TotalChats:         2,
		TotalPurchases:     3,
		PendingSettlements: 1,
	}, status.Usage)
}

func TestGetSystemStatusReportsOutages(t *testing.T) {
	runner := provisioning.NewMockRunner()
	runner.OnRunErr = errors.New("exec: python3: not found")
	redisClient := redis.NewMockRedisClient()
	redisClient.PingErr = errors.New("connection refused")

	status := New(mongo.NewMockMongoDBClient(), redisClient, provisioning.NewGateway(runner, t.TempDir()), nil).GetSystemStatus(context.Background())

	assert.True(t, status.MongoDB.Available)
	assert.False(t, status.Redis.Available)
	assert.False(t, status.Hysteria.Available)
	assert.Zero(t, status.Usage.TotalAccounts)
	assert.Zero(t, status.Usage.PendingSettlements)
}
