package salesreport

import (
	"context"
	"sync"
	"testing"
	"time"

	"hysteriabot/m/v2/app/db/mongo"
	"hysteriabot/m/v2/app/ledger"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/settings"
	"hysteriabot/m/v2/app/workers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmins struct {
	mu      sync.Mutex
	reports []string
}

func (f *fakeAdmins) Alert(ctx context.Context, text string) {}

func (f *fakeAdmins) NotifyAdmins(ctx context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, text)
}

func TestRunSendsReport(t *testing.T) {
	store := mongo.NewMockMongoDBClient()
	l := ledger.New(store)
	now := time.Date(2024, 10, 8, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(context.Background(), models.AccountRecord{
		ChatID:      7,
		AccountName: "7_1",
		PlanID:      models.UltimatePlan,
		PurchasedAt: now.Add(-time.Hour),
		PriceUSD:    decimal.RequireFromString("4.2"),
	}))
	admins := &fakeAdmins{}
	w := New(workers.NewWorker("salesreport", "hysteria_bot", admins, 24*time.Hour, false), l, settings.New(store, models.DefaultCatalog, "", ""))
	w.Now = func() time.Time { return now }

	w.Run()

	require.Len(t, admins.reports, 1)
	assert.Contains(t, admins.reports[0], "📊 *Sales Statistics*")
	assert.Contains(t, admins.reports[0], "*Today's Sales:*\nTotal Configs: 1\nTotal Profit: $4.20")
}
