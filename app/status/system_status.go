package status

import (
	"context"
	"time"

	"hysteriabot/m/v2/app/db/mongo"
	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/provisioning"

	"github.com/sirupsen/logrus"
)

type SystemStatus struct {
	MongoDB  *Status     `json:"mongodb"`
	Redis    *Status     `json:"redis"`
	Hysteria *Status     `json:"hysteria"`
	Time     time.Time   `json:"time"`
	Usage    SystemUsage `json:"usage"`
}

type SystemUsage struct {
	TotalAccounts      int64 `json:"total_accounts"`
	ActiveAccounts     int64 `json:"active_accounts"`
	BlockedAccounts    int64 `json:"blocked_accounts"`
	TotalChats         int64 `json:"total_chats"`
	TotalPurchases     int64 `json:"total_purchases"`
	PendingSettlements int64 `json:"pending_settlements"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

// SettlementSource lists in-flight settlements. *settlement.Tracker
// satisfies it.
type SettlementSource interface {
	Pending() []models.PendingSettlement
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	MongoDB     mongo.MongoClient
	Redis       redis.Client
	Gateway     *provisioning.Gateway
	Settlements SettlementSource
}

// New creates a new instance of SystemStatusHandler
func New(mongoDB mongo.MongoClient, redis redis.Client, gateway *provisioning.Gateway, settlements SettlementSource) *SystemStatusHandler {
	return &SystemStatusHandler{
		MongoDB:     mongoDB,
		Redis:       redis,
		Gateway:     gateway,
		Settlements: settlements,
	}
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus(ctx context.Context) SystemStatus {
	mongoAvailable := false
	ctxPing, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()
	err := h.MongoDB.Ping(ctxPing, nil)
	if err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping MongoDB")
	} else {
		mongoAvailable = true
	}

	status := SystemStatus{
		MongoDB: &Status{
			Available: mongoAvailable,
		},
		Redis: &Status{
			Available: h.Redis != nil && h.Redis.Ping(ctx).Err() == nil,
		},
		Hysteria: &Status{},
		Usage:    SystemUsage{},
		Time:     time.Now(),
	}

	if h.Gateway != nil {
		accounts, err := h.Gateway.ListAccounts(ctx)
		if err != nil {
			logrus.WithError(err).Warn("GetSystemStatus: provisioning CLI is not answering")
		} else {
			status.Hysteria.Available = true
			status.Usage.TotalAccounts = int64(len(accounts))
			for _, a := range accounts {
				if a.Blocked {
					status.Usage.BlockedAccounts++
				} else {
					status.Usage.ActiveAccounts++
				}
			}
		}
	}
	if status.MongoDB.Available {
		all, err := h.MongoDB.GetAllAccountRecords(ctx)
		if err != nil {
			logrus.WithError(err).Warn("GetSystemStatus: failed to count purchases")
		}
		status.Usage.TotalChats = int64(len(all))
		for _, records := range all {
			status.Usage.TotalPurchases += int64(len(records))
		}
	}
	if h.Settlements != nil {
		status.Usage.PendingSettlements = int64(len(h.Settlements.Pending()))
	}
	return status
}
