// Run regularly to check status of the system and persist it to the redis
package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"

	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/status"
	"hysteriabot/m/v2/app/workers"
)

const SystemStatusKey = "hysteria:system_status"

func alertedKey(system string) string {
	return "hysteria:status_alerted:" + system
}

type Worker struct {
	*workers.Worker
	Handler *status.SystemStatusHandler
	Redis   redis.Client
	Metrics statsd.ClientInterface
}

func New(w *workers.Worker, handler *status.SystemStatusHandler, redisClient redis.Client, metrics statsd.ClientInterface) *Worker {
	sw := &Worker{Worker: w, Handler: handler, Redis: redisClient, Metrics: metrics}
	w.Run = sw.Run
	return sw
}

func (s *Worker) Run() {
	systemStatus, err := s.FetchStatus()
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	if err := s.Redis.Set(context.Background(), SystemStatusKey, systemStatus, s.Interval*2).Err(); err != nil {
		log.Warnf("failed to cache system status: %s", err)
	}
	log.Debugf("system status: %s", systemStatus)
}

// Cached returns the last stored report, or a fresh one when none is stored.
func (s *Worker) Cached() (string, error) {
	return redis.WrapInCache(s.Redis, SystemStatusKey, s.Interval*2, s.FetchStatus)()
}

func (s *Worker) FetchStatus() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	systemStatus := s.Handler.GetSystemStatus(ctx)
	s.gauge("status_worker.mongo_db_available", boolToFloat64(systemStatus.MongoDB.Available))
	s.gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available))
	s.gauge("status_worker.hysteria_available", boolToFloat64(systemStatus.Hysteria.Available))
	s.gauge("status_worker.total_accounts", float64(systemStatus.Usage.TotalAccounts))
	s.gauge("status_worker.active_accounts", float64(systemStatus.Usage.ActiveAccounts))
	s.gauge("status_worker.blocked_accounts", float64(systemStatus.Usage.BlockedAccounts))
	s.gauge("status_worker.total_chats", float64(systemStatus.Usage.TotalChats))
	s.gauge("status_worker.total_purchases", float64(systemStatus.Usage.TotalPurchases))
	s.gauge("status_worker.pending_settlements", float64(systemStatus.Usage.PendingSettlements))

	s.checkAvailable(ctx, "MongoDB", systemStatus.MongoDB.Available)
	s.checkAvailable(ctx, "Redis", systemStatus.Redis.Available)
	s.checkAvailable(ctx, "Hysteria", systemStatus.Hysteria.Available)

	statusBytes, _ := json.Marshal(systemStatus)
	return string(statusBytes), nil
}

func (s *Worker) gauge(name string, value float64) {
	if s.Metrics == nil {
		return
	}
	if err := s.Metrics.Gauge(name, value, nil, 1); err != nil {
		log.Debugf("failed to send %s: %s", name, err)
	}
}

// checkAvailable alerts once per outage. The marker lives in redis, so while
// redis itself is down every run alerts.
func (s *Worker) checkAvailable(ctx context.Context, system string, available bool) {
	if available {
		s.Redis.Del(ctx, alertedKey(system))
		return
	}
	if s.Redis.Get(ctx, alertedKey(system)).Err() == nil {
		log.Errorf("%s is still down", system)
		return
	}
	s.reportUnavailableStatus(ctx, system)
	if err := s.Redis.Set(ctx, alertedKey(system), "1", s.Interval*60).Err(); err != nil {
		log.Debugf("failed to remember %s outage: %s", system, err)
	}
}

func (s *Worker) reportUnavailableStatus(ctx context.Context, systemName string) {
	if s.Admins == nil {
		log.Error("admin notifier is not initialized")
		return
	}
	message := "🔥 " + s.MainBotName + ": " + systemName + " is down 🔥"
	log.Error(message)
	s.Admins.Alert(ctx, message)
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
