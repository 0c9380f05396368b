// Run daily to send the sales summary to the admins
package salesreport

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"hysteriabot/m/v2/app/ledger"
	"hysteriabot/m/v2/app/settings"
	"hysteriabot/m/v2/app/telegram"
	"hysteriabot/m/v2/app/workers"
)

type Worker struct {
	*workers.Worker
	Ledger   *ledger.Ledger
	Settings *settings.Settings
	Now      func() time.Time
}

func New(w *workers.Worker, l *ledger.Ledger, s *settings.Settings) *Worker {
	sw := &Worker{Worker: w, Ledger: l, Settings: s, Now: time.Now}
	w.Run = sw.Run
	return sw
}

func (s *Worker) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	report, err := telegram.SalesStats(ctx, s.Ledger, s.Settings, s.Now())
	if err != nil {
		log.Errorf("[salesreport] failed to build the sales report: %s", err)
		return
	}
	if s.Admins == nil {
		log.Error("[salesreport] admin notifier is not initialized")
		return
	}
	s.Admins.NotifyAdmins(ctx, report)
	log.Info("[salesreport] sales report sent")
}
