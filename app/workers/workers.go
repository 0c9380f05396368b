package workers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// AdminNotifier reaches every admin chat. *telegram.Notifier satisfies it.
type AdminNotifier interface {
	Alert(ctx context.Context, text string)
	NotifyAdmins(ctx context.Context, text string)
}

type Worker struct {
	Name        string
	Interval    time.Duration
	MainBotName string
	RunOnStart  bool
	Run         func()
	Stop        chan struct{}
	Admins      AdminNotifier
}

func NewWorker(name, botName string, admins AdminNotifier, interval time.Duration, runOnStart bool) *Worker {
	return &Worker{
		Name:        name,
		Interval:    interval,
		MainBotName: botName,
		RunOnStart:  runOnStart,
		Stop:        make(chan struct{}),
		Admins:      admins,
	}
}

func (w *Worker) Start() {
	log.Infof("[%s] worker started, interval %s", w.Name, w.Interval)
	if w.RunOnStart {
		w.Run()
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Run()
		case <-w.Stop:
			log.Infof("[%s] worker stopped", w.Name)
			return
		}
	}
}

func (w *Worker) StopWorker() {
	w.Stop <- struct{}{}
}
