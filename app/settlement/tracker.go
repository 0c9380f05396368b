// Package settlement drives a purchase from invoice creation to a delivered
// account.
//
// Every settlement is polled by its own goroutine until the processor reports
// a final status or the poll bound runs out. The move to PAID is the single
// commit point: it is a check-and-set under the settlement's lock, so an
// account is created at most once per invoice no matter how many polls or
// webhook nudges race.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/payments"
	"hysteriabot/m/v2/app/provisioning"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cenkalti/backoff.v1"
)

var (
	ErrUnknownPlan       = errors.New("unknown plan")
	ErrUnknownSettlement = errors.New("unknown settlement")
	ErrAlreadyResolved   = errors.New("settlement already resolved")
)

const archiveRetention = 24 * time.Hour

type PaymentClient interface {
	CreateInvoice(ctx context.Context, amount decimal.Decimal, orderID string) (*payments.Invoice, error)
	GetStatus(ctx context.Context, invoiceID string) (payments.Status, error)
}

type Provisioner interface {
	CreateAccount(ctx context.Context, name string, quotaGB, durationDays int) (*provisioning.Receipt, error)
	GetConnection(ctx context.Context, name string, ip provisioning.IPVersion, opts provisioning.URIOptions) (*provisioning.Connection, error)
}

type Recorder interface {
	Append(ctx context.Context, rec models.AccountRecord) error
}

type PlanSource interface {
	Plan(ctx context.Context, id models.PlanID) (models.Plan, error)
}

// Delivery is what the customer receives once an account exists. Settlement
// is nil for diagnostic accounts.
type Delivery struct {
	ChatID     int64
	Record     models.AccountRecord
	Connection provisioning.Connection
	Settlement *models.PendingSettlement
}

// Deliverer hands results to the chat.
type Deliverer interface {
	DeliverAccount(ctx context.Context, d Delivery) error
	// NotifyClosed tells the customer the settlement expired or failed.
	NotifyClosed(ctx context.Context, s models.PendingSettlement) error
}

// Alerter reaches the operators.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

type Config struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	MaxAttempts     int
	DeliveryRetries uint64
	RetryInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.MaxPollDuration <= 0 {
		c.MaxPollDuration = time.Hour
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 360
	}
	if c.DeliveryRetries == 0 {
		c.DeliveryRetries = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	return c
}

type entry struct {
	mu        sync.Mutex
	s         models.PendingSettlement
	nudge     chan struct{}
	cancelled chan struct{}
}

func (e *entry) snapshot() models.PendingSettlement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s
}

type Tracker struct {
	cfg         Config
	payments    PaymentClient
	provisioner Provisioner
	ledger      Recorder
	plans       PlanSource
	deliverer   Deliverer
	alerter     Alerter
	metrics     statsd.ClientInterface
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	archive map[string]models.PendingSettlement
	// issued is the last account name timestamp handed out per chat.
	issued map[int64]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Dependencies struct {
	Payments    PaymentClient
	Provisioner Provisioner
	Ledger      Recorder
	Plans       PlanSource
	Deliverer   Deliverer
	Alerter     Alerter
	Metrics     statsd.ClientInterface
}

func NewTracker(deps Dependencies, cfg Config) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	metrics := deps.Metrics
	if metrics == nil {
		metrics = &statsd.NoOpClient{}
	}
	return &Tracker{
		cfg:         cfg.withDefaults(),
		payments:    deps.Payments,
		provisioner: deps.Provisioner,
		ledger:      deps.Ledger,
		plans:       deps.Plans,
		deliverer:   deps.Deliverer,
		alerter:     deps.Alerter,
		metrics:     metrics,
		now:         time.Now,
		entries:     map[string]*entry{},
		archive:     map[string]models.PendingSettlement{},
		issued:      map[int64]time.Time{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

func fields(s models.PendingSettlement) log.Fields {
	return log.Fields{
		"settlement_id": s.SettlementID,
		"chat_id":       s.ChatID,
		"plan":          s.PlanID,
		"account_name":  s.AccountName,
	}
}

func (t *Tracker) count(name string, s models.PendingSettlement) {
	err := t.metrics.Incr(name, []string{"plan:" + string(s.PlanID)}, 1)
	if err != nil {
		log.Errorf("error sending metric %s: %v", name, err)
	}
}

// Purchase creates an invoice for the plan and starts tracking it. It returns
// payments.ErrDisabled untouched when no processor credentials are set.
func (t *Tracker) Purchase(ctx context.Context, chatID int64, planID models.PlanID) (models.PendingSettlement, *payments.Invoice, error) {
	plan, err := t.plans.Plan(ctx, planID)
	if err != nil {
		return models.PendingSettlement{}, nil, fmt.Errorf("Purchase: %w: %v", ErrUnknownPlan, err)
	}
	orderID := uuid.NewString()
	invoice, err := t.payments.CreateInvoice(ctx, plan.PriceUSD, orderID)
	if err != nil {
		return models.PendingSettlement{}, nil, fmt.Errorf("Purchase: %w", err)
	}

	s := models.PendingSettlement{
		SettlementID: invoice.ID,
		OrderID:      orderID,
		ChatID:       chatID,
		PlanID:       plan.ID,
		QuotaGB:      plan.TrafficQuotaGB,
		DurationDays: plan.DurationDays,
		AmountUSD:    plan.PriceUSD,
		PayURL:       invoice.PayURL,
		CreatedAt:    t.now(),
		Status:       models.SettlementCreated,
	}
	e := &entry{s: s, nudge: make(chan struct{}, 1), cancelled: make(chan struct{})}

	t.mu.Lock()
	if existing, ok := t.entries[s.SettlementID]; ok {
		t.mu.Unlock()
		log.WithFields(fields(s)).Warn("Purchase: processor returned an invoice that is already tracked")
		return existing.snapshot(), invoice, nil
	}
	t.entries[s.SettlementID] = e
	e.s.Status = models.SettlementPolling
	s = e.s
	t.wg.Add(1)
	t.mu.Unlock()

	log.WithFields(fields(s)).Infof("Purchase: invoice created for %s USD", s.AmountUSD.StringFixed(2))
	t.count("settlement.created", s)
	go t.watch(e)
	return s, invoice, nil
}

func (t *Tracker) watch(e *entry) {
	defer t.wg.Done()
	id := e.snapshot().SettlementID
	defer func() {
		if r := recover(); r != nil {
			log.WithField("settlement_id", id).Errorf("watch: panic, settlement is no longer polled: %v\n%s", r, debug.Stack())
			_ = t.metrics.Incr("settlement.poll_error", nil, 1)
		}
	}()
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-e.cancelled:
			return
		case <-ticker.C:
		case <-e.nudge:
		}
		if t.check(e) {
			return
		}
	}
}

// check polls the processor once and returns true when the settlement no
// longer needs polling. It is safe to call concurrently for the same entry.
func (t *Tracker) check(e *entry) bool {
	id := e.snapshot().SettlementID
	status, pollErr := t.pollStatus(id)

	e.mu.Lock()
	if !e.s.Status.Pending() {
		e.mu.Unlock()
		return true
	}
	e.s.Attempts++
	logger := log.WithFields(fields(e.s))

	if pollErr != nil {
		logger.WithError(pollErr).Warnf("check: status poll %d failed", e.s.Attempts)
		defer t.count("settlement.poll_error", e.s)
	}

	switch {
	case pollErr == nil && status == payments.StatusPaid:
		e.s.Status = models.SettlementPaid
		paid := e.s
		e.mu.Unlock()
		logger.Info("check: settlement paid")
		t.count("settlement.paid", paid)
		t.settleSafely(e, paid)
		return true
	case pollErr == nil && status == payments.StatusExpired:
		closed := t.closeLocked(e, models.SettlementExpired, "processor reported the invoice expired")
		e.mu.Unlock()
		t.closed(closed)
		return true
	case pollErr == nil && status == payments.StatusFailed:
		closed := t.closeLocked(e, models.SettlementFailed, "processor reported the payment failed")
		e.mu.Unlock()
		t.closed(closed)
		return true
	}

	if e.s.Attempts >= t.cfg.MaxAttempts || t.now().Sub(e.s.CreatedAt) >= t.cfg.MaxPollDuration {
		closed := t.closeLocked(e, models.SettlementExpired, fmt.Sprintf("no payment after %d polls", e.s.Attempts))
		e.mu.Unlock()
		t.closed(closed)
		return true
	}
	e.mu.Unlock()
	return false
}

// pollStatus asks the processor for the invoice status. A panic in the
// client counts as a failed poll.
func (t *Tracker) pollStatus(id string) (status payments.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("settlement_id", id).Errorf("pollStatus: panic: %v\n%s", r, debug.Stack())
			status, err = payments.StatusPending, fmt.Errorf("pollStatus: panic: %v", r)
		}
	}()
	return t.payments.GetStatus(t.ctx, id)
}

// settleSafely runs settle and contains its panics. A settlement that panics
// before it is delivered ends FAILED and is never provisioned again.
func (t *Tracker) settleSafely(e *entry, paid models.PendingSettlement) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e.mu.Lock()
		s := e.s
		stillPaid := s.Status == models.SettlementPaid
		if stillPaid {
			s = t.closeLocked(e, models.SettlementFailed, fmt.Sprintf("panic after payment: %v", r))
		}
		e.mu.Unlock()

		log.WithFields(fields(s)).Errorf("settle: panic: %v\n%s", r, debug.Stack())
		t.count("settlement.poll_error", s)
		t.alerter.Alert(t.ctx, fmt.Sprintf("Settlement %s for chat %d (account %q) hit an internal error after payment and needs manual handling: %v", s.SettlementID, s.ChatID, s.AccountName, r))
		if stillPaid {
			t.closed(s)
		}
	}()
	t.settle(e, paid)
}

func (t *Tracker) closeLocked(e *entry, status models.SettlementStatus, reason string) models.PendingSettlement {
	e.s.Status = status
	e.s.FailReason = reason
	e.s.ResolvedAt = t.now()
	return e.s
}

// closed archives an expired or failed settlement and tells the customer.
func (t *Tracker) closed(s models.PendingSettlement) {
	log.WithFields(fields(s)).Infof("settlement %s: %s", s.Status, s.FailReason)
	t.count("settlement."+string(s.Status), s)
	t.resolve(s)
	if err := t.deliverer.NotifyClosed(t.ctx, s); err != nil {
		log.WithFields(fields(s)).WithError(err).Warn("closed: failed to notify customer")
	}
}

func (t *Tracker) resolve(s models.PendingSettlement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, s.SettlementID)
	for id, old := range t.archive {
		if t.now().Sub(old.ResolvedAt) > archiveRetention {
			delete(t.archive, id)
		}
	}
	t.archive[s.SettlementID] = s
}

// settle runs once per settlement, right after the PAID commit. Provisioning
// is not retried: a failure here leaves a paid invoice without an account and
// goes to the operators.
func (t *Tracker) settle(e *entry, s models.PendingSettlement) {
	name := t.accountName(s.ChatID)
	e.mu.Lock()
	e.s.AccountName = name
	e.mu.Unlock()
	s.AccountName = name
	logger := log.WithFields(fields(s))

	if _, err := t.provisioner.CreateAccount(t.ctx, name, s.QuotaGB, s.DurationDays); err != nil {
		logger.WithError(err).Error("settle: provisioning failed for a paid settlement")
		_ = t.metrics.Incr("provisioning.error", []string{"op:create"}, 1)
		e.mu.Lock()
		failed := t.closeLocked(e, models.SettlementFailed, "provisioning failed: "+err.Error())
		e.mu.Unlock()
		t.alerter.Alert(t.ctx, fmt.Sprintf("Settlement %s for chat %d was paid but account %s could not be created: %v", s.SettlementID, s.ChatID, name, err))
		t.closed(failed)
		return
	}

	rec := models.AccountRecord{
		ChatID:       s.ChatID,
		AccountName:  name,
		PlanID:       s.PlanID,
		PurchasedAt:  t.now(),
		QuotaGB:      s.QuotaGB,
		DurationDays: s.DurationDays,
		PriceUSD:     s.AmountUSD,
		SettlementID: s.SettlementID,
	}
	if err := t.ledger.Append(t.ctx, rec); err != nil {
		logger.WithError(err).Error("settle: ledger write failed, the account exists and must be reconciled by hand")
		t.alerter.Alert(t.ctx, fmt.Sprintf("Ledger write failed for settlement %s, chat %d, account %s: %v", s.SettlementID, s.ChatID, name, err))
		e.mu.Lock()
		e.s.FailReason = "ledger write failed: " + err.Error()
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.s.Status = models.SettlementDelivered
	e.s.ResolvedAt = t.now()
	delivered := e.s
	e.mu.Unlock()
	t.resolve(delivered)
	t.count("settlement.delivered", delivered)

	t.deliver(Delivery{ChatID: s.ChatID, Record: rec, Settlement: &delivered}, logger)
}

// deliver looks up the connection and sends it, retrying transient failures.
// Delivery never rolls back the account.
func (t *Tracker) deliver(d Delivery, logger *log.Entry) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.cfg.RetryInterval
	b.MaxElapsedTime = time.Minute
	policy := backoff.WithContext(backoff.WithMaxTries(b, t.cfg.DeliveryRetries), t.ctx)

	var malformed error
	err := backoff.RetryNotify(func() error {
		if d.Connection.URI == "" {
			conn, err := t.provisioner.GetConnection(t.ctx, d.Record.AccountName, provisioning.IPv4, provisioning.URIOptions{NormalSub: true})
			if err != nil {
				if errors.Is(err, provisioning.ErrMalformedResponse) {
					malformed = err
					return nil
				}
				return err
			}
			d.Connection = *conn
		}
		return t.deliverer.DeliverAccount(t.ctx, d)
	}, policy, func(err error, wait time.Duration) {
		logger.WithError(err).Warnf("deliver: retrying in %s", wait)
	})
	if err == nil {
		err = malformed
	}
	if err != nil {
		logger.WithError(err).Error("deliver: account created but not delivered")
		t.alerter.Alert(t.ctx, fmt.Sprintf("Account %s for chat %d was created but could not be delivered: %v", d.Record.AccountName, d.ChatID, err))
	}
}

// ProvisionDiagnostic creates a free account for the plan without any
// invoice. The record is flagged diagnostic and never counts as revenue.
func (t *Tracker) ProvisionDiagnostic(ctx context.Context, chatID int64, planID models.PlanID) (models.AccountRecord, error) {
	plan, err := t.plans.Plan(ctx, planID)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("ProvisionDiagnostic: %w: %v", ErrUnknownPlan, err)
	}
	name := t.accountName(chatID)
	logger := log.WithFields(log.Fields{"chat_id": chatID, "plan": plan.ID, "account_name": name})

	if _, err := t.provisioner.CreateAccount(ctx, name, plan.TrafficQuotaGB, plan.DurationDays); err != nil {
		_ = t.metrics.Incr("provisioning.error", []string{"op:create"}, 1)
		return models.AccountRecord{}, fmt.Errorf("ProvisionDiagnostic: %w", err)
	}
	rec := models.AccountRecord{
		ChatID:       chatID,
		AccountName:  name,
		PlanID:       plan.ID,
		PurchasedAt:  t.now(),
		QuotaGB:      plan.TrafficQuotaGB,
		DurationDays: plan.DurationDays,
		PriceUSD:     plan.PriceUSD,
		IsDiagnostic: true,
	}
	if err := t.ledger.Append(ctx, rec); err != nil {
		logger.WithError(err).Error("ProvisionDiagnostic: ledger write failed, the account exists and must be reconciled by hand")
		t.alerter.Alert(ctx, fmt.Sprintf("Ledger write failed for diagnostic account %s, chat %d: %v", name, chatID, err))
	}
	logger.Info("ProvisionDiagnostic: diagnostic account created")
	t.deliver(Delivery{ChatID: chatID, Record: rec}, logger)
	return rec, nil
}

// accountName issues a new account name for the chat. Names issued for one
// chat within the same millisecond get consecutive timestamps.
func (t *Tracker) accountName(chatID int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := t.now().Truncate(time.Millisecond)
	if last, ok := t.issued[chatID]; ok && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	t.issued[chatID] = ts
	return models.AccountName(chatID, ts)
}

// Nudge asks for an immediate status check, i.e. after a processor webhook.
// It reports whether the settlement is being tracked.
func (t *Tracker) Nudge(settlementID string) bool {
	t.mu.Lock()
	e, ok := t.entries[settlementID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case e.nudge <- struct{}{}:
	default:
	}
	return true
}

// Cancel moves a polling settlement to FAILED at once.
func (t *Tracker) Cancel(settlementID, reason string) error {
	t.mu.Lock()
	e, ok := t.entries[settlementID]
	t.mu.Unlock()
	if !ok {
		if _, archived := t.Get(settlementID); archived {
			return ErrAlreadyResolved
		}
		return ErrUnknownSettlement
	}
	e.mu.Lock()
	if !e.s.Status.Pending() {
		e.mu.Unlock()
		return ErrAlreadyResolved
	}
	if reason == "" {
		reason = "cancelled by operator"
	}
	failed := t.closeLocked(e, models.SettlementFailed, reason)
	close(e.cancelled)
	e.mu.Unlock()
	t.closed(failed)
	return nil
}

// Get finds a tracked or recently resolved settlement.
func (t *Tracker) Get(settlementID string) (models.PendingSettlement, bool) {
	t.mu.Lock()
	e, ok := t.entries[settlementID]
	archived, inArchive := t.archive[settlementID]
	t.mu.Unlock()
	if ok {
		return e.snapshot(), true
	}
	return archived, inArchive
}

// Pending lists the settlements still being polled, oldest first.
func (t *Tracker) Pending() []models.PendingSettlement {
	t.mu.Lock()
	entries := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.Unlock()

	pending := make([]models.PendingSettlement, 0, len(entries))
	for _, e := range entries {
		if s := e.snapshot(); s.Status.Pending() {
			pending = append(pending, s)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending
}

// Stop ends every poll loop and waits for them. In-flight settlements are
// lost, there is no durable queue.
func (t *Tracker) Stop() {
	t.cancel()
	t.wg.Wait()
}
