// Package settings holds the runtime configuration admins can change from the
// chat: processor credentials, plan prices, the help text and diagnose mode.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/payments"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidPrices = errors.New("invalid prices")

// Store persists the settings documents. Getters return nil (or "") and no
// error when nothing was saved yet.
type Store interface {
	GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error)
	SavePaymentSettings(ctx context.Context, s models.PaymentSettings) error
	GetHelpMessage(ctx context.Context) (string, error)
	SaveHelpMessage(ctx context.Context, text string) error
}

type Settings struct {
	mu       sync.Mutex
	store    Store
	defaults models.PaymentSettings
	catalog  models.Catalog
	diagnose atomic.Bool
}

// New builds settings with env-provided credentials and catalog prices as
// defaults for a fresh database.
func New(store Store, catalog models.Catalog, merchantID, paymentKey string) *Settings {
	defaults := models.PaymentSettings{
		MerchantID: merchantID,
		PaymentKey: paymentKey,
		Prices:     catalog.DefaultPrices(),
	}
	defaults.Refresh()
	return &Settings{store: store, defaults: defaults, catalog: catalog}
}

func (s *Settings) load(ctx context.Context) (models.PaymentSettings, error) {
	stored, err := s.store.GetPaymentSettings(ctx)
	if err != nil {
		return models.PaymentSettings{}, fmt.Errorf("load: %w", err)
	}
	if stored == nil {
		return s.defaults.Copy(), nil
	}
	current := stored.Copy()
	for id, price := range s.defaults.Prices {
		if _, ok := current.Prices[id]; !ok {
			current.Prices[id] = price
		}
	}
	return current, nil
}

func (s *Settings) Payment(ctx context.Context) (models.PaymentSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// update runs a read-modify-write under the settings lock, so two admins
// editing at once never lose each other's change.
func (s *Settings) update(ctx context.Context, fn func(*models.PaymentSettings) error) (models.PaymentSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load(ctx)
	if err != nil {
		return models.PaymentSettings{}, err
	}
	if err := fn(&current); err != nil {
		return models.PaymentSettings{}, err
	}
	current.Refresh()
	if err := s.store.SavePaymentSettings(ctx, current); err != nil {
		return models.PaymentSettings{}, fmt.Errorf("update: %w", err)
	}
	return current.Copy(), nil
}

func (s *Settings) SetMerchant(ctx context.Context, merchantID string) error {
	_, err := s.update(ctx, func(ps *models.PaymentSettings) error {
		ps.MerchantID = strings.TrimSpace(merchantID)
		return nil
	})
	return err
}

// SetPaymentKey stores the key and reports whether payments are now enabled.
func (s *Settings) SetPaymentKey(ctx context.Context, key string) (bool, error) {
	updated, err := s.update(ctx, func(ps *models.PaymentSettings) error {
		ps.PaymentKey = strings.TrimSpace(key)
		return nil
	})
	return updated.Enabled, err
}

func (s *Settings) SetPrices(ctx context.Context, prices map[models.PlanID]decimal.Decimal) error {
	for _, id := range s.catalog.IDs() {
		price, ok := prices[id]
		if !ok || !price.IsPositive() {
			return fmt.Errorf("%w: %s needs a positive price", ErrInvalidPrices, id)
		}
	}
	_, err := s.update(ctx, func(ps *models.PaymentSettings) error {
		for id, price := range prices {
			ps.Prices[id] = price
		}
		return nil
	})
	if err == nil {
		log.Infof("SetPrices: plan prices updated to %v", prices)
	}
	return err
}

// Catalog returns the plans priced from the current settings.
func (s *Settings) Catalog(ctx context.Context) (models.Catalog, error) {
	ps, err := s.Payment(ctx)
	if err != nil {
		return nil, err
	}
	return s.catalog.WithPrices(ps.Prices), nil
}

func (s *Settings) Plan(ctx context.Context, id models.PlanID) (models.Plan, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return models.Plan{}, err
	}
	plan, ok := catalog.Get(id)
	if !ok {
		return models.Plan{}, fmt.Errorf("Plan: unknown plan %q", id)
	}
	return plan, nil
}

func (s *Settings) Price(ctx context.Context, id models.PlanID) (decimal.Decimal, error) {
	plan, err := s.Plan(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return plan.PriceUSD, nil
}

func (s *Settings) PaymentCredentials(ctx context.Context) (payments.Credentials, error) {
	ps, err := s.Payment(ctx)
	if err != nil {
		return payments.Credentials{}, err
	}
	return payments.Credentials{MerchantID: ps.MerchantID, PaymentKey: ps.PaymentKey, Enabled: ps.Enabled}, nil
}

func (s *Settings) HelpMessage(ctx context.Context) (string, error) {
	text, err := s.store.GetHelpMessage(ctx)
	if err != nil {
		return models.DefaultHelpMessage, fmt.Errorf("HelpMessage: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return models.DefaultHelpMessage, nil
	}
	return text, nil
}

func (s *Settings) SetHelpMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("SetHelpMessage: help message is empty")
	}
	return s.store.SaveHelpMessage(ctx, text)
}

func (s *Settings) DiagnoseMode() bool {
	return s.diagnose.Load()
}

// ToggleDiagnose flips diagnose mode and returns the new value.
func (s *Settings) ToggleDiagnose() bool {
	for {
		old := s.diagnose.Load()
		if s.diagnose.CompareAndSwap(old, !old) {
			log.Infof("ToggleDiagnose: diagnose mode is now %v", !old)
			return !old
		}
	}
}

// ParsePrices reads "basic premium ultimate" prices, i.e. "1.8 3.0 4.2".
func ParsePrices(catalog models.Catalog, text string) (map[models.PlanID]decimal.Decimal, error) {
	fields := strings.Fields(text)
	ids := catalog.IDs()
	if len(fields) != len(ids) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidPrices, len(ids), len(fields))
	}
	prices := make(map[models.PlanID]decimal.Decimal, len(ids))
	for i, f := range fields {
		price, err := decimal.NewFromString(f)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("%w: %q is not a positive number", ErrInvalidPrices, f)
		}
		prices[ids[i]] = price
	}
	return prices, nil
}
