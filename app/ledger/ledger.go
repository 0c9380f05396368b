// Package ledger records every provisioned account per chat and reports
// sales over it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hysteriabot/m/v2/app/models"

	"github.com/shopspring/decimal"
)

// ErrIO wraps every storage failure.
var ErrIO = errors.New("ledger storage failure")

// Store is the persistence behind the ledger, keyed by chat id.
type Store interface {
	AppendAccountRecord(ctx context.Context, rec models.AccountRecord) error
	GetAccountRecords(ctx context.Context, chatID int64) ([]models.AccountRecord, error)
	GetAllAccountRecords(ctx context.Context) (map[int64][]models.AccountRecord, error)
	RenameAccountRecord(ctx context.Context, oldName, newName string) (bool, error)
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Append(ctx context.Context, rec models.AccountRecord) error {
	if rec.AccountName == "" {
		return errors.New("Append: account name is empty")
	}
	if rec.PurchasedAt.IsZero() {
		rec.PurchasedAt = time.Now()
	}
	if err := l.store.AppendAccountRecord(ctx, rec); err != nil {
		return fmt.Errorf("Append: %w: %v", ErrIO, err)
	}
	return nil
}

// ListByChat returns the chat's records ordered by purchase time.
func (l *Ledger) ListByChat(ctx context.Context, chatID int64) ([]models.AccountRecord, error) {
	records, err := l.store.GetAccountRecords(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("ListByChat: %w: %v", ErrIO, err)
	}
	sortByPurchase(records)
	return records, nil
}

func (l *Ledger) ListAll(ctx context.Context) (map[int64][]models.AccountRecord, error) {
	all, err := l.store.GetAllAccountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w: %v", ErrIO, err)
	}
	for _, records := range all {
		sortByPurchase(records)
	}
	return all, nil
}

// Rename re-points a record after the account was renamed on the
// provisioning side. Accounts created by admins have no record, which is not
// an error.
func (l *Ledger) Rename(ctx context.Context, oldName, newName string) (bool, error) {
	found, err := l.store.RenameAccountRecord(ctx, oldName, newName)
	if err != nil {
		return false, fmt.Errorf("Rename: %w: %v", ErrIO, err)
	}
	return found, nil
}

// ChatsByAccount maps every recorded account name to the chat that bought it.
func (l *Ledger) ChatsByAccount(ctx context.Context) (map[string]int64, error) {
	all, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	chats := map[string]int64{}
	for chatID, records := range all {
		for _, r := range records {
			chats[r.AccountName] = chatID
		}
	}
	return chats, nil
}

// FindChat returns the chat that bought the account, if any.
func (l *Ledger) FindChat(ctx context.Context, accountName string) (int64, bool, error) {
	chats, err := l.ChatsByAccount(ctx)
	if err != nil {
		return 0, false, err
	}
	chatID, ok := chats[accountName]
	return chatID, ok, nil
}

// Filter selects records for Aggregate.
type Filter func(models.AccountRecord) bool

func All(models.AccountRecord) bool { return true }

func ExcludeDiagnostic(r models.AccountRecord) bool { return !r.IsDiagnostic }

func OnlyDiagnostic(r models.AccountRecord) bool { return r.IsDiagnostic }

type Summary struct {
	Count        int
	TotalRevenue decimal.Decimal
	PerPlan      map[models.PlanID]int
}

// Aggregate scans every record purchased in [since, until] and matching the
// filter. A nil until means "up to now". Records stored without a price are
// counted at the given fallback price table. Diagnostic records never add
// revenue.
func (l *Ledger) Aggregate(ctx context.Context, since time.Time, until *time.Time, filter Filter, fallback map[models.PlanID]decimal.Decimal) (Summary, error) {
	if filter == nil {
		filter = All
	}
	all, err := l.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{TotalRevenue: decimal.Zero, PerPlan: map[models.PlanID]int{}}
	for _, id := range models.DefaultCatalog.IDs() {
		summary.PerPlan[id] = 0
	}
	for _, records := range all {
		for _, r := range records {
			if r.PurchasedAt.Before(since) {
				continue
			}
			if until != nil && r.PurchasedAt.After(*until) {
				continue
			}
			if !filter(r) {
				continue
			}
			summary.Count++
			summary.PerPlan[r.PlanID]++
			if r.IsDiagnostic {
				continue
			}
			price := r.PriceUSD
			if price.IsZero() {
				price = fallback[r.PlanID]
			}
			summary.TotalRevenue = summary.TotalRevenue.Add(price)
		}
	}
	return summary, nil
}

func sortByPurchase(records []models.AccountRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PurchasedAt.Before(records[j].PurchasedAt)
	})
}
