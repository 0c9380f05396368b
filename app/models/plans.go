package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PlanID string

const (
	BasicPlan    PlanID = "basic"
	PremiumPlan  PlanID = "premium"
	UltimatePlan PlanID = "ultimate"
)

// Plan is a catalog entry. Quota and duration are fixed per plan, the price
// comes from the payment settings.
type Plan struct {
	ID             PlanID
	TrafficQuotaGB int
	DurationDays   int
	PriceUSD       decimal.Decimal
}

// Title is the plan name as shown to customers, i.e. "Premium".
func (p Plan) Title() string {
	if p.ID == "" {
		return ""
	}
	return strings.ToUpper(string(p.ID[:1])) + string(p.ID[1:])
}

type Catalog []Plan

// DefaultCatalog lists the plans in the order they are offered.
var DefaultCatalog = Catalog{
	{ID: BasicPlan, TrafficQuotaGB: 30, DurationDays: 30, PriceUSD: decimal.RequireFromString("1.8")},
	{ID: PremiumPlan, TrafficQuotaGB: 100, DurationDays: 30, PriceUSD: decimal.RequireFromString("3.0")},
	{ID: UltimatePlan, TrafficQuotaGB: 200, DurationDays: 30, PriceUSD: decimal.RequireFromString("4.2")},
}

func (c Catalog) Get(id PlanID) (Plan, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

func (c Catalog) IDs() []PlanID {
	ids := make([]PlanID, 0, len(c))
	for _, p := range c {
		ids = append(ids, p.ID)
	}
	return ids
}

// DefaultPrices returns the catalog prices keyed by plan.
func (c Catalog) DefaultPrices() map[PlanID]decimal.Decimal {
	prices := make(map[PlanID]decimal.Decimal, len(c))
	for _, p := range c {
		prices[p.ID] = p.PriceUSD
	}
	return prices
}

// WithPrices returns a copy of the catalog priced from the given table.
// Plans missing from the table keep their catalog price.
func (c Catalog) WithPrices(prices map[PlanID]decimal.Decimal) Catalog {
	priced := make(Catalog, len(c))
	for i, p := range c {
		if price, ok := prices[p.ID]; ok {
			p.PriceUSD = price
		}
		priced[i] = p
	}
	return priced
}

func ParsePlanID(s string) (PlanID, error) {
	id := PlanID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := DefaultCatalog.Get(id); !ok {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return id, nil
}
