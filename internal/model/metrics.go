package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CurrencyMetrics holds the derived figures for one quote currency.
type CurrencyMetrics struct {
	Currency    string          `json:"currency"`
	Pair        string          `json:"pair"`
	ATH         decimal.Decimal `json:"ath"`
	ATHDate     civil.Date      `json:"ath_date"`
	Factor      decimal.Decimal `json:"inflation_factor"` // rounded to 4 places
	IndexSource string          `json:"index_source"`
	FromMonth   Month           `json:"from_month"`
	ToMonth     Month           `json:"to_month"`
	AdjustedATH decimal.Decimal `json:"adjusted_ath"`
	Spot        decimal.Decimal `json:"spot"`
	PercentToGo decimal.Decimal `json:"percent_to_go"`
	Milestone   decimal.Decimal `json:"milestone"`
}

// Surpassed reports whether spot has reached the inflation-adjusted ATH.
func (c CurrencyMetrics) Surpassed() bool {
	return !c.PercentToGo.IsPositive()
}

// MetricsResult is the full output of one metrics computation.
type MetricsResult struct {
	AsOf civil.Date      `json:"as_of"`
	USD  CurrencyMetrics `json:"usd"`
	EUR  CurrencyMetrics `json:"eur"`
}

// Legs returns the per-currency metrics in display order.
func (r *MetricsResult) Legs() []CurrencyMetrics {
	return []CurrencyMetrics{r.USD, r.EUR}
}
