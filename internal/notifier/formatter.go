package notifier

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

var symbols = map[string]string{"USD": "$", "EUR": "€"}

// money renders an amount with thousands separators and two decimals.
func money(currency string, d decimal.Decimal) string {
	return symbols[currency] + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

// FormatSummary renders the plain-text console summary.
func FormatSummary(m *model.MetricsResult) string {
	var b strings.Builder
	usd, eur := m.USD, m.EUR

	b.WriteString(fmt.Sprintf("📅 Data as of %s\n", m.AsOf))
	b.WriteString(fmt.Sprintf("💰 Spot Price → USD %s   EUR %s\n", money("USD", usd.Spot), money("EUR", eur.Spot)))
	b.WriteString(fmt.Sprintf("🏔  Nominal ATH → USD %s on %s   EUR %s on %s\n",
		money("USD", usd.ATH), usd.ATHDate, money("EUR", eur.ATH), eur.ATHDate))
	b.WriteString(fmt.Sprintf("📈 Inflation-adjusted → USD %s (×%s, %s %s→%s)\n",
		money("USD", usd.AdjustedATH), usd.Factor.StringFixed(4), usd.IndexSource, usd.FromMonth, usd.ToMonth))
	b.WriteString(fmt.Sprintf("                     → EUR %s (×%s, %s %s→%s)\n",
		money("EUR", eur.AdjustedATH), eur.Factor.StringFixed(4), eur.IndexSource, eur.FromMonth, eur.ToMonth))
	b.WriteString(fmt.Sprintf("🟢 Percent to go → USD %s%%   EUR %s%%\n", signed(usd.PercentToGo), signed(eur.PercentToGo)))
	b.WriteString(fmt.Sprintf("🏁 10k milestone → USD %s   EUR %s\n", money("USD", usd.Milestone), money("EUR", eur.Milestone)))
	return b.String()
}

// FormatReport formats the metrics into an HTML Telegram message.
func FormatReport(m *model.MetricsResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>ETH inflation-adjusted ATH</b> | %s\n\n", m.AsOf))
	for _, c := range m.Legs() {
		b.WriteString(fmt.Sprintf("🚀 <b>%s benchmark</b>: %s (%s%% to go)\n", c.Currency, money(c.Currency, c.AdjustedATH), signed(c.PercentToGo)))
		b.WriteString(fmt.Sprintf("   Spot: %s\n", money(c.Currency, c.Spot)))
		b.WriteString(fmt.Sprintf("   Nominal ATH: %s on %s\n", money(c.Currency, c.ATH), c.ATHDate))
		b.WriteString(fmt.Sprintf("   Inflation ×%s (%s %s→%s)\n", c.Factor.StringFixed(4), c.IndexSource, c.FromMonth, c.ToMonth))
		b.WriteString(fmt.Sprintf("   10k milestone: %s\n\n", money(c.Currency, c.Milestone)))
	}
	b.WriteString("<i>Data: Coinbase Exchange, U.S. CPI-U, Eurostat HICP</i>")
	return b.String()
}

// FormatAlert announces that spot has reached the adjusted ATH in one currency.
func FormatAlert(asOf fmt.Stringer, c model.CurrencyMetrics) string {
	return fmt.Sprintf("🎉 <b>Real ATH broken</b> | %s\n\nETH/%s spot %s is above the inflation-adjusted ATH %s (%s%%)\nNominal ATH: %s on %s",
		asOf, c.Currency, money(c.Currency, c.Spot), money(c.Currency, c.AdjustedATH), signed(c.PercentToGo),
		money(c.Currency, c.ATH), c.ATHDate)
}

// FormatHistory lists recent snapshots, newest first, as an HTML message.
func FormatHistory(snaps []*model.MetricsResult) string {
	return formatHistory(snaps, "🕑 <b>Recent snapshots</b>\n\n")
}

// FormatHistoryText is the plain-text console rendering of FormatHistory.
func FormatHistoryText(snaps []*model.MetricsResult) string {
	return formatHistory(snaps, "🕑 Recent snapshots\n\n")
}

func formatHistory(snaps []*model.MetricsResult, header string) string {
	if len(snaps) == 0 {
		return "No history recorded yet."
	}
	var b strings.Builder
	b.WriteString(header)
	for _, m := range snaps {
		b.WriteString(fmt.Sprintf("%s  USD %s (%s%%)  EUR %s (%s%%)\n", m.AsOf,
			money("USD", m.USD.Spot), signed(m.USD.PercentToGo),
			money("EUR", m.EUR.Spot), signed(m.EUR.PercentToGo)))
	}
	return b.String()
}
