package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ATHWatch/internal/model"
	"ATHWatch/internal/recorder"
)

type fakeSource struct {
	spot decimal.Decimal
	err  error
	hits int
}

func (f *fakeSource) GetMetrics(_ context.Context, _ civil.Date) (*model.MetricsResult, error) {
	f.hits++
	if f.err != nil {
		return nil, f.err
	}
	adjusted := decimal.RequireFromString("6341.74")
	leg := func(cur string) model.CurrencyMetrics {
		return model.CurrencyMetrics{
			Currency:    cur,
			AdjustedATH: adjusted,
			Spot:        f.spot,
			PercentToGo: adjusted.Sub(f.spot).Div(f.spot).Mul(decimal.NewFromInt(100)).Round(2),
		}
	}
	return &model.MetricsResult{AsOf: civil.Date{Year: 2026, Month: 9, Day: 15}, USD: leg("USD"), EUR: leg("EUR")}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type fakeRecorder struct {
	recorder.NoopRecorder
	metrics int
	alerts  []string
}

func (f *fakeRecorder) RecordMetrics(_ *model.MetricsResult) error { f.metrics++; return nil }
func (f *fakeRecorder) RecordAlert(evt *recorder.AlertEvent) error {
	f.alerts = append(f.alerts, evt.Currency)
	return nil
}

func newTestScheduler(src *fakeSource) (*Scheduler, *fakeNotifier, *fakeRecorder) {
	n := &fakeNotifier{}
	rec := &fakeRecorder{}
	return NewScheduler(context.Background(), src, n, rec), n, rec
}

func TestRefreshRecordsAndKeepsLatest(t *testing.T) {
	src := &fakeSource{spot: decimal.NewFromInt(3000)}
	s, n, rec := newTestScheduler(src)

	assert.Nil(t, s.Latest())
	s.RunRefreshNow()

	require.NotNil(t, s.Latest())
	assert.Equal(t, 1, rec.metrics)
	assert.Empty(t, n.sent, "no alert below the adjusted ATH")
}

func TestBreakoutAlertsOncePerCrossing(t *testing.T) {
	src := &fakeSource{spot: decimal.NewFromInt(3000)}
	s, n, rec := newTestScheduler(src)

	s.RunRefreshNow()
	src.spot = decimal.NewFromInt(6400)
	s.RunRefreshNow()
	s.RunRefreshNow()

	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0], "ETH/USD")
	assert.Contains(t, n.sent[1], "ETH/EUR")
	assert.Equal(t, []string{"USD", "EUR"}, rec.alerts)

	// dropping back below re-arms the alert
	src.spot = decimal.NewFromInt(3000)
	s.RunRefreshNow()
	src.spot = decimal.NewFromInt(6400)
	s.RunRefreshNow()
	assert.Len(t, n.sent, 4)
}

func TestRefreshFailureKeepsPreviousResult(t *testing.T) {
	src := &fakeSource{spot: decimal.NewFromInt(3000)}
	s, n, _ := newTestScheduler(src)

	s.RunRefreshNow()
	first := s.Latest()
	src.err = errors.New("upstream down")
	s.RunRefreshNow()

	assert.Same(t, first, s.Latest())
	assert.Empty(t, n.sent)
}

func TestReportTask(t *testing.T) {
	src := &fakeSource{spot: decimal.NewFromInt(3000)}
	s, n, _ := newTestScheduler(src)

	s.reportTask()
	src.err = errors.New("upstream down")
	s.reportTask()

	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0], "USD benchmark")
	assert.Contains(t, n.sent[1], "upstream down")
}

func TestHandleCommand(t *testing.T) {
	src := &fakeSource{spot: decimal.NewFromInt(3000)}
	s, _, _ := newTestScheduler(src)

	assert.Contains(t, s.HandleCommand("/metrics"), "USD benchmark")
	assert.Equal(t, 1, src.hits)
	assert.Equal(t, "No history recorded yet.", s.HandleCommand("/history"))
	assert.Contains(t, s.HandleCommand("/start"), "/metrics")
}

func TestRegisterAllRejectsBadCronExpr(t *testing.T) {
	s, _, _ := newTestScheduler(&fakeSource{spot: decimal.NewFromInt(1)})
	require.NoError(t, s.RegisterAll("0 */5 * * * *", "0 0 9 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	assert.Error(t, s.RegisterAll("not a cron expr", "0 0 9 * * *"))
}

func TestFailureMessagesEscapeHTML(t *testing.T) {
	src := &fakeSource{err: errors.New(`fetch ETH-USD spot: status 502: <html><body>Bad Gateway</body></html>`)}
	s, n, _ := newTestScheduler(src)

	s.reportTask()
	reply := s.HandleCommand("/metrics")

	require.Len(t, n.sent, 1)
	for _, msg := range []string{n.sent[0], reply} {
		assert.NotContains(t, msg, "<html>")
		assert.Contains(t, msg, "&lt;html&gt;&lt;body&gt;Bad Gateway")
	}
}
