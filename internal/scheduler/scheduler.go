package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"

	"ATHWatch/internal/model"
	"ATHWatch/internal/notifier"
	"ATHWatch/internal/recorder"
)

// MetricsSource computes metrics as of a day; the zero date means today.
type MetricsSource interface {
	GetMetrics(ctx context.Context, asOf civil.Date) (*model.MetricsResult, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Metrics  MetricsSource
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context
	// TaskTimeout bounds one computation, including a cold-cache discovery.
	TaskTimeout time.Duration

	mu        sync.Mutex
	latest    *model.MetricsResult
	surpassed map[string]bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src MetricsSource, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Metrics:     src,
		Notifier:    n,
		Recorder:    rec,
		Ctx:         ctx,
		TaskTimeout: 10 * time.Minute,
		surpassed:   make(map[string]bool),
	}
}

// RegisterAll registers the periodic refresh and the daily report.
func (s *Scheduler) RegisterAll(refreshCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

// Latest returns the most recent successful result, or nil.
func (s *Scheduler) Latest() *model.MetricsResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Scheduler) compute() (*model.MetricsResult, error) {
	ctx, cancel := context.WithTimeout(s.Ctx, s.TaskTimeout)
	defer cancel()

	m, err := s.Metrics.GetMetrics(ctx, civil.Date{})
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordMetrics(m); err != nil {
		log.Printf("[ERROR] record metrics: %v", err)
	}
	s.mu.Lock()
	s.latest = m
	s.mu.Unlock()
	return m, nil
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running refresh task")
	m, err := s.compute()
	if err != nil {
		log.Printf("[ERROR] refresh metrics: %v", err)
		return
	}
	s.checkBreakout(m)
}

// checkBreakout alerts once per currency when spot crosses the adjusted ATH.
func (s *Scheduler) checkBreakout(m *model.MetricsResult) {
	for _, c := range m.Legs() {
		now := c.Surpassed()

		s.mu.Lock()
		before := s.surpassed[c.Currency]
		s.surpassed[c.Currency] = now
		s.mu.Unlock()

		if !now || before {
			continue
		}
		log.Printf("[INFO] %s spot %s crossed adjusted ATH %s", c.Currency, c.Spot, c.AdjustedATH)
		s.trySend(notifier.FormatAlert(m.AsOf, c))
		if err := s.Recorder.RecordAlert(&recorder.AlertEvent{
			Currency:    c.Currency,
			Spot:        c.Spot.String(),
			AdjustedATH: c.AdjustedATH.String(),
			PercentToGo: c.PercentToGo.String(),
		}); err != nil {
			log.Printf("[ERROR] record alert: %v", err)
		}
	}
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running report task")
	m, err := s.compute()
	if err != nil {
		log.Printf("[ERROR] report metrics: %v", err)
		s.trySend("❌ Metrics computation failed: " + html.EscapeString(err.Error()))
		return
	}
	s.trySend(notifier.FormatReport(m))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/metrics":
		m, err := s.compute()
		if err != nil {
			log.Printf("[ERROR] command metrics: %v", err)
			return "❌ Metrics computation failed: " + html.EscapeString(err.Error())
		}
		return notifier.FormatReport(m)
	case "/history":
		snaps, err := s.Recorder.Recent(5)
		if err != nil {
			log.Printf("[ERROR] command history: %v", err)
			return "❌ History unavailable"
		}
		results := make([]*model.MetricsResult, 0, len(snaps))
		for _, snap := range snaps {
			results = append(results, snap.Metrics)
		}
		return notifier.FormatHistory(results)
	default:
		return "Available commands:\n• /metrics: inflation-adjusted ATH now\n• /history: recent snapshots"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
