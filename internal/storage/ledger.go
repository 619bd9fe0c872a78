package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/config"
)

// Ledger keeps the outcome of recent runs per scenario.
type Ledger interface {
	// Record appends a run, trimming the scenario's history to its limit.
	Record(ctx context.Context, rec Record) error

	// Latest returns the most recent run of a scenario, or nil if none.
	Latest(ctx context.Context, scenario string) (*Record, error)

	// History returns up to n runs of a scenario, newest first.
	History(ctx context.Context, scenario string, n int) ([]Record, error)

	// Scenarios lists every scenario with at least one recorded run.
	Scenarios(ctx context.Context) ([]string, error)

	Close() error
}

// OpenLedger connects the Redis ledger, or returns nil when REDIS_URL is unset.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Ledger, error) {
	if cfg.RedisURL == "" {
		logger.Info("Run ledger disabled, REDIS_URL not set")
		return nil, nil
	}
	ledger, err := NewRedisLedger(ctx, cfg.RedisURL, cfg.LedgerHistory, logger)
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// TransitionRecord is a persisted state change.
type TransitionRecord struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`
}

// Record is the persisted outcome of one run.
type Record struct {
	RunID    uuid.UUID `json:"run_id"`
	Scenario string    `json:"scenario"`
	State    string    `json:"state"`
	Passed   bool      `json:"passed"`

	// Set for FAILED runs
	FailedIn string `json:"failed_in,omitempty"` // last state reached
	Step     string `json:"step,omitempty"`      // state being entered
	Cause    string `json:"cause,omitempty"`
	Error    string `json:"error,omitempty"`

	CloseError string `json:"close_error,omitempty"`

	Transitions []TransitionRecord `json:"transitions"`
	Artifact    string             `json:"artifact,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	Duration    time.Duration      `json:"duration"`
}

// NewRecord flattens a run result for storage.
func NewRecord(res runner.Result) Record {
	rec := Record{
		RunID:       res.RunID,
		Scenario:    res.Scenario,
		State:       string(res.State),
		Passed:      res.Passed(),
		Transitions: make([]TransitionRecord, 0, len(res.Transitions)),
		Artifact:    res.Artifact,
		StartedAt:   res.StartedAt,
		Duration:    res.Duration,
	}
	for _, t := range res.Transitions {
		rec.Transitions = append(rec.Transitions, TransitionRecord{
			From:    string(t.From),
			To:      string(t.To),
			At:      t.At,
			Elapsed: t.Elapsed,
		})
	}
	if f := res.Failure; f != nil {
		rec.FailedIn = string(f.State)
		rec.Step = string(f.Step)
		rec.Cause = string(f.Cause)
		rec.Error = f.Err.Error()
	}
	if res.CloseErr != nil {
		rec.CloseError = res.CloseErr.Error()
	}
	return rec
}
