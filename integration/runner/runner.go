package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/perec-verify/internal/logger"
)

// Controller sequences one scenario through the run states and owns the
// browser session for the duration of the run.
type Controller struct {
	Launcher    Launcher
	BaseURL     string
	ArtifactDir string
	Timeouts    Timeouts
	Logger      *slog.Logger

	// Observer, if set, is called for every transition, including FAILED.
	Observer func(runID uuid.UUID, scenario string, t Transition)
}

// NewController creates a controller with the reference timeouts
func NewController(launcher Launcher, baseURL, artifactDir string, log *slog.Logger) *Controller {
	return &Controller{
		Launcher:    launcher,
		BaseURL:     baseURL,
		ArtifactDir: artifactDir,
		Timeouts:    DefaultTimeouts(),
		Logger:      log,
	}
}

// run is the bookkeeping for a single Run call
type run struct {
	c      *Controller
	log    *slog.Logger
	result *Result
	last   time.Time
}

func (r *run) advance(to State) {
	now := time.Now()
	t := Transition{From: r.result.State, To: to, At: now, Elapsed: now.Sub(r.last)}
	r.last = now
	r.result.State = to
	r.result.Transitions = append(r.result.Transitions, t)

	r.log.Info("State transition", "from", t.From, "to", t.To, "elapsed", t.Elapsed)
	if r.c.Observer != nil {
		r.c.Observer(r.result.RunID, r.result.Scenario, t)
	}
}

func (r *run) fail(step State, err error) {
	r.result.Failure = &StepError{
		State: r.result.State,
		Step:  step,
		Cause: Classify(err),
		Err:   err,
	}
	logger.WithError(r.log, err).Error("Run failed",
		"state", r.result.Failure.State,
		"step", step,
		"cause", r.result.Failure.Cause)
	r.advance(StateFailed)
}

// Run executes the scenario. It never returns early without closing the
// session; the returned Result carries failure details instead of an error.
func (c *Controller) Run(ctx context.Context, sc Scenario) (res Result) {
	res = Result{
		RunID:     uuid.New(),
		Scenario:  sc.Name,
		State:     StateInit,
		StartedAt: time.Now(),
	}
	r := &run{
		c:      c,
		log:    logger.WithRun(c.Logger, res.RunID.String(), sc.Name),
		result: &res,
		last:   res.StartedAt,
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	r.log.Info("Starting run", "base_url", c.BaseURL)

	sess, err := c.Launcher.Launch(ctx, r.log)
	if err != nil {
		r.fail(StateNavigated, fmt.Errorf("failed to launch browser session: %w", err))
		return res
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Error("Failed to close browser session", "error", cerr)
			res.CloseErr = fmt.Errorf("failed to close browser session: %w", cerr)
		}
	}()

	page := sess.Page()
	seeder := NewSeeder(sess.Store(), r.log)
	env := &Env{
		Page:  page,
		Store: sess.Store(),
		Navigator: &Navigator{
			Page: page, BaseURL: c.BaseURL,
			Timeout: c.Timeouts.Navigation, Interval: c.Timeouts.Poll, Logger: r.log,
		},
		Driver: &Driver{
			Page: page, Timeout: c.Timeouts.Locate, Interval: c.Timeouts.Poll, Logger: r.log,
		},
		Verifier: &Verifier{
			Page: page, Timeout: c.Timeouts.Assertion, Interval: c.Timeouts.Poll,
			AbsenceWindow: c.Timeouts.AbsenceWindow, Logger: r.log,
		},
		Seeder: seeder,
		Logger: r.log,
	}

	steps := []struct {
		to State
		do func(ctx context.Context) error
	}{
		{StateNavigated, env.Navigator.Load},
		{StateSeeded, func(ctx context.Context) error {
			if sc.Seed == nil {
				return fmt.Errorf("%w: scenario %q has no seed", ErrConstruction, sc.Name)
			}
			seed := sc.Seed()
			if err := seeder.Seed(ctx, seed); err != nil {
				return err
			}
			env.Seeded = seed
			return nil
		}},
		{StateReloaded, env.Navigator.Reload},
		{StateRoomSelected, bind(sc.Select, env)},
		{StateActionTriggered, bind(sc.Trigger, env)},
		{StateVerified, bind(sc.Verify, env)},
	}

	for _, step := range steps {
		if err := step.do(ctx); err != nil {
			r.fail(step.to, err)
			return res
		}
		r.advance(step.to)
	}

	if sc.Artifact != "" {
		capture := &Capture{Page: page, Dir: c.ArtifactDir, Logger: r.log}
		path, err := capture.Save(ctx, sc.Artifact)
		if err != nil {
			r.log.Warn("Artifact capture failed", "error", err)
		} else {
			res.Artifact = path
		}
	}

	r.advance(StateDone)
	return res
}

func bind(p Phase, env *Env) func(context.Context) error {
	if p == nil {
		return func(context.Context) error { return nil }
	}
	return func(ctx context.Context) error { return p(ctx, env) }
}
