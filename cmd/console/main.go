package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/browser"
	"github.com/jwebster45206/perec-verify/internal/config"
	"github.com/jwebster45206/perec-verify/internal/logger"
	"github.com/jwebster45206/perec-verify/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Everything the harness logs is shown in the log panel instead of stdout.
	events := make(chan tea.Msg, 256)
	log := logger.New(cfg, &logSink{events: events})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ledger, err := storage.OpenLedger(ctx, cfg, log)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to the run ledger: %v\nUnset REDIS_URL to run without history.\n", err)
		os.Exit(1)
	}

	ctrl := runner.NewController(browser.NewLauncher(cfg), cfg.BaseURL, cfg.ArtifactDir, log)
	ctrl.Timeouts = runner.TimeoutsFromConfig(cfg)
	ctrl.Observer = func(runID uuid.UUID, scenario string, t runner.Transition) {
		post(events, transitionMsg{runID: runID, scenario: scenario, transition: t})
	}

	p := tea.NewProgram(NewConsoleUI(ctrl, ledger, events),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	_, err = p.Run()

	if ledger != nil {
		if cerr := ledger.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing run ledger: %v\n", cerr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// logSink forwards each log line to the UI event stream.
type logSink struct {
	events chan<- tea.Msg
}

func (s *logSink) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		post(s.events, logLineMsg(line))
	}
	return len(p), nil
}

// post delivers msg if the UI has room for it and drops it otherwise.
// Nothing drains events once the program has quit, and a run's final
// result travels separately as a runDoneMsg.
func post(events chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case events <- msg:
		return true
	default:
		return false
	}
}
