package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/storage"
)

// failureReport is the plain-text summary copied to the clipboard. It is
// empty for a clean run.
func failureReport(res runner.Result) string {
	if res.Err() == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", res.Scenario)
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Started: %s\n", res.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Result: %s\n", res.State)
	if f := res.Failure; f != nil {
		fmt.Fprintf(&b, "Failed in: %s\n", f.State)
		fmt.Fprintf(&b, "Step: %s\n", f.Step)
		fmt.Fprintf(&b, "Cause: %s\n", f.Cause)
		fmt.Fprintf(&b, "Error: %v\n", f.Err)
	}
	if res.CloseErr != nil {
		fmt.Fprintf(&b, "Close error: %v\n", res.CloseErr)
	}
	if len(res.Transitions) > 0 {
		b.WriteString("Transitions:\n")
		for _, t := range res.Transitions {
			fmt.Fprintf(&b, "  %s -> %s (%s)\n", t.From, t.To, t.Elapsed.Round(time.Millisecond))
		}
	}
	return b.String()
}

// formatRecord renders one ledger entry as a history line.
func formatRecord(rec storage.Record) string {
	when := rec.StartedAt.Local().Format("01-02 15:04:05")
	if rec.Passed {
		return fmt.Sprintf("%s %s %s", when, passStyle.Render("PASS"), rec.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s %s %s in %s", when, errorStyle.Render("FAIL"), rec.Cause, rec.FailedIn)
}
