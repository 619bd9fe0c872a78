package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/perec-verify/integration/runner"
)

func TestSummarize(t *testing.T) {
	results := []runner.Result{
		{Scenario: "interactions", State: runner.StateDone, Duration: 1234 * time.Millisecond, Artifact: "verification/interactions_test.png"},
		{Scenario: "inventory", State: runner.StateFailed, Failure: &runner.StepError{
			State: runner.StateActionTriggered,
			Step:  runner.StateVerified,
			Cause: runner.CauseAssertionTimeout,
			Err:   errors.New("inventory never expanded"),
		}},
		{Scenario: "selection", State: runner.StateDone, CloseErr: errors.New("target closed")},
	}

	var buf bytes.Buffer
	failed := summarize(&buf, results)
	out := buf.String()

	assert.Equal(t, 2, failed)
	assert.Contains(t, out, "PASS  interactions")
	assert.Contains(t, out, "1.234s")
	assert.Contains(t, out, "FAIL  inventory")
	assert.Contains(t, out, "ACTION_TRIGGERED -> VERIFIED failed")
	assert.Contains(t, out, "FAIL  selection")
	assert.Contains(t, out, "1 passed, 2 failed")
}

func TestSummarize_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, summarize(&buf, nil))
	assert.Contains(t, buf.String(), "0 passed, 0 failed")
}
