package types

import (
	"time"
)

// Action is what the engine decided to do for one exec name.
type Action string

const (
	ActionInstall Action = "install"
	ActionUpdate  Action = "update"
	ActionRemove  Action = "remove"
	// ActionReplace is a remove followed by an install of the new declaration.
	ActionReplace Action = "replace"
	ActionNone    Action = "none"
)

// Status is the final state of a package after a run.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusUpdated   Status = "updated"
	StatusRemoved   Status = "removed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// OperationResult is the per-package line of a Report.
type OperationResult struct {
	ExecName string
	Bridge   string
	Action   Action
	Status   Status
	Version  string
	// PreviousVersion and Change are set for updates and replacements.
	PreviousVersion string
	Change          VersionChange
	// Reason explains a skip or failure.
	Reason string
	// Category classifies failures.
	Category string
	Err      error
	Duration time.Duration
}

// Report is the aggregate outcome of one reconciliation run.
type Report struct {
	Command   string
	Results   []OperationResult
	StartedAt time.Time
	Duration  time.Duration
	// Cancelled is set when the run was interrupted.
	Cancelled bool
}

// Count returns the number of results with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any package failed.
func (r *Report) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// ExitCode is zero only when every package succeeded and the run completed.
func (r *Report) ExitCode() int {
	if r.Failed() || r.Cancelled {
		return 1
	}
	return 0
}

// Failures returns the failed results in report order.
func (r *Report) Failures() []OperationResult {
	var out []OperationResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}
