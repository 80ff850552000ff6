// Package systemdmanager talks to the system manager over D-Bus to apply
// freshly generated cron units.
package systemdmanager

import (
	"context"
	"fmt"
)

// OperationResult wraps result of a single manager operation
type OperationResult struct {
	UnitName string
	Success  bool
	Error    error
	Message  string // Human-readable message (plain)
}

// TimerStatus is the state of one generated timer.
type TimerStatus struct {
	Name      string
	Active    string // active, inactive, failed, etc.
	SubState  string // waiting, elapsed, dead, etc.
	LoadState string // loaded, not-found, masked, etc.
}

func newResult(action, unitName string, err error) OperationResult {
	return OperationResult{
		UnitName: unitName,
		Success:  err == nil,
		Error:    err,
		Message:  formatOperationMessage(action, unitName, err),
	}
}

// waitJob blocks until the queued job reports on ch or ctx ends.
func waitJob(ctx context.Context, unitName string, ch <-chan string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", unitName, ctx.Err())
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("job for %s finished with result %q", unitName, result)
		}
		return nil
	}
}

//
// Formatting helpers (generic, non-UI)
//

func formatOperationMessage(action, unitName string, err error) string {
	if unitName == "" {
		unitName = "manager"
	}
	if err != nil {
		return fmt.Sprintf("%s %s: error: %v", action, unitName, err)
	}
	return fmt.Sprintf("%s %s: ok", action, unitName)
}
