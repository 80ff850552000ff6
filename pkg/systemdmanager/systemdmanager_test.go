package systemdmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWaitJob(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "done"
	if err := waitJob(context.Background(), "cron.target", ch); err != nil {
		t.Fatalf("done: %v", err)
	}

	ch <- "failed"
	err := waitJob(context.Background(), "cron.target", ch)
	if err == nil || !strings.Contains(err.Error(), `"failed"`) {
		t.Fatalf("failed job: got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = waitJob(ctx, "cron.target", make(chan string))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout: got %v", err)
	}
}

func TestOperationMessages(t *testing.T) {
	r := newResult("try-restart", "cron.target", nil)
	if !r.Success || r.Message != "try-restart cron.target: ok" {
		t.Fatalf("unexpected result %+v", r)
	}
	r = newResult("daemon-reload", "", errors.New("access denied"))
	if r.Success || r.Message != "daemon-reload manager: error: access denied" {
		t.Fatalf("unexpected result %+v", r)
	}
}
