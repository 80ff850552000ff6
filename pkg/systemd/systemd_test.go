package systemd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeSystemctl records its arguments and answers is-active for cron.target.
func fakeSystemctl(t *testing.T) (Client, string) {
	t.Helper()
	dir := t.TempDir()
	log := filepath.Join(dir, "calls")
	script := "#!/bin/sh\n" +
		"echo \"$@\" >> " + log + "\n" +
		"case \"$1 $2\" in\n" +
		"  'is-active cron.target') echo active ;;\n" +
		"  'is-active '*) echo inactive; exit 3 ;;\n" +
		"  'try-restart broken.target') echo 'Unit broken.target not found.' >&2; exit 5 ;;\n" +
		"esac\n"
	path := filepath.Join(dir, "systemctl")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return Client{Path: path}, log
}

func TestClient(t *testing.T) {
	c, log := fakeSystemctl(t)
	ctx := context.Background()

	if err := c.DaemonReload(ctx); err != nil {
		t.Fatalf("daemon-reload: %v", err)
	}
	if err := c.TryRestart(ctx, "cron.target"); err != nil {
		t.Fatalf("try-restart: %v", err)
	}
	err := c.TryRestart(ctx, "broken.target")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}

	active, err := c.IsActive(ctx, "cron.target")
	if err != nil || !active {
		t.Fatalf("cron.target: active=%v err=%v", active, err)
	}
	active, err = c.IsActive(ctx, "other.timer")
	if err != nil || active {
		t.Fatalf("other.timer: active=%v err=%v", active, err)
	}

	b, err := os.ReadFile(log)
	if err != nil {
		t.Fatal(err)
	}
	want := "daemon-reload\ntry-restart cron.target\ntry-restart broken.target\nis-active cron.target\nis-active other.timer\n"
	if string(b) != want {
		t.Fatalf("calls:\n%s\nwant:\n%s", b, want)
	}
}
