// Package systemd drives systemctl directly. It is the fallback when the
// system bus cannot be reached.
package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs systemctl. The zero value uses systemctl from $PATH.
type Client struct {
	// Path overrides the systemctl binary.
	Path string
}

func (c Client) command(ctx context.Context, args ...string) *exec.Cmd {
	path := c.Path
	if path == "" {
		path = "systemctl"
	}
	return exec.CommandContext(ctx, path, args...)
}

func (c Client) run(ctx context.Context, args ...string) error {
	out, err := c.command(ctx, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return nil
}

func (c Client) IsActive(ctx context.Context, unit string) (bool, error) {
	out, err := c.command(ctx, "is-active", unit).CombinedOutput()
	if err != nil {
		// is-active returns non-zero when inactive; treat as not active
		s := strings.TrimSpace(string(out))
		return s == "active", nil
	}
	return strings.TrimSpace(string(out)) == "active", nil
}

func (c Client) DaemonReload(ctx context.Context) error {
	return c.run(ctx, "daemon-reload")
}

func (c Client) TryRestart(ctx context.Context, unit string) error {
	return c.run(ctx, "try-restart", unit)
}
