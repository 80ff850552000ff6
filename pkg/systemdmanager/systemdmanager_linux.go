//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Manager handles the system manager operations of cron-update.
type Manager struct {
	mu   sync.RWMutex
	conn *dbus.Conn
}

// NewManagerContext connects to the system bus using ctx for the initial D-Bus connection.
// If ctx is nil, context.Background() is used.
func NewManagerContext(ctx context.Context) (*Manager, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	return nil
}

func (m *Manager) connection() (*dbus.Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, fmt.Errorf("systemd connection is closed")
	}
	return m.conn, nil
}

// ReloadContext is "systemctl daemon-reload": it reruns every generator.
func (m *Manager) ReloadContext(ctx context.Context) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

// TryRestartContext restarts unitName if it is running and waits for the job.
func (m *Manager) TryRestartContext(ctx context.Context, unitName string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	ch := make(chan string, 1)
	if _, err := conn.TryRestartUnitContext(ctx, unitName, "replace", ch); err != nil {
		return fmt.Errorf("failed to try-restart %s: %w", unitName, err)
	}
	return waitJob(ctx, unitName, ch)
}

func (m *Manager) ReloadWithResult(ctx context.Context) OperationResult {
	return newResult("daemon-reload", "", m.ReloadContext(ctx))
}

func (m *Manager) TryRestartWithResult(ctx context.Context, unitName string) OperationResult {
	return newResult("try-restart", unitName, m.TryRestartContext(ctx, unitName))
}

// ActiveStateContext returns the ActiveState property of unitName.
func (m *Manager) ActiveStateContext(ctx context.Context, unitName string) (string, error) {
	conn, err := m.connection()
	if err != nil {
		return "", err
	}
	p, err := conn.GetUnitPropertyContext(ctx, unitName, "ActiveState")
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", unitName, err)
	}
	s, _ := p.Value.Value().(string)
	return s, nil
}

// ListTimersContext returns the loaded units matching pattern, sorted by name.
func (m *Manager) ListTimersContext(ctx context.Context, pattern string) ([]TimerStatus, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, err
	}
	units, err := conn.ListUnitsByPatternsContext(ctx, nil, []string{pattern})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	out := make([]TimerStatus, 0, len(units))
	for _, u := range units {
		out = append(out, TimerStatus{
			Name:      u.Name,
			Active:    u.ActiveState,
			SubState:  u.SubState,
			LoadState: u.LoadState,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
