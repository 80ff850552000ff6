//go:build !linux

package systemdmanager

import (
	"context"
	"errors"
)

var ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")

type Manager struct{}

func NewManagerContext(ctx context.Context) (*Manager, error) {
	return nil, ErrUnsupported
}

func (m *Manager) Close() error { return nil }

func (m *Manager) ReloadContext(ctx context.Context) error { return ErrUnsupported }

func (m *Manager) TryRestartContext(ctx context.Context, unitName string) error {
	return ErrUnsupported
}

func (m *Manager) ReloadWithResult(ctx context.Context) OperationResult {
	return newResult("daemon-reload", "", ErrUnsupported)
}

func (m *Manager) TryRestartWithResult(ctx context.Context, unitName string) OperationResult {
	return newResult("try-restart", unitName, ErrUnsupported)
}

func (m *Manager) ActiveStateContext(ctx context.Context, unitName string) (string, error) {
	return "", ErrUnsupported
}

func (m *Manager) ListTimersContext(ctx context.Context, pattern string) ([]TimerStatus, error) {
	return nil, ErrUnsupported
}
