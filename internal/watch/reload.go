package watch

import (
	"context"
	"errors"

	"crongen/pkg/logx"
	"crongen/pkg/systemd"
	"crongen/pkg/systemdmanager"
)

// UnitManager is the D-Bus side of a reload. *systemdmanager.Manager
// implements it.
type UnitManager interface {
	ReloadWithResult(ctx context.Context) systemdmanager.OperationResult
	TryRestartWithResult(ctx context.Context, unitName string) systemdmanager.OperationResult
}

// Systemd reruns the generators through a daemon reload and restarts the
// cron target so new timers get started. When the manager is nil or fails,
// systemctl is used instead.
type Systemd struct {
	Manager  UnitManager
	Fallback systemd.Client
	Target   string
	Log      logx.Logger
}

func (s *Systemd) Reload(ctx context.Context) error {
	if s.Manager != nil {
		err := s.viaManager(ctx)
		if err == nil {
			return nil
		}
		s.Log.Warn("bus reload failed; falling back to systemctl", logx.Err(err))
	}
	if err := s.Fallback.DaemonReload(ctx); err != nil {
		return err
	}
	if s.Target == "" {
		return nil
	}
	return s.Fallback.TryRestart(ctx, s.Target)
}

func (s *Systemd) viaManager(ctx context.Context) error {
	res := s.Manager.ReloadWithResult(ctx)
	s.Log.Debug(res.Message)
	if !res.Success {
		return res.Error
	}
	if s.Target == "" {
		return nil
	}
	res = s.Manager.TryRestartWithResult(ctx, s.Target)
	s.Log.Debug(res.Message)
	if !res.Success {
		if res.Error == nil {
			return errors.New(res.Message)
		}
		return res.Error
	}
	return nil
}
