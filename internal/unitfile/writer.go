package unitfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/unit"
)

// Writer emits units into a generator output directory.
type Writer struct {
	Dir string
	Settings
	// IsRegular reports whether a path is a regular file. Used to run
	// single-token commands without a scriptlet.
	IsRegular func(string) bool
}

// WantsDir is the directory that enables generated timers.
func (w *Writer) WantsDir() string { return filepath.Join(w.Dir, Target+".wants") }

// Prepare creates the wants directory.
func (w *Writer) Prepare() error {
	if err := os.MkdirAll(w.WantsDir(), 0o755); err != nil {
		return fmt.Errorf("making %s: %w", w.WantsDir(), err)
	}
	return nil
}

// Write emits the scriptlet (when needed), the timer, its enablement link
// and the service of u. u.ExecStart is filled in.
func (w *Writer) Write(u *Unit) error {
	execStart, scriptlet, script := Plan(u.Job, u.Name, w.Dir, w.IsRegular)
	u.ExecStart = execStart
	if scriptlet != "" {
		if err := os.WriteFile(scriptlet, []byte(script), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", scriptlet, err)
		}
	}

	timer := filepath.Join(w.Dir, u.Name+".timer")
	if err := writeUnit(timer, Timer(*u, w.Settings)); err != nil {
		return err
	}
	if err := link(timer, filepath.Join(w.WantsDir(), u.Name+".timer")); err != nil {
		return err
	}
	return writeUnit(filepath.Join(w.Dir, u.Name+".service"), Service(*u, w.Settings))
}

// AfterVarService is written when the crontab spool is not mounted yet; it
// reruns the generators once it is.
const AfterVarService = "cron-after-var.service"

// WriteAfterVar emits AfterVarService and enables it for multi-user.target.
func (w *Writer) WriteAfterVar() error {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Rerun systemd-crontab-generator because /var is a separate mount"),
		unit.NewUnitOption("Unit", "Documentation", "man:systemd.cron(7)"),
		unit.NewUnitOption("Unit", "After", Target),
		unit.NewUnitOption("Unit", "ConditionDirectoryNotEmpty", w.StateDir),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "ExecStart", `/bin/sh -c "systemctl daemon-reload ; systemctl try-restart `+Target+`"`),
	}
	service := filepath.Join(w.Dir, AfterVarService)
	if err := writeUnit(service, opts); err != nil {
		return err
	}
	wants := filepath.Join(w.Dir, "multi-user.target.wants")
	if err := os.MkdirAll(wants, 0o755); err != nil {
		return fmt.Errorf("making %s: %w", wants, err)
	}
	return link(service, filepath.Join(wants, AfterVarService))
}

// Render serializes unit options.
func Render(opts []*unit.UnitOption) ([]byte, error) {
	return io.ReadAll(unit.Serialize(opts))
}

func writeUnit(path string, opts []*unit.UnitOption) error {
	b, err := Render(opts)
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func link(target, name string) error {
	if err := os.Symlink(target, name); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("link %s: %w", name, err)
	}
	return nil
}
