// Package unitfile renders jobs as systemd timer and service units and
// writes them into a generator output directory.
package unitfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/unit"

	"crongen/internal/job"
	"crongen/internal/schedule"
)

const (
	documentation = "man:systemd-crontab-generator(8)"
	// Target groups every generated timer.
	Target = "cron.target"
)

// Settings are the host-wide inputs of unit rendering.
type Settings struct {
	// StateDir holds per-user crontabs; their jobs need user sessions.
	StateDir string
	// BootDelay is the boot-delay helper run before delayed jobs.
	BootDelay string
	// LogLevelMax is copied to services unless empty or "no".
	LogLevelMax string
	// RandomizedDelay selects RandomizedDelaySec= over AccuracySec=.
	RandomizedDelay bool
	// HasMTA enables OnFailure=/OnSuccess= mail hooks.
	HasMTA bool
	// Uptime, when known, skips boot delays that already elapsed.
	Uptime      time.Duration
	UptimeKnown bool
}

// Unit is one job ready for rendering.
type Unit struct {
	Name     string
	Job      *job.Job
	Schedule schedule.Expression
	// ExecStart is the service command line, see Plan.
	ExecStart string
}

// Timer renders the .timer unit.
func Timer(u Unit, s Settings) []*unit.UnitOption {
	j := u.Job
	opts := header("Timer", j)
	opts = append(opts, unit.NewUnitOption("Unit", "PartOf", Target))
	if j.TestGuard != "" {
		opts = append(opts, unit.NewUnitOption("Unit", "ConditionFileIsExecutable", j.TestGuard))
	}

	if u.Schedule.Kind == schedule.Boot {
		opts = append(opts, unit.NewUnitOption("Timer", "OnBootSec", fmt.Sprintf("%dm", u.Schedule.BootDelay)))
	} else {
		cal := u.Schedule.Value
		if j.Timezone != "" {
			cal += " " + j.Timezone
		}
		opts = append(opts, unit.NewUnitOption("Timer", "OnCalendar", cal))
	}
	if j.RandomDelay > 1 {
		name := "AccuracySec"
		if s.RandomizedDelay {
			name = "RandomizedDelaySec"
		}
		opts = append(opts, unit.NewUnitOption("Timer", name, fmt.Sprintf("%dm", j.RandomDelay)))
	}
	if u.Schedule.Persistent {
		opts = append(opts, unit.NewUnitOption("Timer", "Persistent", "true"))
	}
	return opts
}

// Service renders the .service unit.
func Service(u Unit, s Settings) []*unit.UnitOption {
	j := u.Job
	opts := header("Cron", j)

	if !j.MailDisabled() && s.HasMTA {
		opts = append(opts, mailHook("Failure", false, j.MailFormat))
		switch j.MailSuccess {
		case job.MailSuccessAlways:
			opts = append(opts, mailHook("Success", false, j.MailFormat))
		case job.MailSuccessNonEmpty:
			opts = append(opts, mailHook("Success", true, j.MailFormat))
		}
	}
	if j.User != "root" || (s.StateDir != "" && strings.Contains(j.Filename, s.StateDir)) {
		opts = append(opts, unit.NewUnitOption("Unit", "Requires", "systemd-user-sessions.service"))
		if j.Home != "" {
			opts = append(opts, unit.NewUnitOption("Unit", "RequiresMountsFor", j.Home))
		}
	}

	svc := func(name, value string) {
		opts = append(opts, unit.NewUnitOption("Service", name, value))
	}
	svc("User", j.User)
	svc("Type", "oneshot")
	svc("IgnoreSIGPIPE", "false")
	svc("SyslogFacility", "cron")
	svc("KillMode", "process")
	if s.LogLevelMax != "" && s.LogLevelMax != "no" {
		svc("LogLevelMax", s.LogLevelMax)
	}
	if d := u.Schedule.BootDelay; u.Schedule.Value != "" && d > 0 && s.BootDelay != "" {
		if !s.UptimeKnown || time.Duration(d)*time.Minute > s.Uptime {
			svc("ExecStartPre", fmt.Sprintf("-%s %d", s.BootDelay, d))
		}
	}
	svc("ExecStart", u.ExecStart)
	if j.Env.Len() > 0 {
		svc("Environment", EnvironmentString(j.Env))
	}
	if j.StandardOutput != "" {
		svc("StandardOutput", j.StandardOutput)
	}
	if j.Batch {
		svc("CPUSchedulingPolicy", "idle")
		svc("IOSchedulingClass", "idle")
	}
	return opts
}

func header(kind string, j *job.Job) []*unit.UnitOption {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", Description(kind, j.Line)),
		unit.NewUnitOption("Unit", "Documentation", documentation),
	}
	if j.Filename != "-" {
		opts = append(opts, unit.NewUnitOption("Unit", "SourcePath", j.Filename))
	}
	return opts
}

// Description is "[kind] "line"" with % escaped. Paths are left unquoted.
func Description(kind, line string) string {
	line = strings.ReplaceAll(line, "%", "%%")
	if strings.HasPrefix(line, "/") {
		return "[" + kind + "] " + line
	}
	return "[" + kind + "] \"" + line + "\""
}

func mailHook(on string, nonempty bool, format job.MailFormat) *unit.UnitOption {
	v := "cron-mail@%n:" + on
	if nonempty {
		v += ":nonempty"
	}
	if format == job.MailFormatNoMetadata {
		v += ":nometadata"
	}
	return unit.NewUnitOption("Unit", "On"+on, v+".service")
}

// EnvironmentString renders assignments for Environment=, quoting those
// whose value contains a space.
func EnvironmentString(env job.Env) string {
	var parts []string
	for k, v := range env.All() {
		kv := k + "=" + v
		if strings.Contains(v, " ") {
			kv = `"` + kv + `"`
		}
		parts = append(parts, kv)
	}
	return strings.Join(parts, " ")
}

// Plan decides how a service starts its job. A single-token command that
// names a regular file runs directly. Anything else goes through a
// scriptlet in dir run by the job's shell; script is its content.
func Plan(j *job.Job, name, dir string, isRegular func(string) bool) (execStart, scriptlet, script string) {
	if len(j.Command) == 1 && isRegular(j.Command[0]) {
		return j.Command[0], "", ""
	}
	scriptlet = dir + "/" + name + ".sh"
	return j.Shell + " " + scriptlet, scriptlet, JoinCommand(j.Command) + "\n"
}

// JoinCommand joins the non-empty command tokens with single spaces.
func JoinCommand(command []string) string {
	parts := make([]string, 0, len(command))
	for _, c := range command {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
