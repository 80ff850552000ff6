// Package generator walks the cron sources of a host and writes one timer
// and one service per job into a systemd generator output directory.
package generator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crongen/internal/config"
	"crongen/internal/dialect"
	"crongen/internal/host"
	"crongen/internal/identity"
	"crongen/internal/job"
	"crongen/internal/schedule"
	"crongen/internal/unitfile"
	"crongen/pkg/logx"
)

// Host carries the machine facts the generator depends on.
type Host struct {
	HasMTA      bool
	Uptime      time.Duration
	UptimeKnown bool
	HomeDir     func(user string) (string, bool)
}

// DetectHost probes the running system. Uptime is only consulted when
// systemd itself runs the generator.
func DetectHost(bySystemd bool) Host {
	h := Host{HasMTA: host.HasSendmail(), HomeDir: host.NewAccounts().HomeDir}
	if bySystemd {
		h.Uptime, h.UptimeKnown = host.Uptime()
	}
	return h
}

// Stats summarize one run.
type Stats struct {
	Files   int
	Jobs    int
	Units   int
	Invalid int
	Skipped int
}

// Generator holds the state of one run. It is not safe for concurrent use.
type Generator struct {
	cfg    *config.Config
	host   Host
	log    logx.Logger
	writer *unitfile.Writer
	ids    identity.Assigner
	zones  host.Zones

	// gathered from /etc/crontab
	fallbackMailTo *string
	startHours     map[string]int
	mailSuccess    job.MailSuccess
	mailFormat     job.MailFormat

	stats Stats
}

// New prepares a run that writes into target.
func New(cfg *config.Config, target string, h Host, log logx.Logger) *Generator {
	g := &Generator{
		cfg:        cfg,
		host:       h,
		log:        log,
		zones:      host.Zones{Dir: cfg.Path(cfg.Paths.Zoneinfo)},
		startHours: map[string]int{},
	}
	g.writer = &unitfile.Writer{
		Dir: target,
		Settings: unitfile.Settings{
			StateDir:        cfg.Paths.StateDir,
			BootDelay:       filepath.Join(cfg.Paths.LibexecDir, "boot_delay"),
			LogLevelMax:     cfg.Generator.LogLevelMax,
			RandomizedDelay: cfg.Generator.RandomizedDelay,
			HasMTA:          h.HasMTA,
			Uptime:          h.Uptime,
			UptimeKnown:     h.UptimeKnown,
		},
		IsRegular: func(p string) bool { return host.IsRegular(cfg.Path(p)) },
	}
	return g
}

// Run walks every source. Unreadable sources and invalid lines are logged
// and skipped; only failures to write the output directory are returned.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	if err := g.writer.Prepare(); err != nil {
		return g.stats, err
	}

	steps := []func(context.Context) error{
		g.crontab,
		g.cronD,
		g.runParts,
		g.anacrontab,
		g.userCrontabs,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return g.stats, err
		}
		if err := step(ctx); err != nil {
			return g.stats, err
		}
	}
	g.log.Info("generation finished",
		logx.Int("files", g.stats.Files),
		logx.Int("jobs", g.stats.Jobs),
		logx.Int("units", g.stats.Units),
		logx.Int("invalid", g.stats.Invalid),
		logx.Int("skipped", g.stats.Skipped),
	)
	return g.stats, nil
}

func (g *Generator) options(users dialect.UserMode, monotonic bool) dialect.Options {
	return dialect.Options{
		Users:     users,
		Monotonic: monotonic,
		Defaults: job.EnvDefaults{
			MailSuccess: g.mailSuccess,
			MailFormat:  g.mailFormat,
			HasMTA:      g.host.HasMTA,
			ZoneExists:  g.zones.Exists,
		},
		Refine: job.RefineOptions{HomeDir: g.host.HomeDir},
	}
}

// read returns the contents of a source file; ok is false when there is
// nothing to decode. Paths are host paths; the configured root is applied
// here.
func (g *Generator) read(path string) ([]byte, bool) {
	b, err := os.ReadFile(g.cfg.Path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		g.log.Error("cannot read crontab", logx.String("file", path), logx.Err(err))
		return nil, false
	}
	g.stats.Files++
	return b, true
}

func (g *Generator) crontab(ctx context.Context) error {
	path := g.cfg.Paths.Crontab
	data, ok := g.read(path)
	if !ok {
		return nil
	}
	src := dialect.Text{Filename: path, Data: data, Options: g.options(dialect.UserColumn, false)}
	for j := range src.Jobs() {
		if v, ok := j.MailTo(); ok {
			g.fallbackMailTo = &v
		}
		if !j.Valid() {
			g.invalid(j)
			continue
		}
		g.mailSuccess = j.MailSuccess
		g.mailFormat = j.MailFormat

		if period, ok := g.boilerplate(j.Line); ok {
			if ts := j.Timespec(); ts != nil && !ts.Hour.Wildcard && len(ts.Hour.Values) > 0 {
				g.startHours[period] = ts.Hour.Values[0]
			}
			g.log.Debug("skipping run-parts boilerplate", logx.String("line", j.Line))
			continue
		}
		if err := g.emit(j); err != nil {
			return err
		}
	}
	return nil
}

// boilerplate recognizes the distro lines of /etc/crontab that run the
// run-parts directories. The hourly line has no start hour to keep.
func (g *Generator) boilerplate(line string) (string, bool) {
	base := g.cfg.Paths.RunPartsBase
	if strings.Contains(line, filepath.Join(base, "cron.hourly")) {
		return "hourly", true
	}
	for _, period := range []string{"daily", "weekly", "monthly"} {
		if strings.Contains(line, filepath.Join(base, "cron."+period)) {
			return period, true
		}
	}
	return "", false
}

func (g *Generator) cronD(ctx context.Context) error {
	dir := g.cfg.Paths.CronD
	for _, name := range g.list(dir) {
		if g.masked(dir, name, g.cfg.Generator.CronDToTimer) || g.backup(dir, name) {
			g.stats.Skipped++
			continue
		}
		path := filepath.Join(dir, name)
		data, ok := g.read(path)
		if !ok {
			continue
		}
		src := dialect.Text{Filename: path, Data: data, Options: g.options(dialect.UserColumn, false)}
		for j := range src.Jobs() {
			if !j.Valid() {
				g.invalid(j)
				continue
			}
			g.inheritMailTo(j)
			if err := g.emit(j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) runParts(ctx context.Context) error {
	if g.cfg.Generator.UseRunParts {
		return nil
	}
	for i, period := range dialect.RunPartsPeriods {
		dir := filepath.Join(g.cfg.Paths.RunPartsBase, "cron."+period)
		if fi, err := os.Stat(g.cfg.Path(dir)); err != nil || !fi.IsDir() {
			continue
		}
		var scripts []string
		for _, name := range g.list(dir) {
			if g.masked(dir, name, g.cfg.Generator.PartToTimer) || g.backup(dir, name) {
				g.stats.Skipped++
				continue
			}
			scripts = append(scripts, filepath.Join(dir, name))
		}
		src := dialect.RunParts{
			Period:        period,
			Index:         i + 1,
			BootDelayStep: g.cfg.Generator.BootDelayStep,
			Scripts:       scripts,
			Persistent:    g.cfg.Generator.RunPartsPersistent,
			StartHour:     g.startHours[period],
			MailSuccess:   g.mailSuccess,
			MailFormat:    g.mailFormat,
			Refine:        job.RefineOptions{HomeDir: g.host.HomeDir},
		}
		for j := range src.Jobs() {
			g.inheritMailTo(j)
			if err := g.emit(j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) anacrontab(ctx context.Context) error {
	path := g.cfg.Paths.Anacrontab
	data, ok := g.read(path)
	if !ok {
		return nil
	}
	src := dialect.Text{Filename: path, Data: data, Options: g.options(dialect.UserFromFilename, true)}
	for j := range src.Jobs() {
		if !j.Valid() {
			g.invalid(j)
			continue
		}
		if err := g.emit(j); err != nil {
			return err
		}
	}
	return nil
}

// userCrontabs reads the spool. When it is missing, /var is not mounted
// yet and a service reruns the generators once it is.
func (g *Generator) userCrontabs(ctx context.Context) error {
	dir := g.cfg.Paths.StateDir
	if fi, err := os.Stat(g.cfg.Path(dir)); err != nil || !fi.IsDir() {
		if err := g.writer.WriteAfterVar(); err != nil {
			g.log.Warn("cannot schedule generator rerun", logx.String("unit", unitfile.AfterVarService), logx.Err(err))
		}
		return nil
	}

	for _, name := range g.list(dir) {
		if strings.Contains(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		data, ok := g.read(path)
		if !ok {
			continue
		}
		src := dialect.Text{Filename: path, Data: data, Options: g.options(dialect.UserFromFilename, false)}
		for j := range src.Jobs() {
			if !j.Valid() {
				g.invalid(j)
				continue
			}
			if err := g.emit(j); err != nil {
				return err
			}
		}
	}

	marker := g.cfg.Path(g.cfg.Paths.RebootMarker)
	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		g.log.Warn("cannot create reboot marker", logx.String("file", marker), logx.Err(err))
		return nil
	}
	return f.Close()
}

func (g *Generator) inheritMailTo(j *job.Job) {
	if g.fallbackMailTo != nil && !j.Env.Has("MAILTO") {
		j.Env = j.Env.Set("MAILTO", *g.fallbackMailTo)
	}
}

func (g *Generator) invalid(j *job.Job) {
	g.stats.Invalid++
	g.log.Error("invalid line", logx.String("file", j.Filename), logx.String("line", j.Line),
		logx.String("dialect", j.Dialect.String()), logx.Err(j.Err))
}

// emit writes the units of a valid job unless it is inactive.
func (g *Generator) emit(j *job.Job) error {
	g.stats.Jobs++
	for _, w := range j.Warnings {
		g.log.Warn(w.Error(), logx.String("file", j.Filename), logx.String("line", j.Line))
	}

	e, err := schedule.Synthesize(j)
	switch {
	case errors.Is(err, schedule.ErrUnknownSchedule):
		g.log.Error("unknown schedule", logx.String("file", j.Filename), logx.String("line", j.Line), logx.Err(err))
	case err != nil:
		j.Invalidate(err)
		g.invalid(j)
		return nil
	}

	if reason, inactive := g.inactive(j, e); inactive {
		g.stats.Skipped++
		g.log.Debug("skipping job", logx.String("file", j.Filename), logx.String("line", j.Line), logx.String("reason", reason))
		return nil
	}

	u := &unitfile.Unit{Name: g.ids.Assign(j, e), Job: j, Schedule: e}
	if err := g.writer.Write(u); err != nil {
		g.log.Error("cannot write units", logx.String("unit", u.Name), logx.Err(err))
		return err
	}
	g.stats.Units++
	if g.log.Enabled(logx.LevelDebug) {
		g.log.Debug("generated", logx.String("unit", u.Name), logx.String("dialect", j.Dialect.String()),
			logx.String("schedule", e.Value), logx.Bool("persistent", e.Persistent))
	}
	return nil
}

func (g *Generator) inactive(j *job.Job, e schedule.Expression) (string, bool) {
	if e.Kind == schedule.Boot && host.Exists(g.cfg.Path(g.cfg.Paths.RebootMarker)) {
		return "system already booted", true
	}
	if j.TestGuard != "" && !host.IsRegular(g.cfg.Path(j.TestGuard)) {
		return j.TestGuard + " is missing", true
	}
	if j.DefersToSystemd() {
		return "job defers to systemd", true
	}
	return "", false
}
