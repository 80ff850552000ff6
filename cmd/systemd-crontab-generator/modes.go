package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"crongen/internal/config"
	"crongen/internal/dialect"
	"crongen/internal/generator"
	"crongen/internal/host"
	"crongen/internal/job"
	"crongen/internal/unitfile"
	"crongen/pkg/logx"
)

func checkFile(path string, log logx.Logger) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		log.Error("cannot read crontab", logx.String("file", path), logx.Err(err))
		return exitCode(1)
	}

	fatal := false
	for _, f := range generator.Check(path, data) {
		if f.Fatal {
			fatal = true
			log.Error(f.Err.Error(), logx.String("file", path), logx.String("line", f.Line))
			continue
		}
		log.Warn(f.Err.Error(), logx.String("file", path), logx.String("line", f.Line))
	}
	if fatal {
		return exitCode(1)
	}
	return nil
}

func translateLine(line string, cfg *config.Config, log logx.Logger) error {
	accounts := host.NewAccounts()
	hasMTA := host.HasSendmail()
	zones := host.Zones{Dir: cfg.Path(cfg.Paths.Zoneinfo)}
	opts := dialect.TranslateOptions{
		Defaults:   job.EnvDefaults{HasMTA: hasMTA, ZoneExists: zones.Exists},
		Refine:     job.RefineOptions{HomeDir: accounts.HomeDir},
		UserExists: accounts.Exists,
		LoginUser:  host.LoginUser(),
	}
	settings := unitfile.Settings{
		StateDir:        cfg.Paths.StateDir,
		BootDelay:       filepath.Join(cfg.Paths.LibexecDir, "boot_delay"),
		LogLevelMax:     cfg.Generator.LogLevelMax,
		RandomizedDelay: cfg.Generator.RandomizedDelay,
		HasMTA:          hasMTA,
	}

	t, err := generator.Translate(line, opts, settings, time.Now())
	for _, w := range t.Job.Warnings {
		log.Warn(w.Error(), logx.String("line", line))
	}
	if t.Timer != nil {
		timerOut, serviceOut := outputs()
		_, _ = timerOut.Write(t.Timer)
		_, _ = serviceOut.Write(t.Service)
	}
	if err != nil {
		log.Error("invalid crontab line", logx.String("line", line), logx.Err(err))
		return exitCode(1)
	}
	if !t.Next.IsZero() {
		log.Info("next elapse", logx.String("at", t.Next.Format(time.RFC3339)))
	}
	return nil
}

// outputs returns fd 3 for the timer and fd 4 for the service when the
// caller opened them, stdout otherwise.
func outputs() (timer, service io.Writer) {
	timer, service = os.Stdout, os.Stdout
	if f := openFD(3, "timer"); f != nil {
		timer = f
	}
	if f := openFD(4, "service"); f != nil {
		service = f
	}
	return timer, service
}

func openFD(fd uintptr, name string) *os.File {
	f := os.NewFile(fd, name)
	if f == nil {
		return nil
	}
	if _, err := f.Stat(); err != nil {
		return nil
	}
	return f
}
