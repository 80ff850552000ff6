// cron-update regenerates the cron timers whenever a crontab changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"crongen/internal/config"
	"crongen/internal/dialect"
	"crongen/internal/identity"
	"crongen/internal/watch"
	"crongen/pkg/logx"
	"crongen/pkg/systemdmanager"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cron-update: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath string
		once    bool
		status  bool
	)
	flags := pflag.NewFlagSet("cron-update", pflag.ContinueOnError)
	flags.StringVar(&cfgPath, "config", config.DefaultPath, "path to the generator config (yaml or json)")
	flags.BoolVar(&once, "once", false, "reload once and exit")
	flags.BoolVar(&status, "status", false, "list the generated timers and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.NewLoader(cfgPath).Load()
	if err != nil {
		return err
	}
	svc, log := logx.New(cfg.Logging.Logx("cron-update"))
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	target := cfg.Watch.RestartTarget
	reloader := &watch.Systemd{Target: target, Log: log}
	mgr, err := systemdmanager.NewManagerContext(ctx)
	if err != nil {
		log.Warn("system bus unavailable; using systemctl", logx.Err(err))
	} else {
		defer mgr.Close()
		reloader.Manager = mgr
	}

	if status {
		if mgr == nil {
			active, err := reloader.Fallback.IsActive(ctx, target)
			if err != nil {
				return err
			}
			fmt.Printf("%s: active=%t\n", target, active)
			return nil
		}
		return printStatus(ctx, mgr, target)
	}
	if once {
		return reloader.Reload(ctx)
	}

	debounce, minInterval, err := cfg.WatchTimings()
	if err != nil {
		return err
	}
	w := watch.New(watch.Options{
		Paths:       sources(cfg),
		Debounce:    debounce,
		MinInterval: minInterval,
	}, reloader, log)
	w.Prime()

	log.Info("watching crontabs", logx.Any("paths", sources(cfg)))
	return w.Run(ctx)
}

// sources lists every file and directory the generator reads.
func sources(cfg *config.Config) []string {
	paths := []string{cfg.Paths.Crontab, cfg.Paths.CronD, cfg.Paths.Anacrontab, cfg.Paths.StateDir}
	for _, period := range dialect.RunPartsPeriods {
		paths = append(paths, filepath.Join(cfg.Paths.RunPartsBase, "cron."+period))
	}
	for i, p := range paths {
		paths[i] = cfg.Path(p)
	}
	return paths
}

func printStatus(ctx context.Context, mgr *systemdmanager.Manager, target string) error {
	state, err := mgr.ActiveStateContext(ctx, target)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", target, state)

	timers, err := mgr.ListTimersContext(ctx, identity.Prefix+"*.timer")
	if err != nil {
		return err
	}
	for _, t := range timers {
		fmt.Printf("%-50s %-10s %-10s %s\n", t.Name, t.Active, t.SubState, t.LoadState)
	}
	return nil
}
