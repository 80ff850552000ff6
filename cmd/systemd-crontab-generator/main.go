// systemd-crontab-generator turns crontabs, anacrontab and the
// /etc/cron.<period> directories into systemd timers.
//
// Run by systemd as a generator it receives the three generator output
// directories and writes into the first. It also lints a crontab
// (--check) and previews the units of a single line (--translate).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"crongen/internal/config"
	"crongen/internal/generator"
	"crongen/pkg/logx"
)

const ident = "systemd-crontab-generator"

// exitCode ends the process with a status but no extra message; the
// reason has been logged already.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitCode) ExitCode() int { return int(e) }

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", ident, err)
		os.Exit(1)
	}
}

type options struct {
	cfgPath   string
	checkPath string
	translate string
	logLevel  string
	help      bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	flags := pflag.NewFlagSet(ident, pflag.ContinueOnError)
	flags.StringVar(&o.cfgPath, "config", config.DefaultPath, "path to the generator config (yaml or json)")
	flags.StringVar(&o.checkPath, "check", "", "validate a crontab file (- or no value for stdin) and exit")
	flags.Lookup("check").NoOptDefVal = "-"
	flags.StringVar(&o.translate, "translate", "", "print the timer and service of one crontab line and exit")
	flags.StringVar(&o.logLevel, "log-level", "", "override logging.level")
	flags.BoolVarP(&o.help, "help", "h", false, "show help")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s NORMAL_DIR [EARLY_DIR LATE_DIR]\n", ident)
		fmt.Fprintf(os.Stderr, "       %s --check [FILE]\n", ident)
		fmt.Fprintf(os.Stderr, "       %s --translate LINE\n\n", ident)
		flags.PrintDefaults()
	}
	return flags
}

// parseArgs parses argv without the program name.
func parseArgs(flags *pflag.FlagSet, o *options, argv []string) ([]string, error) {
	if err := flags.Parse(argv); err != nil {
		return nil, err
	}
	args := flags.Args()
	// "--check FILE": a bare --check reads stdin, so the file lands in args
	if flags.Changed("check") && o.checkPath == "-" && len(args) == 1 {
		o.checkPath, args = args[0], nil
	}
	return args, nil
}

func run() error {
	var o options
	flags := newFlagSet(&o)
	args, err := parseArgs(flags, &o, os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return exitCode(2)
	}
	if o.help {
		flags.Usage()
		return nil
	}

	cfg, cfgErr := config.NewLoader(o.cfgPath).Load()
	if cfgErr != nil {
		// a broken config must not drop every cron job; carry on with defaults
		cfg = config.Default()
	}
	if o.logLevel != "" {
		if _, ok := logx.ParseLevel(o.logLevel); !ok {
			return fmt.Errorf("invalid --log-level %q", o.logLevel)
		}
		cfg.Logging.Level = o.logLevel
	}

	// systemd passes the normal, early and late output directories
	bySystemd := len(args) == 3
	lc := cfg.Logging.Logx(ident)
	if bySystemd {
		lc.Kmsg.Enabled = true
	}
	svc, log := logx.New(lc)
	defer svc.Close()
	if cfgErr != nil {
		log.Error("cannot load config; using defaults", logx.String("path", o.cfgPath), logx.Err(cfgErr))
	}

	switch {
	case o.checkPath != "":
		return checkFile(o.checkPath, log)
	case o.translate != "":
		return translateLine(o.translate, cfg, log)
	}

	if len(args) != 1 && len(args) != 3 {
		flags.Usage()
		return exitCode(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g := generator.New(cfg, args[0], generator.DetectHost(bySystemd), log)
	if _, err := g.Run(ctx); err != nil {
		log.Error("generation failed", logx.String("dir", args[0]), logx.Err(err))
		return exitCode(1)
	}
	return nil
}
