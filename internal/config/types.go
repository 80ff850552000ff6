package config

import (
	"crongen/pkg/logx"
)

// Config is the configuration shared by systemd-crontab-generator and
// cron-update. Every field has a default, so the file is optional.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Generator GeneratorConfig `json:"generator"`
	Logging   LoggingConfig   `json:"logging"`
	Watch     WatchConfig     `json:"watch"`
}

// PathsConfig locates the crontab sources and the host files the generator
// consults. Root prefixes every other path; it is empty on a real system.
type PathsConfig struct {
	Root         string `json:"root" env:"ROOT"`
	Crontab      string `json:"crontab"`
	CronD        string `json:"cron_d"`
	Anacrontab   string `json:"anacrontab"`
	RunPartsBase string `json:"runparts_base"` // holds cron.{hourly,daily,...}
	StateDir     string `json:"state_dir" env:"STATEDIR"`
	RebootMarker string `json:"reboot_marker"`

	// UnitDirs are searched for native timers that mask a cron source.
	UnitDirs []string `json:"unit_dirs"`
	// DistroUnitDir is searched for the distro-mapped timer names.
	DistroUnitDir string `json:"distro_unit_dir"`
	LibexecDir    string `json:"libexec_dir" env:"LIBEXECDIR"`
	Zoneinfo      string `json:"zoneinfo"`
}

type GeneratorConfig struct {
	// UseRunParts leaves /etc/cron.<period> to run-parts jobs in crontab
	// instead of generating one unit per script.
	UseRunParts        bool   `json:"use_runparts" env:"USE_RUNPARTS"`
	RunPartsPersistent bool   `json:"runparts_persistent" env:"RUNPARTS_PERSISTENT"`
	RandomizedDelay    bool   `json:"randomized_delay" env:"RANDOMIZED_DELAY"`
	LogLevelMax        string `json:"loglevelmax" env:"LOGLEVELMAX"`
	// BootDelayStep spaces the run-parts periods, in minutes.
	BootDelayStep int `json:"boot_delay_step" env:"BOOT_DELAY_STEP"`

	// PartToTimer and CronDToTimer map a script or cron.d name to the
	// native timer a distro package ships for it.
	PartToTimer  map[string]string `json:"part2timer"`
	CronDToTimer map[string]string `json:"crond2timer"`
}

type LoggingConfig struct {
	Level   string            `json:"level" env:"LOG_LEVEL"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
	Kmsg    LoggingKmsgConfig `json:"kmsg"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingKmsgConfig struct {
	// Enabled is forced on by the generator when systemd runs it.
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// WatchConfig tunes cron-update. Durations are Go duration strings.
type WatchConfig struct {
	Debounce      string `json:"debounce" env:"WATCH_DEBOUNCE"`
	MinInterval   string `json:"min_interval" env:"WATCH_MIN_INTERVAL"`
	RestartTarget string `json:"restart_target"`
}

// Default returns the configuration of a stock install.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Crontab:       "/etc/crontab",
			CronD:         "/etc/cron.d",
			Anacrontab:    "/etc/anacrontab",
			RunPartsBase:  "/etc",
			StateDir:      "/var/spool/cron/crontabs",
			RebootMarker:  "/run/crond.reboot",
			UnitDirs:      []string{"/lib/systemd/system", "/etc/systemd/system", "/run/systemd/system"},
			DistroUnitDir: "/lib/systemd/system",
			LibexecDir:    "/usr/libexec/systemd-cron",
			Zoneinfo:      "/usr/share/zoneinfo",
		},
		Generator: GeneratorConfig{
			RunPartsPersistent: true,
			RandomizedDelay:    true,
			BootDelayStep:      5,
			PartToTimer:        map[string]string{},
			CronDToTimer:       map[string]string{},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Kmsg:    LoggingKmsgConfig{Path: "/dev/kmsg", MinLevel: "info", RatePerSec: 20},
		},
		Watch: WatchConfig{
			Debounce:      "250ms",
			MinInterval:   "1s",
			RestartTarget: "cron.target",
		},
	}
}

// Logx converts the logging section for logx.New.
func (l LoggingConfig) Logx(ident string) logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Kmsg: logx.KmsgConfig{
			Enabled:    l.Kmsg.Enabled,
			Path:       l.Kmsg.Path,
			Ident:      ident,
			MinLevel:   l.Kmsg.MinLevel,
			RatePerSec: l.Kmsg.RatePerSec,
		},
	}
}
