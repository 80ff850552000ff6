package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"

	"crongen/pkg/logx"
)

const (
	// DefaultPath is the optional configuration file.
	DefaultPath = "/etc/systemd-cron/generator.yaml"
	// DefaultEnvFile carries distro overrides as KEY=value lines.
	DefaultEnvFile = "/etc/default/systemd-cron"
	// EnvPrefix starts every environment override.
	EnvPrefix = "SYSTEMD_CRON_"
)

// Loader builds a Config from defaults, the configuration file, the
// distro env file and the process environment, in that order.
type Loader struct {
	Path    string
	EnvFile string
	// Environ is os.Environ() outside tests.
	Environ func() []string
}

func NewLoader(path string) *Loader {
	return &Loader{Path: path, EnvFile: DefaultEnvFile, Environ: os.Environ}
}

// Load returns the validated configuration. Missing files are not errors.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	if err := l.parseFile(cfg); err != nil {
		return nil, err
	}
	if err := l.overlay(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) parseFile(cfg *Config) error {
	if l.Path == "" {
		return nil
	}
	b, err := os.ReadFile(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	jb, err := toJSON(l.Path, b)
	if err != nil {
		return fmt.Errorf("%s: %w", l.Path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%s: %w", l.Path, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("%s: trailing data", l.Path)
		}
		return fmt.Errorf("%s: %w", l.Path, err)
	}
	return nil
}

// overlay applies SYSTEMD_CRON_* variables. The process environment wins
// over the env file.
func (l *Loader) overlay(cfg *Config) error {
	vars := map[string]string{}
	if l.EnvFile != "" {
		fileVars, err := godotenv.Read(l.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", l.EnvFile, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	if l.Environ != nil {
		for _, kv := range l.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				vars[k] = v
			}
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: vars}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// toJSON converts YAML config to JSON bytes so both formats go through the
// strict JSON decoder.
func toJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if v == nil {
		// empty document
		return []byte("{}"), nil
	}
	j, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// stringKeys rewrites non-string map keys so the value can be JSON-marshaled.
func stringKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringKeys(x[i])
		}
		return x
	default:
		return in
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Paths.Root != "" && !filepath.IsAbs(c.Paths.Root) {
		errs = append(errs, fmt.Errorf("paths.root: %q is not absolute", c.Paths.Root))
	}
	for _, f := range []struct{ name, path string }{
		{"paths.crontab", c.Paths.Crontab},
		{"paths.cron_d", c.Paths.CronD},
		{"paths.anacrontab", c.Paths.Anacrontab},
		{"paths.runparts_base", c.Paths.RunPartsBase},
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.reboot_marker", c.Paths.RebootMarker},
		{"paths.distro_unit_dir", c.Paths.DistroUnitDir},
		{"paths.libexec_dir", c.Paths.LibexecDir},
		{"paths.zoneinfo", c.Paths.Zoneinfo},
	} {
		if !filepath.IsAbs(f.path) {
			errs = append(errs, fmt.Errorf("%s: %q is not absolute", f.name, f.path))
		}
	}
	for i, p := range c.Paths.UnitDirs {
		if !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("paths.unit_dirs[%d]: %q is not absolute", i, p))
		}
	}
	if c.Generator.BootDelayStep < 0 {
		errs = append(errs, fmt.Errorf("generator.boot_delay_step: must be >= 0"))
	}
	if _, ok := logx.ParseLevel(c.Logging.Level); !ok {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.Kmsg.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("logging.kmsg.rate_per_sec: must be >= 0"))
	}
	if _, _, err := c.WatchTimings(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Watch.RestartTarget) == "" {
		errs = append(errs, fmt.Errorf("watch.restart_target: required"))
	}
	return errors.Join(errs...)
}

// Path joins p under Paths.Root.
func (c *Config) Path(p string) string {
	if c.Paths.Root == "" {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}
