package generator

import (
	"os"
	"path/filepath"
	"strings"

	"crongen/pkg/logx"
)

// list returns the names of the regular files in dir, sorted.
func (g *Generator) list(dir string) []string {
	entries, err := os.ReadDir(g.cfg.Path(dir))
	if err != nil {
		if !os.IsNotExist(err) {
			g.log.Error("cannot list directory", logx.String("dir", dir), logx.Err(err))
		}
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// follows symlinks; fifos, sockets and directories are never jobs
		fi, err := os.Stat(filepath.Join(g.cfg.Path(dir), e.Name()))
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// masked reports whether a native timer replaces dir/name. An empty timer
// file is a mask.
func (g *Generator) masked(dir, name string, distro map[string]string) bool {
	for _, unitDir := range g.cfg.Paths.UnitDirs {
		timer := g.cfg.Path(filepath.Join(unitDir, name+".timer"))
		fi, err := os.Stat(timer)
		if err != nil {
			continue
		}
		reason := "native timer is present"
		if fi.Size() == 0 {
			reason = "it is masked"
		}
		g.log.Info("ignoring cron source", logx.String("file", filepath.Join(dir, name)), logx.String("reason", reason))
		return true
	}

	mapped := name
	if m, ok := distro[name]; ok {
		mapped = m
	}
	timer := mapped + ".timer"
	if _, err := os.Stat(g.cfg.Path(filepath.Join(g.cfg.Paths.DistroUnitDir, timer))); err == nil {
		g.log.Info("ignoring cron source", logx.String("file", filepath.Join(dir, name)), logx.String("reason", "there is "+timer))
		return true
	}
	return false
}

// backup reports whether name is a package manager leftover or an editor
// backup.
func (g *Generator) backup(dir, name string) bool {
	if name == ".placeholder" {
		return true
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "~") || strings.Contains(name, ".dpkg-") || name == "0anacron" {
		g.log.Debug("ignoring backup file", logx.String("file", filepath.Join(dir, name)))
		return true
	}
	return false
}
