package job

import (
	"strings"
)

// PosixShells are the shells whose command-line idioms Refine rewrites.
var PosixShells = []string{"/bin/sh", "/bin/dash", "/bin/ksh", "/bin/bash", "/usr/bin/zsh"}

var periodAliases = map[string]string{
	"boot":         "reboot",
	"1":            "daily",
	"7":            "weekly",
	"30":           "monthly",
	"31":           "monthly",
	"365":          "yearly",
	"annually":     "yearly",
	"anually":      "yearly",
	"biannually":   "semi-annually",
	"bi-annually":  "semi-annually",
	"semiannually": "semi-annually",
}

// NormalizePeriod lower-cases a period, strips leading '@' and maps legacy
// synonyms to their canonical name. Unknown names are returned lower-cased.
func NormalizePeriod(p string) string {
	p = strings.ToLower(strings.TrimLeft(p, "@"))
	if canon, ok := periodAliases[p]; ok {
		return canon
	}
	return p
}

// RefineOptions injects host lookups into Refine.
type RefineOptions struct {
	// HomeDir resolves a user's home directory. Nil leaves Home untouched.
	HomeDir func(user string) (string, bool)
}

// Refine validates a decoded job and normalizes it in place:
// the symbolic period is alias-normalized, shell idioms are rewritten for
// POSIX shells, and the job id is reduced to [A-Za-z0-9_-].
//
// Refine never resurrects a job that a decoder already invalidated.
func (j *Job) Refine(opts RefineOptions) {
	j.JobID = SanitizeID(j.JobID)

	if len(j.Command) == 0 {
		j.Invalidate(ErrEmptyCommand)
		return
	}

	if name, ok := j.Symbolic(); ok {
		j.Period = Symbolic{Name: NormalizePeriod(name)}
	}

	if j.Home == "" && opts.HomeDir != nil {
		if home, ok := opts.HomeDir(j.User); ok {
			j.Home = home
		}
	}

	if isPosixShell(j.Shell) {
		j.rewriteShellIdioms()
	}
}

// SanitizeID drops every character outside [A-Za-z0-9_-]. Distinct inputs may
// collapse to the same id; that is accepted.
func SanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isPosixShell(shell string) bool {
	for _, s := range PosixShells {
		if s == shell {
			return true
		}
	}
	return false
}

func (j *Job) rewriteShellIdioms() {
	if j.Home != "" {
		if strings.HasPrefix(j.Command[0], "~/") {
			j.Command[0] = j.Home + j.Command[0][1:]
		}
		if path, ok := j.Env.Get("PATH"); ok {
			parts := strings.Split(path, ":")
			changed := false
			for i, p := range parts {
				if strings.HasPrefix(p, "~/") {
					parts[i] = j.Home + p[1:]
					changed = true
				}
			}
			if changed {
				j.Env = j.Env.Set("PATH", strings.Join(parts, ":"))
			}
		}
	}

	cmd := j.Command
	if n := len(cmd); n >= 3 && cmd[n-2] == ">" && cmd[n-1] == "/dev/null" {
		cmd = cmd[:n-2]
		j.StandardOutput = "/dev/null"
	}
	if n := len(cmd); n >= 2 && cmd[n-1] == ">/dev/null" {
		cmd = cmd[:n-1]
		j.StandardOutput = "/dev/null"
	}

	// [ -x FILE ] && FILE ...
	if len(cmd) >= 6 && cmd[0] == "[" && isTestFlag(cmd[1]) && cmd[3] == "]" && cmd[4] == "&&" && cmd[2] == cmd[5] {
		j.TestGuard = cmd[2]
		cmd = cmd[5:]
	}
	// test -x FILE && FILE ...
	if len(cmd) >= 5 && cmd[0] == "test" && isTestFlag(cmd[1]) && cmd[3] == "&&" && cmd[2] == cmd[4] {
		j.TestGuard = cmd[2]
		cmd = cmd[4:]
	}
	j.Command = cmd
}

func isTestFlag(s string) bool { return s == "-x" || s == "-f" || s == "-e" }

// DefersToSystemd reports whether the command is the Debian idiom
// "[ -d /run/systemd/system ] || ..." (or its test form), which already
// skips itself on systemd hosts.
func (j *Job) DefersToSystemd() bool {
	cmd := j.Command
	if len(cmd) >= 6 && cmd[0] == "[" && (cmd[1] == "-d" || cmd[1] == "-e") &&
		cmd[2] == "/run/systemd/system" && cmd[3] == "]" && cmd[4] == "||" {
		return true
	}
	return len(cmd) >= 5 && cmd[0] == "test" && (cmd[1] == "-d" || cmd[1] == "-e") &&
		cmd[2] == "/run/systemd/system" && cmd[3] == "||"
}
