// Package host answers the questions the generator asks about the machine
// it runs on: installed programs, accounts, time zones and uptime.
package host

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultPath is searched when PATH is unset.
const DefaultPath = "/usr/bin:/bin"

// Which returns the first executable named exe in the colon-separated
// search path. An empty path means $PATH, or DefaultPath.
func Which(exe, path string) (string, bool) {
	if path == "" {
		path = os.Getenv("PATH")
	}
	if path == "" {
		path = DefaultPath
	}
	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			continue
		}
		abs := filepath.Join(dir, exe)
		if unix.Access(abs, unix.X_OK) == nil {
			return abs, true
		}
	}
	return "", false
}

// HasSendmail reports whether a mail transfer agent is installed: $SENDMAIL
// when set and executable, else sendmail in $PATH or the usual sbin dirs.
func HasSendmail() bool {
	if s := os.Getenv("SENDMAIL"); s != "" && unix.Access(s, unix.X_OK) == nil {
		return true
	}
	if _, ok := Which("sendmail", ""); ok {
		return true
	}
	_, ok := Which("sendmail", "/usr/sbin:/usr/lib")
	return ok
}

// IsRegular reports whether path names a regular file, following links.
func IsRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// LoginUser is the name of the invoking user.
func LoginUser() string {
	for _, k := range []string{"LOGNAME", "USER"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "root"
}

// Accounts resolves users through the passwd database and remembers the
// answers for the lifetime of the value.
type Accounts struct {
	mu    sync.Mutex
	homes map[string]string
	miss  map[string]bool

	// lookup is user.Lookup outside tests.
	lookup func(name string) (*user.User, error)
}

func NewAccounts() *Accounts {
	return &Accounts{lookup: user.Lookup}
}

// HomeDir returns the home directory of name.
func (a *Accounts) HomeDir(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if home, ok := a.homes[name]; ok {
		return home, true
	}
	if a.miss[name] {
		return "", false
	}
	u, err := a.lookup(name)
	if err != nil {
		if a.miss == nil {
			a.miss = make(map[string]bool)
		}
		a.miss[name] = true
		return "", false
	}
	if a.homes == nil {
		a.homes = make(map[string]string)
	}
	a.homes[name] = u.HomeDir
	return u.HomeDir, true
}

// Exists reports whether name is a known account.
func (a *Accounts) Exists(name string) bool {
	_, ok := a.HomeDir(name)
	return ok
}

// Zones checks time zone names against a zoneinfo directory.
type Zones struct {
	Dir string
}

func (z Zones) Exists(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	_, err := os.Stat(filepath.Join(z.Dir, name))
	return err == nil
}
