package host

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhich(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	plain := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(plain, nil, 0o644))

	got, ok := Which("tool", "/nonexistent:"+dir)
	require.True(t, ok)
	require.Equal(t, exe, got)

	_, ok = Which("data", dir)
	require.False(t, ok)
	_, ok = Which("missing", dir)
	require.False(t, ok)
}

func TestAccountsCache(t *testing.T) {
	t.Parallel()
	calls := 0
	a := &Accounts{lookup: func(name string) (*user.User, error) {
		calls++
		if name == "alice" {
			return &user.User{Username: "alice", HomeDir: "/home/alice"}, nil
		}
		return nil, errors.New("unknown user")
	}}

	home, ok := a.HomeDir("alice")
	require.True(t, ok)
	require.Equal(t, "/home/alice", home)
	require.True(t, a.Exists("alice"))
	require.False(t, a.Exists("bob"))
	require.False(t, a.Exists("bob"))
	require.Equal(t, 2, calls)
}

func TestZones(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Europe"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Europe", "Paris"), nil, 0o644))

	z := Zones{Dir: dir}
	require.True(t, z.Exists("Europe/Paris"))
	require.False(t, z.Exists("Mars/Olympus"))
	require.False(t, z.Exists(""))
	require.False(t, z.Exists("../etc/passwd"))
}

func TestIsRegular(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	f := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	require.True(t, IsRegular(f))
	require.False(t, IsRegular(dir))
	require.True(t, Exists(dir))
	require.False(t, Exists(filepath.Join(dir, "nope")))
}
