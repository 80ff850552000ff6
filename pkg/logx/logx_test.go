package logx

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").With(String("file", "/etc/crontab"))
	log.Warn("invalid line", Int("line", 3), Err(errors.New("truncated line")), Err(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "warn", rec["level"])
	require.Equal(t, "invalid line", rec["message"])
	require.Equal(t, "/etc/crontab", rec["file"])
	require.EqualValues(t, 3, rec["line"])
	require.Equal(t, "truncated line", rec["err"])
	require.True(t, strings.HasPrefix(rec["caller"].(string), "logx_test.go:"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")
	log.Info("dropped")
	require.Zero(t, buf.Len())
	require.False(t, log.Enabled(LevelInfo))
	require.True(t, log.Enabled(LevelError))

	var zero Logger
	require.False(t, zero.Enabled(LevelError))
	zero.Error("no-op")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("Warning")
	require.True(t, ok)
	require.Equal(t, LevelWarn, l)
	_, ok = ParseLevel("loud")
	require.False(t, ok)
}

func TestKmsgSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmsg")
	svc, log := New(Config{
		Level: "debug",
		Kmsg:  KmsgConfig{Enabled: true, Path: path, Ident: "systemd-crontab-generator", MinLevel: "info", RatePerSec: 100},
	})
	log.Debug("below min level")
	log.Error("ignoring /etc/cron.d/foo", String("reason", "masked"))
	log.Info("generated", Int("units", 4))
	require.NoError(t, svc.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	pid := strconv.Itoa(os.Getpid())
	require.Equal(t,
		"<3>systemd-crontab-generator["+pid+"]: ignoring /etc/cron.d/foo reason=masked\n"+
			"<6>systemd-crontab-generator["+pid+"]: generated units=4\n",
		string(b))
}

func TestKmsgRateLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmsg")
	svc, log := New(Config{Kmsg: KmsgConfig{Enabled: true, Path: path, Ident: "x", RatePerSec: 2}})
	for range 10 {
		log.Info("burst")
	}
	require.NoError(t, svc.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(b), "burst"))
}

func TestKmsgPriority(t *testing.T) {
	tests := map[zerolog.Level]int{
		zerolog.PanicLevel: 2,
		zerolog.ErrorLevel: 3,
		zerolog.WarnLevel:  4,
		zerolog.InfoLevel:  6,
		zerolog.DebugLevel: 7,
	}
	for level, want := range tests {
		require.Equal(t, want, kmsgPriority(level), level.String())
	}
}

func TestKmsgText(t *testing.T) {
	require.Equal(t, "plain text", kmsgText([]byte("  plain text\n")))
	require.Equal(t, "a b", kmsgText([]byte(`{"message":"a\nb"}`)))
}
