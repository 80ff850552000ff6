package generator

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"crongen/internal/cronspec"
	"crongen/internal/dialect"
	"crongen/internal/schedule"
	"crongen/internal/unitfile"
)

func TestCheck(t *testing.T) {
	t.Parallel()
	data := []byte(`SHELL=/bin/sh
@daily echo ok
*/5 * * * * echo ok
@fortnightly echo nope
@3 echo numeric
0 1 * *
61 * * * * echo garbled
0 0 * january * echo long month name
0 0 * * 7 echo sunday as seven
`)
	findings := Check("/tmp/crontab.new", data)

	type result struct {
		line  string
		fatal bool
	}
	var got []result
	for _, f := range findings {
		got = append(got, result{f.Line, f.Fatal})
	}
	require.Equal(t, []result{
		{"@fortnightly echo nope", true},
		{"@3 echo numeric", true},
		{"0 1 * *", true},
		{"61 * * * * echo garbled", true},
		{"0 0 * january * echo long month name", false},
		{"0 0 * * 7 echo sunday as seven", false},
	}, got)

	require.True(t, errors.Is(findings[0].Err, schedule.ErrUnknownSchedule))
	require.True(t, errors.Is(findings[2].Err, dialect.ErrTruncated))
	require.True(t, errors.Is(findings[3].Err, cronspec.ErrGarbled))
	require.True(t, errors.Is(findings[4].Err, errNotPortable))
}

func TestCheckCleanFile(t *testing.T) {
	t.Parallel()
	require.Empty(t, Check("-", []byte("# nothing\n@reboot echo up\n30 4 * * mon-fri echo weekday\n"+
		"@1 echo daily\n@7 echo weekly\n@30 echo monthly\n@31 echo monthly\n@365 echo yearly\n")))
}

func TestNextElapse(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 16, 12, 34, 0, 0, time.UTC)

	next, err := NextElapse("5 6 * * * user true", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 17, 6, 5, 0, 0, time.UTC), next)

	next, err = NextElapse("@daily true", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), next)

	_, err = NextElapse("@reboot true", now)
	require.Error(t, err)
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	opts := dialect.TranslateOptions{
		UserExists: func(name string) bool { return name == "backup" },
		LoginUser:  "me",
	}
	now := time.Date(2026, 10, 16, 12, 34, 0, 0, time.UTC)

	tr, err := Translate("15 3 * * * backup /usr/bin/backup --all", opts, unitfile.Settings{}, now)
	require.NoError(t, err)
	require.Equal(t, "backup", tr.Job.User)
	require.Equal(t, "[Unit]\n"+
		"Description=[Timer] \"15 3 * * * backup /usr/bin/backup --all\"\n"+
		"Documentation=man:systemd-crontab-generator(8)\n"+
		"PartOf=cron.target\n"+
		"\n"+
		"[Timer]\n"+
		"OnCalendar=*-*-* 3:15:00\n"+
		"#Persistent=true\n", string(tr.Timer))
	require.Contains(t, string(tr.Service), "ExecStart=/usr/bin/backup --all\n")
	require.Contains(t, string(tr.Service), "User=backup\n")
	require.Equal(t, time.Date(2026, 10, 17, 3, 15, 0, 0, time.UTC), tr.Next)

	tr, err = Translate("@reboot echo hi", opts, unitfile.Settings{}, now)
	require.NoError(t, err)
	require.Equal(t, "me", tr.Job.User)
	require.Contains(t, string(tr.Timer), "OnBootSec=1m\n")
	require.True(t, tr.Next.IsZero())

	tr, err = Translate("0 1 * *", opts, unitfile.Settings{}, now)
	require.True(t, errors.Is(err, dialect.ErrTruncated))
	require.NotEmpty(t, tr.Timer)
}
