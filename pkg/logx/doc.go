// Package logx is a thin structured logger over zerolog for the cron
// generator tools.
//
// Records go to a console writer on stderr, an optional JSON file, and an
// optional kernel log sink. The kernel sink filters by a minimum level and
// is rate limited, since a broken crontab can produce one record per line
// on every boot.
package logx
