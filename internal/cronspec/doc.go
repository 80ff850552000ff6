// Package cronspec expands single crontab field expressions (minute, hour,
// day of month, month, day of week) into sorted sets of concrete values.
//
// Supported sub-expressions, joined by commas:
//   - "*" and "*/step"
//   - "N", "N-M" and "N-M/step"
//   - month and weekday names (case-insensitive, first three letters)
//
// A lone "*" is kept as a wildcard sentinel instead of being expanded, since
// it renders differently in calendar expressions.
package cronspec
