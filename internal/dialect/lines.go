package dialect

import (
	"bytes"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

var assignmentRE = regexp.MustCompile(`^([A-Za-z_0-9]+)\s*=\s*(.*)$`)

// Lines yields the meaningful lines of a crontab: trimmed, with blank and
// comment lines dropped, runs of spaces collapsed and invalid UTF-8 repaired.
func Lines(data []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(data) > 0 {
			raw := data
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				raw, data = data[:i], data[i+1:]
			} else {
				data = nil
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] == '#' {
				continue
			}
			line := cleanLine(raw)
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func cleanLine(raw []byte) string {
	if !utf8.Valid(raw) {
		// usually garbage in a trailing comment
		if i := bytes.IndexByte(raw, '#'); i >= 0 && utf8.Valid(raw[:i]) {
			raw = bytes.TrimSpace(raw[:i])
		} else {
			raw = bytes.ToValidUTF8(raw, []byte("�"))
		}
	}
	line := string(raw)
	for strings.Contains(line, "  ") {
		line = strings.ReplaceAll(line, "  ", " ")
	}
	return line
}

// ParseAssignment recognizes a "KEY = value" line. Surrounding quotes and
// spaces are stripped from the value.
func ParseAssignment(line string) (key, value string, ok bool) {
	m := assignmentRE.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	value = strings.TrimSpace(m[2])
	for _, cut := range []string{"'", `"`, " "} {
		value = strings.Trim(value, cut)
	}
	return m[1], value, true
}
