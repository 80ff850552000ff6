package cronspec

import (
	"strconv"
	"strings"
)

// Domain describes the admissible values of one crontab field.
//
// Positions inside a domain are relative to Min, so "1-3" selects the first
// three members of a 1-based domain (days, months) and the second to fourth
// members of a 0-based one (minutes, weekdays).
type Domain struct {
	Name  string // used in diagnostics: minute, hour, day, month, dow
	Min   int
	Max   int
	Range string // admissible input, for diagnostics

	// lookup maps a token to a member value. Nil accepts plain integers only.
	lookup func(string) (int, bool)
	// labels renders members by position. Nil renders the integer value.
	labels []string
}

var (
	Minutes = Domain{Name: "minute", Min: 0, Max: 59, Range: "[0, 59]"}
	Hours   = Domain{Name: "hour", Min: 0, Max: 23, Range: "[0, 23]"}
	Days    = Domain{Name: "day", Min: 1, Max: 31, Range: "[1, 31]"}
	Months  = Domain{
		Name:   "month",
		Min:    1,
		Max:    12,
		Range:  "[jan, dec] or [1, 12]",
		lookup: monthValue,
	}
	// Weekdays has eight members: both 0 and 7 are Sunday.
	Weekdays = Domain{
		Name:   "dow",
		Min:    0,
		Max:    7,
		Range:  "[mon, sun] or [1, 7]",
		lookup: weekdayValue,
		labels: weekLabels[:],
	}
)

var weekLabels = [8]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var monthNames = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// Size is the number of members in the domain.
func (d Domain) Size() int { return d.Max - d.Min + 1 }

// Label renders a member value the way calendar expressions spell it.
func (d Domain) Label(v int) string {
	if d.labels != nil && v >= d.Min && v <= d.Max {
		return d.labels[v-d.Min]
	}
	return strconv.Itoa(v)
}

func (d Domain) value(token string) (int, bool) {
	if d.lookup != nil {
		return d.lookup(token)
	}
	return ParseUint(token)
}

// ParseUint parses a plain unsigned decimal number; signs and spaces are rejected.
func ParseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func prefix3(s string) string {
	if len(s) > 3 {
		s = s[:3]
	}
	return strings.ToLower(s)
}

// months try a number first.
func monthValue(token string) (int, bool) {
	if n, ok := ParseUint(token); ok {
		return n, true
	}
	p := prefix3(token)
	for i, name := range monthNames {
		if name == p {
			return i + 1, true
		}
	}
	return 0, false
}

// weekdays try a name first.
func weekdayValue(token string) (int, bool) {
	p := prefix3(token)
	for i, name := range weekLabels[:7] {
		if strings.ToLower(name) == p {
			return i, true
		}
	}
	return ParseUint(token)
}
