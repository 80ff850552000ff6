package cronspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrGarbled marks a field expression that does not denote any value.
var ErrGarbled = errors.New("garbled time field")

// FieldError describes why one field expression could not be expanded.
type FieldError struct {
	Field  string // domain name
	Value  string // whole field expression
	Sub    string // failing comma-separated part
	Reason string // empty when the part simply matched nothing
	Range  string
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field %s=%s (%s): %s", e.Field, e.Value, e.Sub, e.Reason)
	}
	sub := e.Sub
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[:i]
	}
	return fmt.Sprintf("field %s=%s (%s), may be * or %s", e.Field, e.Value, sub, e.Range)
}

func (e *FieldError) Unwrap() error { return ErrGarbled }

// Field is an expanded field: either the wildcard sentinel or a sorted,
// duplicate-free list of member values.
type Field struct {
	Wildcard bool
	Values   []int
}

// Any is the wildcard field.
var Any = Field{Wildcard: true}

// Empty reports whether the field matches nothing.
func (f Field) Empty() bool { return !f.Wildcard && len(f.Values) == 0 }

func (f Field) Contains(v int) bool {
	for _, x := range f.Values {
		if x == v {
			return true
		}
	}
	return false
}

// Without returns a copy of f with v removed. The wildcard is returned as is.
func (f Field) Without(v int) Field {
	if f.Wildcard {
		return f
	}
	out := make([]int, 0, len(f.Values))
	for _, x := range f.Values {
		if x != v {
			out = append(out, x)
		}
	}
	return Field{Values: out}
}

// String renders the field as a calendar list: "*" or "1,2,3".
func (f Field) String() string {
	if f.Wildcard {
		return "*"
	}
	parts := make([]string, len(f.Values))
	for i, v := range f.Values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// DayNames renders a day-of-week field as deduplicated day names in week
// order. The week starts on Monday when Sunday was written as its trailing
// form, otherwise on Sunday. The wildcard renders as nil.
func (f Field) DayNames(sundayIsSeven bool) []string {
	if f.Wildcard {
		return nil
	}
	present := make(map[string]bool, len(f.Values))
	for _, v := range f.Values {
		present[Weekdays.Label(v)] = true
	}
	order := weekLabels[:7]
	if sundayIsSeven {
		order = weekLabels[1:]
	}
	var out []string
	for _, day := range order {
		if present[day] {
			out = append(out, day)
		}
	}
	return out
}

// Expand expands a field expression over the domain d.
//
// Empty parts (as in "1,,3") are skipped. Any part that matches nothing,
// uses an unknown name or has a malformed step fails the whole field.
func Expand(value string, d Domain) (Field, error) {
	if value == "*" {
		return Any, nil
	}

	seen := make([]bool, d.Size())
	for _, sub := range strings.Split(value, ",") {
		if sub == "" {
			continue
		}
		reason, ok := expandPart(sub, d, seen)
		if !ok {
			return Field{}, &FieldError{Field: d.Name, Value: value, Sub: sub, Reason: reason, Range: d.Range}
		}
	}

	var out []int
	for i, hit := range seen {
		if hit {
			out = append(out, d.Min+i)
		}
	}
	if len(out) == 0 {
		return Field{}, &FieldError{Field: d.Name, Value: value, Sub: value, Range: d.Range}
	}
	return Field{Values: out}, nil
}

func expandPart(sub string, d Domain, seen []bool) (string, bool) {
	rng, step := sub, 1
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		rng = sub[:i]
		rest := sub[i+1:]
		if strings.IndexByte(rest, '/') >= 0 {
			return "doubled /", false
		}
		n, ok := ParseUint(rest)
		if !ok {
			return "/-skip not an integer", false
		}
		if n == 0 {
			return "/-skip must be positive", false
		}
		// any step past the domain hits the first position only
		step = min(n, d.Size())
	}

	if rng == "*" {
		for i := 0; i < len(seen); i += step {
			seen[i] = true
		}
		return "", true
	}

	start, end := rng, rng
	if i := strings.IndexByte(rng, '-'); i >= 0 {
		start, end = rng[:i], rng[i+1:]
		if strings.IndexByte(end, '-') >= 0 {
			return "doubled -", false
		}
	}

	lo, ok1 := d.value(start)
	hi, ok2 := d.value(end)
	if !ok1 || !ok2 {
		return "", false
	}
	first := lo - d.Min
	last := min(hi-d.Min, len(seen)-1)
	if first < 0 {
		return "", false
	}
	hit := false
	for i := first; i <= last; i += step {
		seen[i] = true
		hit = true
	}
	return "", hit
}
