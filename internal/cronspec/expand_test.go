package cronspec

import (
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestExpandVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		value  string
		domain Domain
		want   []int
	}{
		{name: "single", value: "5", domain: Minutes, want: []int{5}},
		{name: "list", value: "1,3,2", domain: Hours, want: []int{1, 2, 3}},
		{name: "range", value: "10-12", domain: Hours, want: []int{10, 11, 12}},
		{name: "ranged step", value: "0-20/10", domain: Minutes, want: []int{0, 10, 20}},
		{name: "every fifteen", value: "*/15", domain: Minutes, want: []int{0, 15, 30, 45}},
		{name: "one based step", value: "*/10", domain: Days, want: []int{1, 11, 21, 31}},
		{name: "duplicates collapse", value: "5,5,1-5", domain: Days, want: []int{1, 2, 3, 4, 5}},
		{name: "end clamped", value: "58-70", domain: Minutes, want: []int{58, 59}},
		{name: "empty parts skipped", value: "1,,3", domain: Months, want: []int{1, 3}},
		{name: "month names", value: "JAN,mar-May", domain: Months, want: []int{1, 3, 4, 5}},
		{name: "long month name", value: "october", domain: Months, want: []int{10}},
		{name: "weekday numbers", value: "1-5", domain: Weekdays, want: []int{1, 2, 3, 4, 5}},
		{name: "sunday as seven", value: "7", domain: Weekdays, want: []int{7}},
		{name: "step past domain", value: "5-10/9223372036854775807", domain: Minutes, want: []int{5}},
		{name: "wildcard step past domain", value: "*/9223372036854775807", domain: Days, want: []int{1}},
		{name: "step equals domain", value: "3-59/60", domain: Minutes, want: []int{3}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Expand(tt.value, tt.domain)
			require.NoError(t, err)
			require.False(t, got.Wildcard)
			require.Equal(t, tt.want, got.Values)
		})
	}
}

func TestExpandEveryFiveMinutes(t *testing.T) {
	t.Parallel()
	got, err := Expand("*/5", Minutes)
	require.NoError(t, err)
	require.Len(t, got.Values, 12)
	require.Equal(t, "0,5,10,15,20,25,30,35,40,45,50,55", got.String())
}

func TestExpandSortedAndUnique(t *testing.T) {
	t.Parallel()
	for _, value := range []string{"59,0,30-31,*/20", "9-1", "3,3,3", "*/7,*/3"} {
		got, err := Expand(value, Minutes)
		if err != nil {
			continue
		}
		require.True(t, sort.IntsAreSorted(got.Values), value)
		for i := 1; i < len(got.Values); i++ {
			require.NotEqual(t, got.Values[i-1], got.Values[i], value)
		}
	}
}

func TestExpandWildcardIsSentinel(t *testing.T) {
	t.Parallel()
	got, err := Expand("*", Minutes)
	require.NoError(t, err)
	require.True(t, got.Wildcard)
	require.Empty(t, got.Values)
	require.Equal(t, "*", got.String())

	all, err := Expand("*/1", Minutes)
	require.NoError(t, err)
	require.False(t, all.Wildcard)
	require.Len(t, all.Values, 60)
}

func TestExpandWeekdayNames(t *testing.T) {
	t.Parallel()
	for _, value := range []string{"mon-wed", "MON-WED", "Mon-Wed", "monday-wednesday"} {
		got, err := Expand(value, Weekdays)
		require.NoError(t, err, value)
		require.Equal(t, []string{"Mon", "Tue", "Wed"}, got.DayNames(false), value)
	}
}

func TestDayNamesOrdering(t *testing.T) {
	t.Parallel()
	f, err := Expand("0,1,7", Weekdays)
	require.NoError(t, err)
	require.Equal(t, []string{"Sun", "Mon"}, f.DayNames(false))
	require.Equal(t, []string{"Mon", "Sun"}, f.DayNames(true))
	require.Nil(t, Any.DayNames(true))
}

func TestExpandGarbled(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		value  string
		domain Domain
		reason string
	}{
		{name: "unknown month", value: "foo", domain: Months},
		{name: "unknown weekday", value: "xyz", domain: Weekdays},
		{name: "out of range", value: "60", domain: Minutes},
		{name: "inverted range", value: "9-1", domain: Hours},
		{name: "zero day", value: "0", domain: Days},
		{name: "zero month range", value: "0-3", domain: Months},
		{name: "doubled slash", value: "*/2/3", domain: Minutes, reason: "doubled /"},
		{name: "doubled dash", value: "1-2-3", domain: Minutes, reason: "doubled -"},
		{name: "bad step", value: "*/x", domain: Minutes, reason: "/-skip not an integer"},
		{name: "zero step", value: "*/0", domain: Minutes, reason: "/-skip must be positive"},
		{name: "only commas", value: ",,", domain: Minutes},
		{name: "negative", value: "-1", domain: Minutes},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Expand(tt.value, tt.domain)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrGarbled))
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, tt.reason, fe.Reason)
			require.Equal(t, tt.domain.Name, fe.Field)
		})
	}
}

func TestFieldErrorMessage(t *testing.T) {
	t.Parallel()
	_, err := Expand("1,99/2", Minutes)
	require.EqualError(t, err, "field minute=1,99/2 (99), may be * or [0, 59]")
}

func TestFieldWithout(t *testing.T) {
	t.Parallel()
	f := Field{Values: []int{0, 1, 2}}
	require.Equal(t, []int{1, 2}, f.Without(0).Values)
	require.True(t, Field{Values: []int{0}}.Without(0).Empty())
	require.True(t, Any.Without(0).Wildcard)
}
