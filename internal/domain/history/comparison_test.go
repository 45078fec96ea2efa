package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreviousRangeLeapYear(t *testing.T) {
	got, ok := PreviousRange(Filters{StartDate: "2024-03-01", EndDate: "2024-03-03"})
	require.True(t, ok)
	require.Equal(t, Range{StartDate: "2024-02-27", EndDate: "2024-02-29"}, got)
}

func TestPreviousRangeLongSpan(t *testing.T) {
	prev, ok := PreviousRange(Filters{StartDate: "1700-01-01", EndDate: "2024-01-01"})
	require.True(t, ok)
	require.Equal(t, Range{StartDate: "1376-01-01", EndDate: "1699-12-31"}, prev)
}

func TestPreviousRangeInvalid(t *testing.T) {
	for _, f := range []Filters{
		{},
		{StartDate: "2024-03-01"},
		{StartDate: "2024-03-05", EndDate: "2024-03-01"},
		{StartDate: "bad", EndDate: "2024-03-01"},
	} {
		_, ok := PreviousRange(f)
		require.False(t, ok, f)
	}
}

func TestPreviousRangeProperties(t *testing.T) {
	base, _ := FromKey("2023-11-20")
	for offset := 0; offset < 120; offset += 7 {
		for span := 0; span < 40; span += 3 {
			start := AddDays(base, offset)
			end := AddDays(start, span)
			prev, ok := PreviousRange(Filters{StartDate: ToKey(start), EndDate: ToKey(end)})
			require.True(t, ok)

			ps, pe, ok := ParseRange(prev.StartDate, prev.EndDate)
			require.True(t, ok)
			require.Equal(t, span, DayDifference(ps, pe))
			require.Equal(t, ToKey(AddDays(start, -1)), prev.EndDate)
		}
	}
}
