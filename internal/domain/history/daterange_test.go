package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToKeyUsesLocalCalendarDate(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	// 23:30 in Sao Paulo is already the next day in UTC.
	late := time.Date(2024, time.March, 1, 23, 30, 0, 0, saoPaulo)

	require.Equal(t, "2024-03-01", ToKey(late))
	require.Equal(t, "2024-03-02", ToKey(late.UTC()))
	require.Equal(t, "0987-01-09", ToKey(time.Date(987, time.January, 9, 0, 0, 0, 0, time.UTC)))
}

func TestFromKeyRejectsInvalidKeys(t *testing.T) {
	for _, key := range []string{
		"", "invalid", "2024-02-30", "2023-02-29", "2024-13-01", "2024-00-10",
		"0000-01-01", "2024-01-00", "2024-1-5", "2024-01", "2024-01-02-03", "2024-aa-01",
	} {
		_, ok := FromKey(key)
		require.False(t, ok, key)
	}

	leap, ok := FromKey("2024-02-29")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), leap)
}

func TestFromKeyRoundTrip(t *testing.T) {
	day := time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		d := AddDays(day, i)
		parsed, ok := FromKey(ToKey(d))
		require.True(t, ok)
		require.True(t, parsed.Equal(d), ToKey(d))
	}
}

func TestAddDaysRollsOver(t *testing.T) {
	d, _ := FromKey("2024-12-31")
	require.Equal(t, "2025-01-01", ToKey(AddDays(d, 1)))

	d, _ = FromKey("2024-03-01")
	require.Equal(t, "2024-02-29", ToKey(AddDays(d, -1)))
	require.Equal(t, "2023-03-01", ToKey(AddDays(d, -366)))
}

func TestDayDifferenceIgnoresClockAndZone(t *testing.T) {
	a := time.Date(2024, time.March, 9, 23, 0, 0, 0, time.FixedZone("EST", -5*60*60))
	b := time.Date(2024, time.March, 11, 1, 0, 0, 0, time.FixedZone("EDT", -4*60*60))

	require.Equal(t, 2, DayDifference(a, b))
	require.Equal(t, -2, DayDifference(b, a))
	require.Equal(t, 0, DayDifference(a, a))
}

func TestDayDifferenceAcrossCenturies(t *testing.T) {
	a, _ := FromKey("1700-01-01")
	b, _ := FromKey("2024-01-01")
	require.Equal(t, 118338, DayDifference(a, b))
	require.Equal(t, -118338, DayDifference(b, a))
}

func TestTodayUsesLocation(t *testing.T) {
	now := time.Date(2024, time.March, 2, 1, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-01", ToKey(Today(now, time.FixedZone("BRT", -3*60*60))))
	require.Equal(t, "2024-03-02", ToKey(Today(now, nil)))
}

func TestParseRange(t *testing.T) {
	_, _, ok := ParseRange("2024-03-03", "2024-03-01")
	require.False(t, ok)
	_, _, ok = ParseRange("", "2024-03-01")
	require.False(t, ok)

	start, end, ok := ParseRange("2024-03-01", "2024-03-01")
	require.True(t, ok)
	require.True(t, start.Equal(end))
}
