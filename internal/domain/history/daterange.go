package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToKey formats the calendar date of t as YYYY-MM-DD using t's own
// location. It never converts to UTC first.
func ToKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// FromKey parses a YYYY-MM-DD key into a midnight UTC calendar date.
// It reports false for malformed keys, zero parts and dates that do not
// exist on the calendar (the parsed date must format back to key).
func FromKey(key string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}
	t := time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
	if ToKey(t) != strings.TrimSpace(key) {
		return time.Time{}, false
	}
	return t, true
}

// AddDays offsets a calendar date by n days, n may be negative.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DayDifference counts days from a to b on UTC midnights of the same
// calendar dates, so daylight saving transitions do not skew the result.
func DayDifference(a, b time.Time) int {
	return int((utcMidnight(b).Unix() - utcMidnight(a).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// Today is the calendar date of now in loc, as a midnight UTC value.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return utcMidnight(now.In(loc))
}

// ParseRange parses both bounds and reports false when either is invalid
// or end precedes start.
func ParseRange(startKey, endKey string) (time.Time, time.Time, bool) {
	start, ok := FromKey(startKey)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := FromKey(endKey)
	if !ok || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func utcMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
