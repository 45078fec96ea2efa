package history

// PreviousRange returns the period of equal length that ends the day before
// filters.StartDate. It reports false when the filter range is not valid,
// in which case no comparison is made.
func PreviousRange(filters Filters) (Range, bool) {
	start, end, ok := ParseRange(filters.StartDate, filters.EndDate)
	if !ok {
		return Range{}, false
	}
	span := max(0, DayDifference(start, end))
	previousEnd := AddDays(start, -1)
	previousStart := AddDays(previousEnd, -span)
	return Range{StartDate: ToKey(previousStart), EndDate: ToKey(previousEnd)}, true
}
