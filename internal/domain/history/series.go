package history

// Normalize densifies a sparse daily series over [startKey, endKey]. Every
// day in the range appears exactly once, in ascending order; days missing
// from points get a zero count and an empty breakdown. When several points
// share a date the last one wins. Invalid or inverted bounds return points
// unchanged.
func Normalize(points []DailyPoint, startKey, endKey string) []DailyPoint {
	start, end, ok := ParseRange(startKey, endKey)
	if !ok {
		return points
	}

	byDate := make(map[string]DailyPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}

	days := DayDifference(start, end)
	dense := make([]DailyPoint, 0, days+1)
	for i := 0; i <= days; i++ {
		key := ToKey(AddDays(start, i))
		if p, found := byDate[key]; found {
			if p.Breakdown == nil {
				p.Breakdown = []BreakdownItem{}
			}
			dense = append(dense, p)
			continue
		}
		dense = append(dense, DailyPoint{Date: key, Count: 0, Breakdown: []BreakdownItem{}})
	}
	return dense
}

// SumCounts totals the counts of a series.
func SumCounts(points []DailyPoint) int {
	total := 0
	for _, p := range points {
		total += p.Count
	}
	return total
}
