package utils

import "math"

// Round2 rounds to two decimal places. All dashboard percentages go through
// here so every backend reports identical values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CompletionRate returns completed/total as a percentage rounded to two
// decimals, and 0 when total is zero.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(completed) * 100.0 / float64(total))
}

func IsValidStatsType(statsType string) bool {
	switch statsType {
	case "all", "funnel", "answers", "overview":
		return true
	default:
		return false
	}
}

func IsValidExportTable(table string) bool {
	switch table {
	case "sessions", "events", "answers":
		return true
	default:
		return false
	}
}
