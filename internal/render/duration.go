package render

import "fmt"

// duration renders a millisecond count. Plain mode is the literal count;
// human mode picks the two most significant units.
func duration(ms int64, human bool) string {
	if !human {
		return fmt.Sprintf("%dms", ms)
	}
	return humanDuration(ms)
}

func humanDuration(ms int64) string {
	const (
		second = 1000
		minute = 60 * second
		hour   = 60 * minute
		day    = 24 * hour
	)
	switch {
	case ms < second:
		return fmt.Sprintf("%dms", ms)
	case ms < minute:
		return fmt.Sprintf("%ds", ms/second)
	case ms < hour:
		return fmt.Sprintf("%dm %ds", ms/minute, (ms%minute)/second)
	case ms < day:
		return fmt.Sprintf("%dh %dm", ms/hour, (ms%hour)/minute)
	default:
		return fmt.Sprintf("%dd %dh", ms/day, (ms%day)/hour)
	}
}
