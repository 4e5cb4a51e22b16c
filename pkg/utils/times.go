package utils

import "time"

func DurationToFloat64Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// SecondsToDays converts a span of unix seconds into days.
func SecondsToDays(seconds float64) float64 {
	return seconds / SecondsPerDay
}

// BlockTimeSince returns the seconds elapsed between the unix timestamp of a
// block and now.
func BlockTimeSince(blockTime int64, now time.Time) float64 {
	return float64(now.Unix() - blockTime)
}
