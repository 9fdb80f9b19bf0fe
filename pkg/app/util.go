package app

import "time"

// nextDelay returns the time until shortly past the next full hour,
// when the price API has data for the new period.
func nextDelay() time.Duration {
	now := time.Now()
	nextHour := time.Date(
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour()+1,
		0,
		30,
		0,
		now.Location(),
	)
	return time.Until(nextHour)
}
