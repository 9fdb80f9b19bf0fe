// Package price holds the day-ahead spot price snapshot the scheduler
// decides on, and the client that fetches it.
package price

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MaxEntries caps a schedule at half-hourly resolution for a full day.
const MaxEntries = 48

// Entry is one spot price bucket.
type Entry struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Schedule is a single fetch's worth of prices, ascending by time.
// Entries from different fetches are never mixed.
type Schedule []Entry

// slotDuration is an hour unless any two adjacent entries are 30
// minutes apart, in which case the feed is half-hourly.
func (s Schedule) slotDuration() time.Duration {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Sub(s[i-1].Time) == 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return time.Hour
}

// Current returns the price of the bucket containing now. The second
// return is false when the schedule has no bucket for now, which callers
// must treat differently from a zero price.
func (s Schedule) Current(now time.Time) (decimal.Decimal, bool) {
	slot := s.slotDuration()
	for i := len(s) - 1; i >= 0; i-- {
		e := s[i]
		if !now.Before(e.Time) && now.Before(e.Time.Add(slot)) {
			return e.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// IsLowPrice reports whether now falls in a low-price period. Unknown
// prices are never low, and neither is an exact zero: a zero almost
// always means missing or defaulted data rather than free energy.
func (s Schedule) IsLowPrice(now time.Time, threshold decimal.Decimal) bool {
	p, ok := s.Current(now)
	if !ok {
		return false
	}
	return p.IsPositive() && p.LessThan(threshold)
}

// normalize sorts ascending and truncates to capacity.
func (s Schedule) normalize() Schedule {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})
	if len(s) > MaxEntries {
		s = s[:MaxEntries]
	}
	return s
}

// Cache is the single shared holder of the latest schedule. A failed
// fetch leaves the previous schedule in place so stale data keeps
// driving decisions until fresh data arrives.
type Cache struct {
	schedule  Schedule
	fetchedAt time.Time
	sync.RWMutex
}

func (c *Cache) Get() Schedule {
	c.RLock()
	defer c.RUnlock()
	return c.schedule
}

// Set replaces the schedule wholesale.
func (c *Cache) Set(s Schedule, fetchedAt time.Time) {
	c.Lock()
	c.schedule = s
	c.fetchedAt = fetchedAt
	c.Unlock()
}

func (c *Cache) FetchedAt() time.Time {
	c.RLock()
	defer c.RUnlock()
	return c.fetchedAt
}

// Current looks up the bucket price in the cached schedule.
func (c *Cache) Current(now time.Time) (decimal.Decimal, bool) {
	return c.Get().Current(now)
}

// IsLowPrice checks the cached schedule against the threshold.
func (c *Cache) IsLowPrice(now time.Time, threshold decimal.Decimal) bool {
	return c.Get().IsLowPrice(now, threshold)
}
