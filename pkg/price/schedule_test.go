package price

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func hourly(day time.Time, prices ...float64) Schedule {
	s := make(Schedule, 0, len(prices))
	for i, p := range prices {
		s = append(s, Entry{
			Time:  day.Add(time.Duration(i) * time.Hour),
			Price: decimal.NewFromFloat(p),
		})
	}
	return s
}

func TestCurrentHourly(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := hourly(day, 0.08, 0.12, 0.31)

	p, ok := s.Current(day)
	assert.True(t, ok)
	assert.Equal(t, "0.08", p.String())

	p, ok = s.Current(day.Add(59 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "0.08", p.String())

	p, ok = s.Current(day.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "0.12", p.String())

	_, ok = s.Current(day.Add(3 * time.Hour))
	assert.False(t, ok, "beyond coverage must be unknown")

	_, ok = s.Current(day.Add(-time.Minute))
	assert.False(t, ok, "before coverage must be unknown")
}

func TestCurrentHalfHourly(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		{Time: day, Price: decimal.NewFromFloat(0.10)},
		{Time: day.Add(30 * time.Minute), Price: decimal.NewFromFloat(0.20)},
		{Time: day.Add(60 * time.Minute), Price: decimal.NewFromFloat(0.30)},
	}

	p, ok := s.Current(day.Add(29 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "0.1", p.String())

	p, ok = s.Current(day.Add(30 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "0.2", p.String())

	_, ok = s.Current(day.Add(91 * time.Minute))
	assert.False(t, ok)
}

func TestCurrentEmptySchedule(t *testing.T) {
	var s Schedule
	_, ok := s.Current(time.Now())
	assert.False(t, ok)
}

func TestIsLowPrice(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	threshold := decimal.NewFromFloat(0.15)

	var tests = []struct {
		name  string
		price float64
		want  bool
	}{
		{name: "below threshold", price: 0.10, want: true},
		{name: "at threshold", price: 0.15, want: false},
		{name: "above threshold", price: 0.20, want: false},
		{name: "zero is never low", price: 0.0, want: false},
		{name: "negative is never low", price: -0.01, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := hourly(day, tt.price)
			assert.Equal(t, tt.want, s.IsLowPrice(day, threshold))
		})
	}

	// Unknown price is never low either.
	s := hourly(day, 0.05)
	assert.False(t, s.IsLowPrice(day.Add(5*time.Hour), threshold))
}

func TestNormalizeSortsAndCaps(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := make(Schedule, 0, 50)
	for i := 49; i >= 0; i-- {
		s = append(s, Entry{Time: day.Add(time.Duration(i) * 30 * time.Minute)})
	}

	s = s.normalize()
	assert.Len(t, s, MaxEntries)
	for i := 1; i < len(s); i++ {
		assert.True(t, s[i-1].Time.Before(s[i].Time))
	}
}

func TestCacheReplacementKeepsStaleOnNoSet(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	c := &Cache{}

	_, ok := c.Current(day)
	assert.False(t, ok)

	c.Set(hourly(day, 0.11), day)
	p, ok := c.Current(day)
	assert.True(t, ok)
	assert.Equal(t, "0.11", p.String())
	assert.Equal(t, day, c.FetchedAt())

	// A failed fetch never calls Set; yesterday's data keeps serving.
	p, ok = c.Current(day.Add(30 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "0.11", p.String())

	c.Set(hourly(day, 0.42), day.Add(time.Hour))
	p, _ = c.Current(day)
	assert.Equal(t, "0.42", p.String())
}
