package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestMapper(out Outputs) (*Mapper, *[]time.Duration) {
	m := NewMapper(out, DefaultSettle)
	slept := &[]time.Duration{}
	m.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
	}
	return m, slept
}

func TestApplyOneHot(t *testing.T) {
	var tests = []struct {
		name    string
		pattern Pattern
		active  int
	}{
		{name: "off", pattern: Pattern{}, active: 0},
		{name: "night", pattern: Pattern{SelectNight: true}, active: 1},
		{name: "day", pattern: Pattern{SelectDay: true}, active: 1},
		{name: "backwash", pattern: Pattern{SelectBackwash: true}, active: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out := NewFakeOutputs()
			m, _ := newTestMapper(out)

			err := m.Apply(tt.pattern)
			assert.NoError(t, err)
			assert.Equal(t, tt.active, out.ActiveCount())
		})
	}
}

func TestApplyClearsBeforeAsserting(t *testing.T) {
	out := NewFakeOutputs()
	m, slept := newTestMapper(out)

	assert.NoError(t, m.Apply(Pattern{SelectNight: true}))
	assert.NoError(t, m.Apply(Pattern{SelectDay: true}))

	// Second Apply: three clears, then the day assert. No write may turn
	// on day while night is still high.
	writes := out.Writes[4:]
	assert.Equal(t, []Write{
		{Line: LineNight, On: false},
		{Line: LineDay, On: false},
		{Line: LineBackwash, On: false},
		{Line: LineDay, On: true},
	}, writes)
	assert.Equal(t, 1, out.ActiveCount())

	// The settle interval is waited before each assert.
	assert.Equal(t, []time.Duration{DefaultSettle, DefaultSettle}, *slept)
}

func TestApplyOffSkipsSettle(t *testing.T) {
	out := NewFakeOutputs()
	m, slept := newTestMapper(out)

	assert.NoError(t, m.Apply(Pattern{}))
	assert.Len(t, *slept, 0)
	assert.Equal(t, 0, out.ActiveCount())
}

func TestApplyRejectsAmbiguousPattern(t *testing.T) {
	out := NewFakeOutputs()
	m, _ := newTestMapper(out)

	err := m.Apply(Pattern{SelectNight: true, SelectDay: true})
	assert.ErrorIs(t, err, ErrAmbiguousPattern)
	assert.Len(t, out.Writes, 0)
}

func TestApplyWriteFailureIsRetryable(t *testing.T) {
	out := NewFakeOutputs()
	out.FailOn = map[Line]error{LineDay: errors.New("write failed")}
	m, _ := newTestMapper(out)

	err := m.Apply(Pattern{SelectDay: true})
	assert.Error(t, err)

	// Clearing the failure lets the same pattern apply cleanly.
	out.FailOn = nil
	assert.NoError(t, m.Apply(Pattern{SelectDay: true}))
	assert.True(t, out.States[LineDay])
	assert.Equal(t, 1, out.ActiveCount())
}

func TestDefaultSettleWhenUnset(t *testing.T) {
	m := NewMapper(NewFakeOutputs(), 0)
	assert.Equal(t, DefaultSettle, m.settle)
}
