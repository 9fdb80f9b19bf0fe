package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDeduplicates(t *testing.T) {
	a := &ActiveAlarms{}

	assert.True(t, a.Add(RelayWriteFailed))
	assert.False(t, a.Add(RelayWriteFailed))
	assert.True(t, a.Add(PriceFetchFailed))
	assert.Equal(t, []string{RelayWriteFailed, PriceFetchFailed}, a.Active())
}

func TestRemove(t *testing.T) {
	a := &ActiveAlarms{}
	a.Add(RelayWriteFailed)
	a.Add(PriceFetchFailed)

	assert.True(t, a.Remove(RelayWriteFailed))
	assert.False(t, a.Remove(RelayWriteFailed))
	assert.Equal(t, []string{PriceFetchFailed}, a.Active())
}

func TestClear(t *testing.T) {
	a := &ActiveAlarms{}
	assert.False(t, a.Clear())

	a.Add(MeterReadFailed)
	assert.True(t, a.Clear())
	assert.Empty(t, a.Active())
}
