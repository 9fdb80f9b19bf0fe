package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorTransitions(t *testing.T) {
	m := &Monitor{}
	assert.False(t, m.Connected())
	assert.True(t, m.LastChange().IsZero())

	m.SetConnected(true)
	assert.True(t, m.Connected())
	first := m.LastChange()
	assert.False(t, first.IsZero())

	// Repeated same-state updates do not count as a change.
	m.SetConnected(true)
	assert.Equal(t, first, m.LastChange())

	m.SetConnected(false)
	assert.False(t, m.Connected())
	assert.True(t, m.LastChange().After(first) || m.LastChange().Equal(first))
}
