// Package network tracks last-known connectivity. Association with the
// access point is the operating system's job; the app feeds this monitor
// from probe and fetch outcomes and the scheduler only reads the flag.
package network

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Monitor struct {
	connected  bool
	lastChange time.Time
	sync.RWMutex
}

func (m *Monitor) Connected() bool {
	m.RLock()
	defer m.RUnlock()
	return m.connected
}

// SetConnected records the new state; transitions are logged once.
func (m *Monitor) SetConnected(up bool) {
	m.Lock()
	defer m.Unlock()
	if m.connected == up {
		return
	}
	m.connected = up
	m.lastChange = time.Now()
	if up {
		logrus.Info("network: connectivity restored")
	} else {
		logrus.Warn("network: connectivity lost")
	}
}

func (m *Monitor) LastChange() time.Time {
	m.RLock()
	defer m.RUnlock()
	return m.lastChange
}
