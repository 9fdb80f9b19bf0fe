// Package alarm keeps the set of active fault conditions, fed by relay
// write failures and price fetch errors and drained by a provisioning
// clear or a successful retry.
package alarm

import "sync"

const (
	RelayWriteFailed = "relay-write-failed"
	PriceFetchFailed = "price-fetch-failed"
	MeterReadFailed  = "meter-read-failed"
	StorageFailed    = "storage-failed"
)

type ActiveAlarms struct {
	activeAlarms []string
	sync.RWMutex
}

// Add adds string to alarm list and returns true if it was added. returns false if it already exists.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for _, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			return false
		}
	}

	a.activeAlarms = append(a.activeAlarms, alarm)
	return true
}

// Remove drops a single alarm, e.g. after a successful retry. Returns
// true if it was present.
func (a *ActiveAlarms) Remove(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for i, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			a.activeAlarms = append(a.activeAlarms[:i], a.activeAlarms[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns a copy of the current alarm list.
func (a *ActiveAlarms) Active() []string {
	a.RLock()
	defer a.RUnlock()
	return append([]string(nil), a.activeAlarms...)
}

func (a *ActiveAlarms) Clear() bool {
	hasActive := false
	a.Lock()
	if len(a.activeAlarms) > 0 {
		hasActive = true
		a.activeAlarms = nil
	}
	a.Unlock()
	return hasActive
}
