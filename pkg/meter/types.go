// Package meter reads the electricity meter on the pump feed over
// M-Bus. Readings are telemetry only; a failed read never blocks a
// scheduling tick.
package meter

import "time"

type Data struct {
	Id          string    `json:"id"`
	Model       string    `json:"model"`
	Time        time.Time `json:"time"`
	Current_W   float64   `json:"w,omitempty"`
	Current_VLN float64   `json:"vln,omitempty"`
	Total_WH    float64   `json:"wh,omitempty"`
	L1_A        float64   `json:"l1_a,omitempty"`
}
