package domain

import "time"

// PriceSlot 电价时段 [Start, End)
type PriceSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Price     float64   `json:"rate"`
	Predicted bool      `json:"predicted"`
}

// Covers reports whether t falls inside the slot
func (p PriceSlot) Covers(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
