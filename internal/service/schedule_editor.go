package service

import "chai-api/internal/domain"

// scheduleWeek 位置 1..7 为周一到周日，位置 0 是周日的别名，作为周一的"前一天"
type scheduleWeek [8]domain.ScheduleEntries

func newScheduleWeek(current []*domain.Schedule) scheduleWeek {
	var w scheduleWeek
	for _, sc := range current {
		if idx := sc.Day.Index(); idx != 0 {
			w[idx] = sc.Entries.Sorted()
		}
	}
	w[0] = w[7]
	return w
}

func (w *scheduleWeek) day(d domain.Day) domain.ScheduleEntries {
	return w[d.Index()].Clone()
}

// apply replaces every day selected by mask with its own copy of entries and
// returns the modified days, Monday first. A day that does not start at slot 0
// inherits the profile in force at the end of the previous day; when that day
// has no schedule it falls back to its own last entry.
func (w *scheduleWeek) apply(mask domain.Daymask, entries domain.ScheduleEntries) []domain.Day {
	sorted := entries.Sorted()
	days := mask.Days()
	for _, d := range days {
		w[d.Index()] = sorted.Clone()
	}
	// Monday looks back at the replaced Sunday
	w[0] = w[7]

	for _, d := range days {
		idx := d.Index()
		if w[idx][0].Slot == 0 {
			continue
		}
		carried, ok := w[idx-1].Last()
		if !ok {
			carried, _ = w[idx].Last()
		}
		w[idx] = append(domain.ScheduleEntries{{Slot: 0, ProfileID: carried.ProfileID}}, w[idx]...)
	}
	return days
}
