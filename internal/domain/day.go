package domain

import (
	"fmt"
	"strings"
	"time"
)

// Day 星期位掩码（单个位），周一优先：Monday=1 ... Sunday=64
type Day int

const (
	Monday Day = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// AllDays every bit of the week set
const AllDays = 127

// Week days in Monday-first order
var Week = [7]Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DayOfWeek converts an ISO day number (1=Monday..7=Sunday) into its mask.
// 0 is accepted as Sunday and normalized to 7 before the conversion.
func DayOfWeek(dow int) Day {
	if dow == 0 {
		dow = 7
	}
	idx := ((dow-1)%7 + 7) % 7
	return Day(1 << idx)
}

// DayFromWeekday maps time.Weekday (Sunday=0) onto the Monday-first mask.
func DayFromWeekday(w time.Weekday) Day {
	return DayOfWeek(int(w))
}

// DayOf the mask for the calendar day of t in t's location
func DayOf(t time.Time) Day {
	return DayFromWeekday(t.Weekday())
}

// Index position of the day in the week, 1=Monday..7=Sunday, 0 when d is not a single day.
func (d Day) Index() int {
	for i, w := range Week {
		if w == d {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether d is exactly one day
func (d Day) Valid() bool {
	return d.Index() != 0
}

func (d Day) String() string {
	switch d {
	case Monday:
		return "Monday"
	case Tuesday:
		return "Tuesday"
	case Wednesday:
		return "Wednesday"
	case Thursday:
		return "Thursday"
	case Friday:
		return "Friday"
	case Saturday:
		return "Saturday"
	case Sunday:
		return "Sunday"
	}
	return fmt.Sprintf("Day(%d)", int(d))
}

// Daymask 多个星期的组合
type Daymask int

// ValidDaymask the mask must select at least one day and nothing outside the week
func ValidDaymask(mask int) bool {
	return mask >= 1 && mask <= AllDays
}

// Has reports whether the mask selects d
func (m Daymask) Has(d Day) bool {
	return int(m)&int(d) == int(d)
}

// Days selected days in Monday-first order
func (m Daymask) Days() []Day {
	out := make([]Day, 0, 7)
	for _, d := range Week {
		if m.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (m Daymask) String() string {
	names := make([]string, 0, 7)
	for _, d := range m.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}
