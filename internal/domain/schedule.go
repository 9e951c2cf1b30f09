package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SlotsPerDay     = 96 // 15 分钟一个槽
	MaxEditableSlot = 93
	MinProfileID    = 1
	MaxProfileID    = 5
)

// SlotOf 15-minute slot index of t within its day
func SlotOf(t time.Time) int {
	return t.Hour()*4 + t.Minute()/15
}

// SlotEntry 从 Slot 开始生效的 profile
type SlotEntry struct {
	Slot      int
	ProfileID int
}

// ScheduleEntries sparse slot -> profile mapping of one day
type ScheduleEntries []SlotEntry

// ParseScheduleEntries decodes the stored/wire form {"0": 1, "48": "2"}.
// Values may be numbers or numeric strings.
func ParseScheduleEntries(raw []byte) (ScheduleEntries, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("schedule must be an object of slot to profile: %w", err)
	}
	out := make(ScheduleEntries, 0, len(m))
	for k, v := range m {
		slot, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q", k)
		}
		profile, err := parseProfileValue(v)
		if err != nil {
			return nil, fmt.Errorf("invalid profile for slot %d: %w", slot, err)
		}
		out = append(out, SlotEntry{Slot: slot, ProfileID: profile})
	}
	return out.Sorted(), nil
}

func parseProfileValue(v json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", string(v))
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// MarshalJSON object form keyed by slot
func (e ScheduleEntries) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, len(e))
	for _, entry := range e {
		m[strconv.Itoa(entry.Slot)] = entry.ProfileID
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the same forms as ParseScheduleEntries
func (e *ScheduleEntries) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseScheduleEntries(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Sorted copy ordered by slot ascending
func (e ScheduleEntries) Sorted() ScheduleEntries {
	out := e.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Clone deep copy, never aliases the receiver
func (e ScheduleEntries) Clone() ScheduleEntries {
	if e == nil {
		return nil
	}
	out := make(ScheduleEntries, len(e))
	copy(out, e)
	return out
}

// ProfileAt the entry governing slot is the latest entry at or before it.
func (e ScheduleEntries) ProfileAt(slot int) (int, bool) {
	desc := e.Clone()
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Slot > desc[j].Slot })
	for _, entry := range desc {
		if entry.Slot <= slot {
			return entry.ProfileID, true
		}
	}
	return 0, false
}

// Last entry with the highest slot
func (e ScheduleEntries) Last() (SlotEntry, bool) {
	if len(e) == 0 {
		return SlotEntry{}, false
	}
	s := e.Sorted()
	return s[len(s)-1], true
}

// Schedule 某一天的日程（schedule 表），(home, day) 下 revision 最新者为当前
type Schedule struct {
	ID       int64           `db:"id"`
	HomeID   int64           `db:"homeid"`
	Revision time.Time       `db:"revision"`
	Day      Day             `db:"day"`
	Entries  ScheduleEntries `db:"schedule"`
}
