package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Weekday enumerates the days a time slot may occupy.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[Weekday]struct{}{
	Monday: {}, Tuesday: {}, Wednesday: {}, Thursday: {}, Friday: {}, Saturday: {}, Sunday: {},
}

// TimeSlot is one weekly meeting window with HH:MM wall-clock bounds.
type TimeSlot struct {
	Day       Weekday `json:"day" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
}

// ParseClock converts an HH:MM string into minutes of day.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q", raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

// Minutes normalises the slot bounds to minutes of day, failing on any
// malformed field so comparisons never silently treat bad data as zero.
func (t TimeSlot) Minutes() (int, int, error) {
	day := Weekday(strings.ToUpper(string(t.Day)))
	if _, ok := weekdays[day]; !ok {
		return 0, 0, fmt.Errorf("unknown weekday %q", t.Day)
	}
	start, err := ParseClock(t.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(t.EndTime)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("slot start %q is not before end %q", t.StartTime, t.EndTime)
	}
	return start, end, nil
}

// Validate checks the slot is well formed.
func (t TimeSlot) Validate() error {
	_, _, err := t.Minutes()
	return err
}

// Overlaps reports whether two slots share any time on the same day.
// Intervals are half-open: slots touching at an endpoint do not overlap.
func (t TimeSlot) Overlaps(other TimeSlot) (bool, error) {
	aStart, aEnd, err := t.Minutes()
	if err != nil {
		return false, err
	}
	bStart, bEnd, err := other.Minutes()
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(string(t.Day), string(other.Day)) {
		return false, nil
	}
	return aStart < bEnd && bStart < aEnd, nil
}

// TimeSlots is a course schedule persisted as a JSONB column.
type TimeSlots []TimeSlot

// Value implements driver.Valuer.
func (s TimeSlots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *TimeSlots) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported schedule column type %T", src)
	}
}
