package models

import "time"

// FrequencyType is the recurrence step rule of a planned payment
type FrequencyType string

const (
	Daily   FrequencyType = "DAILY"
	Weekly  FrequencyType = "WEEKLY"
	Monthly FrequencyType = "MONTHLY"
	Yearly  FrequencyType = "YEARLY"
)

// Frequency is immutable reference data
type Frequency struct {
	ID   int64         `json:"id"`
	Type FrequencyType `json:"type"`
}

// Next returns the occurrence following d. Month and year steps clamp to the last
// day of the target month, so Jan 31 is followed by the end of February.
// Unknown types step one day.
func (f FrequencyType) Next(d time.Time) time.Time {
	switch f {
	case Weekly:
		return d.AddDate(0, 0, 7)
	case Monthly:
		return addMonths(d, 1)
	case Yearly:
		return addMonths(d, 12)
	default:
		return d.AddDate(0, 0, 1)
	}
}

func addMonths(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// Day truncates t to its calendar day, expressed as UTC midnight
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
