package internal

import "time"

const DateFormat = "2006-01-02"

// Date is a civil date pinned to a location. Day bucketing everywhere in the
// engine goes through DayOf so that "today" always means midnight in the
// destination timezone, never a truncated timestamp string.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int, loc *time.Location) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// DayOf truncates t to midnight of its civil date in loc.
func DayOf(t time.Time, loc *time.Location) Date {
	t = t.In(loc)
	return NewDate(t.Year(), t.Month(), t.Day(), loc)
}

func Today(loc *time.Location) Date {
	return DayOf(time.Now(), loc)
}

// ParseDay parses a mapping day key produced by Key.
func ParseDay(key string, loc *time.Location) (Date, error) {
	t, err := time.ParseInLocation(DateFormat, key, loc)
	if err != nil {
		return Date{}, err
	}
	return DayOf(t, loc), nil
}

func (d Date) AddDate(years, months, days int) Date {
	t := d.Time.AddDate(years, months, days)
	return NewDate(t.Year(), t.Month(), t.Day(), t.Location())
}

// Key is the canonical form used as a mapping-table key.
func (d Date) Key() string {
	return d.Format(DateFormat)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// At returns the instant at the given wall clock time on d.
func (d Date) At(hour, min int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, d.Location())
}

func (d Date) String() string {
	return d.Format(DateFormat)
}
