package datekey

import (
	"fmt"
	"time"
)

// Layout is the canonical DateKey format.
const Layout = "2006-01-02"

// Format returns the DateKey for the calendar day t falls on in t's own location.
// Callers pass local times; a UTC time yields the UTC calendar day.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// In returns the DateKey for the calendar day t falls on in loc.
func In(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return Format(t.In(loc))
}

// Today returns the DateKey for now in loc.
func Today(now time.Time, loc *time.Location) string {
	return In(now, loc)
}

// Parse validates key and returns noon of that day in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return noon(t), nil
}

// Valid reports whether key is a well-formed DateKey.
func Valid(key string) bool {
	_, err := time.Parse(Layout, key)
	return err == nil
}

// Window returns the keys of the trailing window of days ending on the
// calendar day of end, oldest first. The result has exactly days entries.
func Window(end time.Time, days int) []string {
	if days <= 0 {
		return nil
	}
	base := noon(end)
	keys := make([]string, days)
	for i := 0; i < days; i++ {
		keys[days-1-i] = Format(addDays(base, -i))
	}
	return keys
}

// Range returns the first and last keys of Window(end, days).
func Range(end time.Time, days int) (string, string) {
	if days <= 0 {
		k := Format(end)
		return k, k
	}
	base := noon(end)
	return Format(addDays(base, -(days - 1))), Format(base)
}

// noon pins t to 12:00 on its calendar day so day arithmetic never lands on a
// DST gap or repeat.
func noon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 12, 0, 0, 0, t.Location())
}
