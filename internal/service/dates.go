package service

import "time"

const streakMaxGap = 48 * time.Hour

// utcDayWindow returns the half-open UTC calendar-day interval
// [midnight, midnight+24h) containing t. The daily check-in rule is
// evaluated against this window regardless of the user's locale.
func utcDayWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// utcDayKey groups timestamps by UTC calendar day. Used by the dedup job.
func utcDayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// sameCalendarDay compares the naive calendar fields of the two instants
// without normalizing to UTC. The streak rule has always used this
// comparison while the daily guard uses the UTC window above; the two are
// kept as separate functions on purpose because unifying them would
// change observable streak outcomes.
func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// nextStreakValue applies the streak rule: the streak extends only when
// there is a previous check-in, the gap is at most 48 hours, and the new
// check-in falls on a different calendar day. Anything else resets to 1.
func nextStreakValue(last *time.Time, current time.Time, streak int) int {
	if last == nil {
		return 1
	}
	gap := current.Sub(*last)
	if gap < 0 || gap > streakMaxGap {
		return 1
	}
	if sameCalendarDay(*last, current) {
		return 1
	}
	return streak + 1
}
