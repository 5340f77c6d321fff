package database

import "time"

// Summarize derives the statistics summary. A user counts as active today when
// their last-active time falls on now's calendar date in now's location.
func Summarize(users []User, stats Stats, now time.Time) Summary {
	y, m, d := now.Date()
	loc := now.Location()

	active := 0
	for _, u := range users {
		if u.LastActive.IsZero() {
			continue
		}
		uy, um, ud := u.LastActive.In(loc).Date()
		if uy == y && um == m && ud == d {
			active++
		}
	}

	return Summary{
		TotalUsers:     len(users),
		TotalQuestions: stats.TotalQuestions,
		ActiveToday:    active,
	}
}
