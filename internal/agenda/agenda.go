// Package agenda builds the five-day work-week view of tasks and computes
// due dates for tasks moved between days.
package agenda

import (
	"time"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
)

// WorkDays is the number of buckets in a week view, Monday through Friday.
const WorkDays = 5

// Scheduled is a task as the agenda sees it.
type Scheduled interface {
	rbac.Assignable
	Due() time.Time
}

type Day[T Scheduled] struct {
	Date  time.Time
	Tasks []T
}

type Week[T Scheduled] struct {
	Start time.Time
	Days  []Day[T]
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Previous shifts a week start back seven days.
func Previous(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, -7)
}

func Next(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 7)
}

// Today resets navigation to the week containing now.
func Today(now time.Time) time.Time {
	return WeekStart(now)
}

// SameDay compares calendar dates, ignoring time of day. b is read in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// VisibleWeek buckets the tasks the identity may see into Monday..Friday
// starting at weekStart. Every bucket is present even when empty, and tasks
// keep their input order within a bucket.
func VisibleWeek[T Scheduled](identity *rbac.Identity, tasks []T, weekStart time.Time) Week[T] {
	y, m, d := weekStart.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, weekStart.Location())

	visible := rbac.VisibleTasks(identity, tasks)
	week := Week[T]{Start: start, Days: make([]Day[T], WorkDays)}
	for i := range week.Days {
		date := start.AddDate(0, 0, i)
		bucket := make([]T, 0)
		for _, task := range visible {
			if SameDay(date, task.Due()) {
				bucket = append(bucket, task)
			}
		}
		week.Days[i] = Day[T]{Date: date, Tasks: bucket}
	}
	return week
}

// MoveDueDate combines the calendar date of target with the time of day of
// original. The result is expressed in target's location.
func MoveDueDate(original, target time.Time) time.Time {
	clock := original.In(target.Location())
	y, m, d := target.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, target.Location())
}
