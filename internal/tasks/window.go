package tasks

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	titlePrefix = "Weekly Favorites"
	weekLength  = 7 * 24 * time.Hour
)

// Window is a half-open ISO week [Start, End) in UTC.
type Window struct {
	Start time.Time // Monday 00:00 UTC
	End   time.Time // following Monday 00:00 UTC
}

// WeekWindow returns the ISO week containing now, shifted by offset weeks.
//
// An offset of 0 selects the current week, -1 the previous one.
func WeekWindow(now time.Time, offset int) Window {
	now = now.UTC()
	sinceMonday := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day()-sinceMonday+7*offset, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.Add(weekLength)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// LastDay is the Sunday closing the window.
func (w Window) LastDay() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// CalendarWeek returns the ISO week number of the window.
func (w Window) CalendarWeek() int {
	_, cw := w.Start.ISOWeek()
	return cw
}

// WeekOfMonth returns the 1-based week of the month the window starts in,
// counting partial weeks at the start of the month.
func (w Window) WeekOfMonth() int {
	first := time.Date(w.Start.Year(), w.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	adjusted := w.Start.Day() + (int(first.Weekday())+6)%7
	return (adjusted + 6) / 7
}

func (w Window) monthTag() string {
	return fmt.Sprintf("%s/%d", strings.ToUpper(w.Start.Format("Jan")), w.WeekOfMonth())
}

// Title is the playlist title for the window, also used to find an existing playlist.
func (w Window) Title() string {
	return fmt.Sprintf("%s %s - %s", titlePrefix, w.Start.Format(dateLayout), w.LastDay().Format(dateLayout))
}

// Description is the playlist description for the window.
func (w Window) Description() string {
	return fmt.Sprintf(
		"Autogenerated set of liked and reposted tracks from my favorite artists.\nWeek %d of %s (%s - %s, CW %d)",
		w.WeekOfMonth(), w.Start.Format("Jan"), w.Start.Format(dateLayout), w.LastDay().Format(dateLayout), w.CalendarWeek(),
	)
}

// TagList is the playlist tag list for the window.
func (w Window) TagList() string {
	return strings.Join([]string{"soundcloud-archive", "weekly-favorites", w.monthTag(), fmt.Sprintf("CW%d", w.CalendarWeek())}, ",")
}
