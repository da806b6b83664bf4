package report

import (
	"fmt"
	"time"
)

// Window is the date range a report covers, Monday through Friday by
// default. Start and End are midnight in the report's location; the
// datetime bounds are From() through Until() inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow turns optional YYYY-MM-DD overrides into a concrete window.
// With no overrides the window is the work week containing now: the most
// recent Monday through the Friday four days later. A single override
// derives the other bound with the same five-day shape.
func ResolveWindow(now time.Time, start, end string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	parse := func(value string) (time.Time, error) {
		t, err := time.ParseInLocation("2006-01-02", value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
		}
		return t, nil
	}

	var w Window
	var err error
	switch {
	case start == "" && end == "":
		daysSinceMonday := int(now.Weekday() - time.Monday)
		if daysSinceMonday < 0 {
			daysSinceMonday += 7
		}
		w.Start = time.Date(now.Year(), now.Month(), now.Day()-daysSinceMonday, 0, 0, 0, 0, loc)
		w.End = w.Start.AddDate(0, 0, 4)
	case start != "" && end != "":
		if w.Start, err = parse(start); err != nil {
			return Window{}, err
		}
		if w.End, err = parse(end); err != nil {
			return Window{}, err
		}
		if w.End.Before(w.Start) {
			return Window{}, fmt.Errorf("end date %s precedes start date %s", end, start)
		}
	case start != "":
		if w.Start, err = parse(start); err != nil {
			return Window{}, err
		}
		w.End = w.Start.AddDate(0, 0, 4)
	default:
		if w.End, err = parse(end); err != nil {
			return Window{}, err
		}
		w.Start = w.End.AddDate(0, 0, -4)
	}

	return w, nil
}

// From is the inclusive lower datetime bound, the start of the first day.
func (w Window) From() time.Time {
	return w.Start
}

// Until is the inclusive upper datetime bound, the last second of the last
// day.
func (w Window) Until() time.Time {
	return w.End.AddDate(0, 0, 1).Add(-time.Second)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From()) && !t.After(w.Until())
}

// Monday is the Monday of the week containing the window start.
func (w Window) Monday() time.Time {
	daysSinceMonday := int(w.Start.Weekday() - time.Monday)
	if daysSinceMonday < 0 {
		daysSinceMonday += 7
	}
	return w.Start.AddDate(0, 0, -daysSinceMonday)
}

// Label is the file-name form, e.g. "2024-06-03_to_2024-06-07".
func (w Window) Label() string {
	return w.Start.Format("2006-01-02") + "_to_" + w.End.Format("2006-01-02")
}

// RangeLabel is the human form used in mail subjects and the report period:
// "June 3-7, 2024", or "June 30 - July 4, 2025" across a month boundary.
func (w Window) RangeLabel() string {
	sameYear := w.Start.Year() == w.End.Year()
	if sameYear && w.Start.Month() == w.End.Month() {
		return fmt.Sprintf("%s %d-%d, %d", w.Start.Month(), w.Start.Day(), w.End.Day(), w.Start.Year())
	}
	if sameYear {
		return fmt.Sprintf("%s %d - %s %d, %d", w.Start.Month(), w.Start.Day(), w.End.Month(), w.End.Day(), w.End.Year())
	}
	return fmt.Sprintf("%s %d, %d - %s %d, %d",
		w.Start.Month(), w.Start.Day(), w.Start.Year(), w.End.Month(), w.End.Day(), w.End.Year())
}
