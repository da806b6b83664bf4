package gsuite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/weekrep/weekrep/internal/report"
)

// Calendar reads meetings from the user's primary calendar.
type Calendar struct {
	svc      *calendar.Service
	loc      *time.Location
	excluded map[string]bool
	logger   *slog.Logger
}

var _ report.EventSource = (*Calendar)(nil)

func NewCalendar(ctx context.Context, creds *CredentialProvider, loc *time.Location, excludedTitles []string, logger *slog.Logger) (*Calendar, error) {
	httpClient, err := creds.Client(ctx, "calendar", calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	excluded := make(map[string]bool, len(excludedTitles))
	for _, title := range excludedTitles {
		excluded[strings.TrimSpace(title)] = true
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Calendar{svc: svc, loc: loc, excluded: excluded, logger: logger}, nil
}

// Events returns the window's meetings, dropping working location entries,
// excluded titles, and invitations the user declined.
func (c *Calendar) Events(ctx context.Context, w report.Window) ([]report.Event, error) {
	result, err := c.svc.Events.List("primary").
		TimeMin(w.From().Format(time.RFC3339)).
		TimeMax(w.Until().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	var events []report.Event
	for _, item := range result.Items {
		if !c.include(item) {
			continue
		}
		ev, err := c.convert(item)
		if err != nil {
			c.logger.Warn("skipping event with unparseable time", "summary", item.Summary, "error", err)
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

// include applies the meeting filters. An event with no entry for the user
// in its attendee list is the user's own and always counts.
func (c *Calendar) include(item *calendar.Event) bool {
	if item.EventType == "workingLocation" {
		return false
	}
	if c.excluded[strings.TrimSpace(item.Summary)] {
		return false
	}

	for _, attendee := range item.Attendees {
		if attendee == nil || !attendee.Self {
			continue
		}
		status := attendee.ResponseStatus
		if status == "" {
			status = "needsAction"
		}
		return status == "accepted" || status == "needsAction"
	}

	return true
}

func (c *Calendar) convert(item *calendar.Event) (report.Event, error) {
	start, allDay, err := parseEventTime(item.Start, c.loc)
	if err != nil {
		return report.Event{}, err
	}
	end, _, err := parseEventTime(item.End, c.loc)
	if err != nil {
		return report.Event{}, err
	}

	return report.Event{
		Summary: item.Summary,
		Start:   start,
		End:     end,
		AllDay:  allDay,
	}, nil
}

// parseEventTime handles both timed and all-day entries; all-day entries
// carry a bare date instead of a timestamp.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("event has no time")
	}

	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	}

	t, err := time.ParseInLocation("2006-01-02", edt.Date, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
