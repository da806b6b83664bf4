package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TargetCoverage is the line coverage target rendered next to every
// component.
const TargetCoverage = 97

// BulletList renders items as a Markdown list, one bullet per item, order
// preserved. An empty list renders a single "None" bullet at the same
// indent.
func BulletList(items []string, indent string) string {
	if len(items) == 0 {
		return indent + "* None"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = indent + "* " + item
	}
	return strings.Join(lines, "\n")
}

// FormatAccomplishments renders pull requests with their commits:
//
//	* {title} [{repo}#{number}]({url})
//	   * [{short sha}]({commit url}): {first message line}
//	      {message bullet lines}
//
// with a blank line between pull requests.
func FormatAccomplishments(prs []PullRequest) string {
	if len(prs) == 0 {
		return "* None"
	}

	var lines []string
	for _, pr := range prs {
		lines = append(lines, fmt.Sprintf("* %s [%s#%d](%s)", pr.Title, pr.Repo, pr.Number, pr.URL))
		for _, c := range pr.Commits {
			first, rest := splitMessage(c.Message)
			lines = append(lines, fmt.Sprintf("   * [%s](%s): %s", shortSHA(c.SHA), c.URL, first))
			for _, line := range rest {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") {
					lines = append(lines, "      "+trimmed)
				}
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func splitMessage(message string) (string, []string) {
	parts := strings.Split(message, "\n")
	return strings.TrimSpace(parts[0]), parts[1:]
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// FormatMerged renders one item per merged pull request including its base
// branch.
func FormatMerged(prs []MergedPullRequest) []string {
	items := make([]string, len(prs))
	for i, pr := range prs {
		items[i] = fmt.Sprintf("%s [%s#%d](%s) (merged into %s)", pr.Title, pr.Repo, pr.Number, pr.URL, pr.Base)
	}
	return items
}

func FormatReviewed(prs []ReviewedPullRequest) []string {
	items := make([]string, len(prs))
	for i, pr := range prs {
		items[i] = fmt.Sprintf("%s [%s#%d](%s)", pr.Title, pr.Repo, pr.Number, pr.URL)
	}
	return items
}

// FormatEvents groups events by day and renders a bold day header followed
// by that day's entries in chronological order, whatever order they arrived
// in. Days without events produce nothing.
func FormatEvents(events []Event) []string {
	byDay := make(map[string][]Event)
	var days []string
	for _, ev := range events {
		day := ev.Start.Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], ev)
	}
	sort.Strings(days)

	var lines []string
	for _, day := range days {
		dayEvents := byDay[day]
		sort.SliceStable(dayEvents, func(i, j int) bool {
			return dayEvents[i].Start.Before(dayEvents[j].Start)
		})

		lines = append(lines, fmt.Sprintf("* **%s**", longDate(dayEvents[0].Start)))
		for _, ev := range dayEvents {
			if ev.AllDay {
				lines = append(lines, fmt.Sprintf("  * All day: %s", ev.Summary))
				continue
			}
			lines = append(lines, fmt.Sprintf("  * %s – %s: %s", clock(ev.Start), clock(ev.End), ev.Summary))
		}
	}
	return lines
}

// FormatMeetingsBlock indents the rendered event lines for the template
// field, or renders the empty form.
func FormatMeetingsBlock(lines []string) string {
	if len(lines) == 0 {
		return "  * None"
	}
	indented := make([]string, len(lines))
	for i, line := range lines {
		indented[i] = "  " + line
	}
	return strings.Join(indented, "\n")
}

// FormatCoverage renders components grouped by project:
//
//	* {project}
//	  * {component}: [{coverage}%]({url}) (target: 97%)
//
// A component without a value renders N/A.
func FormatCoverage(measures []Measure) string {
	if len(measures) == 0 {
		return "* No components configured"
	}

	byProject := make(map[string][]Measure)
	var projects []string
	for _, m := range measures {
		if _, ok := byProject[m.Project]; !ok {
			projects = append(projects, m.Project)
		}
		byProject[m.Project] = append(byProject[m.Project], m)
	}
	sort.Strings(projects)

	var lines []string
	for _, project := range projects {
		group := byProject[project]
		sort.Slice(group, func(i, j int) bool { return group[i].Component < group[j].Component })

		lines = append(lines, "* "+project)
		for _, m := range group {
			value := "N/A"
			if m.Coverage != nil {
				value = strconv.FormatFloat(*m.Coverage, 'f', -1, 64)
			}
			lines = append(lines, fmt.Sprintf("  * %s: [%s%%](%s) (target: %d%%)", m.Component, value, m.URL, TargetCoverage))
		}
	}
	return strings.Join(lines, "\n")
}

func FormatSubmissions(subs []Submission) []string {
	items := make([]string, len(subs))
	for i, s := range subs {
		items[i] = fmt.Sprintf("%s (submitted on %s at %s)", s.Title, longDate(s.SubmittedAt), clock(s.SubmittedAt))
	}
	return items
}

// FormatWFODays maps configured office days (1=Monday .. 5=Friday) onto the
// window's week. Out-of-range values are ignored.
func FormatWFODays(days []int, w Window) []string {
	monday := w.Monday()
	var items []string
	for _, day := range days {
		if day < 1 || day > 5 {
			continue
		}
		items = append(items, longDate(monday.AddDate(0, 0, day-1)))
	}
	return items
}

// longDate renders "Monday, June 3rd, 2024".
func longDate(t time.Time) string {
	return fmt.Sprintf("%s, %s %s, %d", t.Weekday(), t.Month(), ordinal(t.Day()), t.Year())
}

// clock renders "9:05 AM" without a leading zero on the hour.
func clock(t time.Time) string {
	return t.Format("3:04 PM")
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
		// teens keep th
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

// FormatDuration humanizes an elapsed time: "12.3s", "1.2m", "1.1h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
