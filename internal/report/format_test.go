package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBulletList(t *testing.T) {
	assert.Equal(t, "* None", BulletList(nil, ""))
	assert.Equal(t, "  * None", BulletList(nil, "  "))
	assert.Equal(t, "* a\n* b", BulletList([]string{"a", "b"}, ""))
	assert.Equal(t, "  * a\n  * b", BulletList([]string{"a", "b"}, "  "))
}

func TestFormatAccomplishments_Empty(t *testing.T) {
	assert.Equal(t, "* None", FormatAccomplishments(nil))
}

func TestFormatAccomplishments(t *testing.T) {
	prs := []PullRequest{{
		Repo:   "api",
		Number: 42,
		Title:  "Fix bug",
		URL:    "https://github.com/acme/api/pull/42",
		Commits: []Commit{{
			SHA:     "abc1234def",
			Message: "Fix null check\n\nSome context that is not a bullet.\n- guard the nil window\n* extend the regression test",
			URL:     "https://github.com/acme/api/commit/abc1234def",
		}},
	}}

	want := "* Fix bug [api#42](https://github.com/acme/api/pull/42)\n" +
		"   * [abc1234](https://github.com/acme/api/commit/abc1234def): Fix null check\n" +
		"      - guard the nil window\n" +
		"      * extend the regression test\n"
	assert.Equal(t, want, FormatAccomplishments(prs))
}

func TestFormatAccomplishments_BlankLineBetweenPullRequests(t *testing.T) {
	prs := []PullRequest{
		{Repo: "api", Number: 1, Title: "First", URL: "u1"},
		{Repo: "api", Number: 2, Title: "Second", URL: "u2"},
	}

	want := "* First [api#1](u1)\n\n* Second [api#2](u2)\n"
	assert.Equal(t, want, FormatAccomplishments(prs))
}

func TestFormatMerged(t *testing.T) {
	items := FormatMerged([]MergedPullRequest{
		{Repo: "api", Number: 7, Title: "Add cache", URL: "u", Base: "main"},
	})
	assert.Equal(t, []string{"Add cache [api#7](u) (merged into main)"}, items)
}

func TestFormatReviewed(t *testing.T) {
	items := FormatReviewed([]ReviewedPullRequest{
		{Repo: "web", Number: 9, Title: "Refactor nav", URL: "u"},
	})
	assert.Equal(t, []string{"Refactor nav [web#9](u)"}, items)
}

func TestFormatEvents_GroupsAndSortsByDay(t *testing.T) {
	day3 := func(h, m int) time.Time { return time.Date(2024, 6, 3, h, m, 0, 0, time.UTC) }
	day4 := func(h, m int) time.Time { return time.Date(2024, 6, 4, h, m, 0, 0, time.UTC) }

	events := []Event{
		{Summary: "Planning", Start: day4(14, 0), End: day4(15, 0)},
		{Summary: "Retro", Start: day3(10, 0), End: day3(10, 30)},
		{Summary: "Offsite", Start: day4(0, 0), End: day4(0, 0).AddDate(0, 0, 1), AllDay: true},
		{Summary: "Standup", Start: day3(9, 0), End: day3(10, 0)},
	}

	want := []string{
		"* **Monday, June 3rd, 2024**",
		"  * 9:00 AM – 10:00 AM: Standup",
		"  * 10:00 AM – 10:30 AM: Retro",
		"* **Tuesday, June 4th, 2024**",
		"  * All day: Offsite",
		"  * 2:00 PM – 3:00 PM: Planning",
	}
	assert.Equal(t, want, FormatEvents(events))
}

func TestFormatMeetingsBlock(t *testing.T) {
	assert.Equal(t, "  * None", FormatMeetingsBlock(nil))

	block := FormatMeetingsBlock([]string{"* **Monday, June 3rd, 2024**", "  * All day: Offsite"})
	assert.Equal(t, "  * **Monday, June 3rd, 2024**\n    * All day: Offsite", block)
}

func TestFormatCoverage(t *testing.T) {
	assert.Equal(t, "* No components configured", FormatCoverage(nil))

	cov := func(v float64) *float64 { return &v }
	measures := []Measure{
		{Project: "beta", Component: "core", URL: "u3", Coverage: cov(91)},
		{Project: "alpha", Component: "web", URL: "u2"},
		{Project: "alpha", Component: "api", URL: "u1", Coverage: cov(85.4)},
	}

	want := "* alpha\n" +
		"  * api: [85.4%](u1) (target: 97%)\n" +
		"  * web: [N/A%](u2) (target: 97%)\n" +
		"* beta\n" +
		"  * core: [91%](u3) (target: 97%)"
	assert.Equal(t, want, FormatCoverage(measures))
}

func TestFormatSubmissions(t *testing.T) {
	items := FormatSubmissions([]Submission{{
		Title:       "Weekly Pulse",
		SubmittedAt: time.Date(2024, 6, 5, 16, 30, 0, 0, time.UTC),
	}})
	assert.Equal(t, []string{"Weekly Pulse (submitted on Wednesday, June 5th, 2024 at 4:30 PM)"}, items)
}

func TestFormatWFODays(t *testing.T) {
	items := FormatWFODays([]int{1, 3, 0, 9}, testWindow())
	assert.Equal(t, []string{"Monday, June 3rd, 2024", "Wednesday, June 5th, 2024"}, items)
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd",
		101: "101st", 111: "111th",
	}
	for n, want := range cases {
		assert.Equal(t, want, ordinal(n), "ordinal(%d)", n)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12.3s", FormatDuration(12340*time.Millisecond))
	assert.Equal(t, "1.2m", FormatDuration(72*time.Second))
	assert.Equal(t, "1.1h", FormatDuration(66*time.Minute))
}
