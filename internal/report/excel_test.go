package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExcelExporter_Export(t *testing.T) {
	rep := &Report{
		Window: testWindow(),
		Data: Data{
			PullRequests: []PullRequest{{
				Repo:   "api",
				Number: 42,
				Title:  "Fix bug",
				URL:    "https://github.com/acme/api/pull/42",
				Commits: []Commit{{
					SHA:        "abc1234def",
					Message:    "Fix null check\n\nDetails",
					URL:        "https://github.com/acme/api/commit/abc1234def",
					AuthoredAt: time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC),
				}},
			}},
			Merged:   []MergedPullRequest{{Repo: "api", Number: 40, Title: "Add cache", URL: "mu", Base: "main"}},
			Reviewed: []ReviewedPullRequest{{Repo: "web", Number: 9, Title: "Refactor nav", URL: "ru"}},
			Events:   []Event{{Summary: "Planning", Start: time.Date(2024, 6, 4, 14, 0, 0, 0, time.UTC)}},
		},
	}

	path, err := NewExcelExporter(t.TempDir()).Export(rep)
	require.NoError(t, err)
	assert.Contains(t, path, "Weekly_Activity_2024-06-03_to_2024-06-07.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Dashboard")
	assert.Contains(t, sheets, "api")
	assert.Contains(t, sheets, "web")
	assert.NotContains(t, sheets, "Sheet1")

	week, err := f.GetCellValue("Dashboard", "B1")
	require.NoError(t, err)
	assert.Equal(t, "June 3-7, 2024", week)

	// Repo rows start under the header row 5, alphabetically.
	repo, err := f.GetCellValue("Dashboard", "A6")
	require.NoError(t, err)
	assert.Equal(t, "api", repo)

	total, err := f.GetCellValue("Dashboard", "A8")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)

	kind, err := f.GetCellValue("api", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Pull Request", kind)

	ref, err := f.GetCellValue("api", "C2")
	require.NoError(t, err)
	assert.Equal(t, "#42", ref)

	commitRef, err := f.GetCellValue("api", "C3")
	require.NoError(t, err)
	assert.Equal(t, "abc1234", commitRef)

	commitTitle, err := f.GetCellValue("api", "D3")
	require.NoError(t, err)
	assert.Equal(t, "Fix null check", commitTitle)

	mergedRef, err := f.GetCellValue("api", "C4")
	require.NoError(t, err)
	assert.Equal(t, "#40", mergedRef)
}

func TestActivityRepos(t *testing.T) {
	data := Data{
		PullRequests: []PullRequest{{Repo: "web"}, {Repo: "api"}},
		Merged:       []MergedPullRequest{{Repo: "api"}},
		Reviewed:     []ReviewedPullRequest{{Repo: "core"}},
	}
	assert.Equal(t, []string{"api", "core", "web"}, activityRepos(data))
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "acme-api", sanitizeSheetName("acme/api"))
	assert.Equal(t, "data(v2)", sanitizeSheetName("data[v2]"))

	long := "a-repository-name-well-beyond-the-sheet-limit"
	assert.Len(t, sanitizeSheetName(long), 31)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
	assert.Equal(t, "AZ", columnLetter(52))
}
