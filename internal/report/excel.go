package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExcelExporter writes a workbook with a dashboard sheet and one sheet per
// repository that saw activity during the window.
type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

type activityRow struct {
	kind  string
	ref   string
	title string
	url   string
	date  string
}

func (e *ExcelExporter) Export(rep *Report) (string, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("Weekly_Activity_%s.xlsx", rep.Window.Label()))

	f := excelize.NewFile()
	defer f.Close()

	repos := activityRepos(rep.Data)

	if err := e.createDashboardSheet(f, "Dashboard", rep, repos); err != nil {
		return "", fmt.Errorf("failed to create dashboard: %w", err)
	}

	for _, repo := range repos {
		if err := e.createRepoSheet(f, sanitizeSheetName(repo), repo, rep.Data); err != nil {
			return "", fmt.Errorf("failed to create sheet for %s: %w", repo, err)
		}
	}

	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}

	return filename, nil
}

func (e *ExcelExporter) createDashboardSheet(f *excelize.File, sheetName string, rep *Report, repos []string) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})

	totalStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, "A1", "Week:")
	f.SetCellValue(sheetName, "B1", rep.Window.RangeLabel())
	f.SetCellValue(sheetName, "A2", "From:")
	f.SetCellValue(sheetName, "B2", rep.Window.Start.Format("2006-01-02"))
	f.SetCellValue(sheetName, "A3", "To:")
	f.SetCellValue(sheetName, "B3", rep.Window.End.Format("2006-01-02"))

	row := 5

	headers := []string{"Repository", "Pull Requests", "Commits", "Merged", "Reviewed"}
	for col, header := range headers {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	row++

	type repoTotals struct {
		prs, commits, merged, reviewed int
	}
	counts := make(map[string]*repoTotals)
	for _, repo := range repos {
		counts[repo] = &repoTotals{}
	}
	for _, pr := range rep.Data.PullRequests {
		counts[pr.Repo].prs++
		counts[pr.Repo].commits += len(pr.Commits)
	}
	for _, pr := range rep.Data.Merged {
		counts[pr.Repo].merged++
	}
	for _, pr := range rep.Data.Reviewed {
		counts[pr.Repo].reviewed++
	}

	var grand repoTotals
	for _, repo := range repos {
		c := counts[repo]
		f.SetCellValue(sheetName, cellName(1, row), repo)
		f.SetCellValue(sheetName, cellName(2, row), c.prs)
		f.SetCellValue(sheetName, cellName(3, row), c.commits)
		f.SetCellValue(sheetName, cellName(4, row), c.merged)
		f.SetCellValue(sheetName, cellName(5, row), c.reviewed)
		grand.prs += c.prs
		grand.commits += c.commits
		grand.merged += c.merged
		grand.reviewed += c.reviewed
		row++
	}

	f.SetCellValue(sheetName, cellName(1, row), "Total")
	f.SetCellValue(sheetName, cellName(2, row), grand.prs)
	f.SetCellValue(sheetName, cellName(3, row), grand.commits)
	f.SetCellValue(sheetName, cellName(4, row), grand.merged)
	f.SetCellValue(sheetName, cellName(5, row), grand.reviewed)
	f.SetCellStyle(sheetName, cellName(1, row), cellName(5, row), totalStyle)
	row += 2

	f.SetCellValue(sheetName, cellName(1, row), "Activity")
	f.SetCellStyle(sheetName, cellName(1, row), cellName(1, row), headerStyle)
	f.SetCellValue(sheetName, cellName(2, row), "Count")
	f.SetCellStyle(sheetName, cellName(2, row), cellName(2, row), headerStyle)
	row++

	activity := []struct {
		label string
		count int
	}{
		{"Meetings", len(rep.Data.Events)},
		{"Forms Filled", len(rep.Data.Submissions)},
		{"Coverage Components", len(rep.Data.Measures)},
	}
	for _, a := range activity {
		f.SetCellValue(sheetName, cellName(1, row), a.label)
		f.SetCellValue(sheetName, cellName(2, row), a.count)
		row++
	}

	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "E", 15)

	return nil
}

func (e *ExcelExporter) createRepoSheet(f *excelize.File, sheetName, repo string, data Data) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})

	headers := []string{"#", "Kind", "Ref", "Title", "URL", "Date"}
	for col, header := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	titleCaser := cases.Title(language.English)

	for i, r := range repoRows(repo, data) {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), titleCaser.String(r.kind))
		f.SetCellValue(sheetName, cellName(3, row), r.ref)
		f.SetCellValue(sheetName, cellName(4, row), r.title)
		f.SetCellValue(sheetName, cellName(5, row), r.url)
		f.SetCellValue(sheetName, cellName(6, row), r.date)
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 15)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 50)
	f.SetColWidth(sheetName, "E", "E", 50)
	f.SetColWidth(sheetName, "F", "F", 12)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

func repoRows(repo string, data Data) []activityRow {
	var rows []activityRow

	for _, pr := range data.PullRequests {
		if pr.Repo != repo {
			continue
		}
		date := ""
		for _, c := range pr.Commits {
			d := c.AuthoredAt.Format("2006-01-02")
			if d > date {
				date = d
			}
		}
		rows = append(rows, activityRow{
			kind:  "pull request",
			ref:   fmt.Sprintf("#%d", pr.Number),
			title: pr.Title,
			url:   pr.URL,
			date:  date,
		})
		for _, c := range pr.Commits {
			title, _ := splitMessage(c.Message)
			rows = append(rows, activityRow{
				kind:  "commit",
				ref:   shortSHA(c.SHA),
				title: title,
				url:   c.URL,
				date:  c.AuthoredAt.Format("2006-01-02"),
			})
		}
	}

	for _, pr := range data.Merged {
		if pr.Repo != repo {
			continue
		}
		rows = append(rows, activityRow{
			kind:  "merged",
			ref:   fmt.Sprintf("#%d", pr.Number),
			title: pr.Title,
			url:   pr.URL,
		})
	}

	for _, pr := range data.Reviewed {
		if pr.Repo != repo {
			continue
		}
		rows = append(rows, activityRow{
			kind:  "reviewed",
			ref:   fmt.Sprintf("#%d", pr.Number),
			title: pr.Title,
			url:   pr.URL,
		})
	}

	return rows
}

func activityRepos(data Data) []string {
	seen := make(map[string]bool)
	var repos []string

	add := func(repo string) {
		if repo == "" || seen[repo] {
			return
		}
		seen[repo] = true
		repos = append(repos, repo)
	}

	for _, pr := range data.PullRequests {
		add(pr.Repo)
	}
	for _, pr := range data.Merged {
		add(pr.Repo)
	}
	for _, pr := range data.Reviewed {
		add(pr.Repo)
	}

	sort.Strings(repos)
	return repos
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if len(name) > 31 {
		name = name[:31]
	}

	return name
}
