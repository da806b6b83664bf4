package report

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

//go:embed "templates"
var templateFS embed.FS

// DefaultTemplate returns the report template compiled into the binary.
func DefaultTemplate() string {
	data, err := templateFS.ReadFile("templates/weekly.md.tmpl")
	if err != nil {
		panic(fmt.Sprintf("embedded template missing: %v", err))
	}
	return string(data)
}

const rawAccomplishmentsFile = "ACCOMPLISHMENTS_RAW.md"

// Exporter writes assembled reports to the output directory.
type Exporter struct {
	OutputDir string
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{OutputDir: outputDir}
}

// Export writes the report body as Markdown plus the unsummarized
// accomplishments alongside it, and returns the report path.
func (e *Exporter) Export(rep *Report) (string, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(e.OutputDir, fmt.Sprintf("Weekly_Report_%s.md", rep.Window.Label()))
	if err := os.WriteFile(path, []byte(rep.Body), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	rawPath := filepath.Join(e.OutputDir, rawAccomplishmentsFile)
	if err := os.WriteFile(rawPath, []byte(rep.RawAccomplishments), 0644); err != nil {
		return "", fmt.Errorf("failed to write raw accomplishments: %w", err)
	}

	return path, nil
}

// LatestReport returns the most recently written report in the output
// directory, for the draft and sync commands when no file is given.
func (e *Exporter) LatestReport() (string, error) {
	matches, err := filepath.Glob(filepath.Join(e.OutputDir, "Weekly_Report_*.md"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no reports found in %s", e.OutputDir)
	}

	var latest string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no readable reports found in %s", e.OutputDir)
	}
	return latest, nil
}
