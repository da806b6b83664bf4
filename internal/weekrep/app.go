package weekrep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/weekrep/weekrep/internal/config"
	"github.com/weekrep/weekrep/internal/github"
	"github.com/weekrep/weekrep/internal/gsuite"
	"github.com/weekrep/weekrep/internal/llm"
	"github.com/weekrep/weekrep/internal/report"
	"github.com/weekrep/weekrep/internal/sonarqube"
)

type Application struct {
	Config   *config.Config
	UserData *config.UserData
	Logger   *slog.Logger

	creds *gsuite.CredentialProvider
	gmail *gsuite.Gmail
}

func New(cfg *config.Config, userData *config.UserData, verbose bool) *Application {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	app := &Application{
		Config:   cfg,
		UserData: userData,
		Logger:   logger,
	}

	if cfg.GoogleEnabled() {
		app.creds = &gsuite.CredentialProvider{
			ClientSecretFile: cfg.Google.ClientSecretFile,
			TokensDir:        cfg.Google.TokensDir,
			Logger:           logger,
		}
	}

	return app
}

type GenerateOptions struct {
	Start        string
	End          string
	OutputDir    string
	TemplateFile string
	Interactive  bool
	XLSX         bool
	NoDraft      bool

	// Stdin and Stdout back the approval prompt; nil means the process
	// streams.
	Stdin  io.Reader
	Stdout io.Writer

	// Progress receives stage descriptions; an empty string means the
	// current stage is done.
	Progress func(stage string)
}

// GenerateReport runs the full pipeline: resolve the window, collect and
// assemble, optionally get the report approved, write it out, and create
// the Gmail draft when configured.
func (app *Application) GenerateReport(ctx context.Context, opts GenerateOptions) error {
	w, err := report.ResolveWindow(time.Now().In(app.Config.Location), opts.Start, opts.End, app.Config.Location)
	if err != nil {
		return err
	}

	app.Logger.Info("generating report",
		"author", app.Config.Author,
		"start", w.Start.Format("2006-01-02"),
		"end", w.End.Format("2006-01-02"),
	)

	gen, err := app.buildGenerator(ctx, opts)
	if err != nil {
		return err
	}

	rep, err := gen.Generate(ctx, w)
	if opts.Progress != nil {
		opts.Progress("")
	}
	if err != nil {
		return err
	}

	if opts.Interactive {
		rep, err = approve(ctx, gen, rep, opts.Stdin, opts.Stdout)
		if err != nil {
			return err
		}
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = app.Config.Output.Directory
	}
	path, err := report.NewExporter(outputDir).Export(rep)
	if err != nil {
		return err
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "\nReport saved to: %s (took %s)\n", path, report.FormatDuration(rep.Elapsed))

	if opts.XLSX {
		xlsxPath, err := report.NewExcelExporter(outputDir).Export(rep)
		if err != nil {
			app.Logger.Warn("failed to write activity workbook", "error", err)
		} else {
			fmt.Fprintf(out, "Activity workbook saved to: %s\n", xlsxPath)
		}
	}

	if !opts.NoDraft && app.Config.DraftEnabled() {
		if opts.Progress != nil {
			opts.Progress("Creating Gmail draft")
		}
		err := app.createDraft(ctx, rep.Body, w)
		if opts.Progress != nil {
			opts.Progress("")
		}
		if err != nil {
			app.Logger.Warn("failed to create Gmail draft; the report file is intact", "error", err)
		} else {
			fmt.Fprintf(out, "Draft created for %s\n", strings.Join(app.Config.Mail.To, ", "))
		}
	}

	return nil
}

func (app *Application) buildGenerator(ctx context.Context, opts GenerateOptions) (*report.Generator, error) {
	tmpl := report.DefaultTemplate()
	if opts.TemplateFile != "" {
		data, err := os.ReadFile(opts.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		tmpl = string(data)
	}

	gen := &report.Generator{
		Template: tmpl,
		Author:   app.Config.Author,
		Extras: report.Extras{
			Issues:                app.UserData.Issues,
			MajorBugsCurrentMonth: app.UserData.MajorBugsCurrentMonth,
			MinorBugsCurrentMonth: app.UserData.MinorBugsCurrentMonth,
			MajorBugsHalfYear:     app.UserData.MajorBugsHalfYear,
			MinorBugsHalfYear:     app.UserData.MinorBugsHalfYear,
			WFODays:               app.UserData.WFODays,
			NextSteps:             app.UserData.NextSteps,
			Learning:              app.UserData.Learning,
		},
		Logger:   app.Logger,
		Progress: opts.Progress,
	}

	ghClient, err := github.NewClient(github.Options{
		Token:      app.Config.GitHub.Token,
		Owner:      app.Config.GitHub.Owner,
		Username:   app.Config.GitHub.Username,
		Repos:      app.Config.GitHub.Repos,
		MergeBases: app.Config.GitHub.MergeBases,
		Logger:     app.Logger,
	})
	if err != nil {
		return nil, err
	}
	gen.Pulls = ghClient

	if app.Config.SonarEnabled() {
		components := make([]sonarqube.Component, len(app.Config.Sonar.Components))
		for i, c := range app.Config.Sonar.Components {
			components[i] = sonarqube.Component{Project: c.Project, Path: c.Path}
		}
		gen.Coverage = sonarqube.NewClient(app.Config.Sonar.BaseURL, app.Config.Sonar.Token, components, app.Logger)
	}

	if app.creds != nil {
		calendarSource, err := gsuite.NewCalendar(ctx, app.creds, app.Config.Location, app.UserData.ExcludedMeetings, app.Logger)
		if err != nil {
			app.Logger.Warn("calendar unavailable, meetings will be empty", "error", err)
		} else {
			gen.Calendar = calendarSource
		}

		mail, err := app.gmailService(ctx)
		if err != nil {
			app.Logger.Warn("gmail unavailable, form submissions will be empty", "error", err)
		} else {
			gen.Forms = mail
		}
	}

	switch {
	case app.Config.LLM.GeminiAPIKey != "":
		gen.Summarizer = llm.NewGemini(app.Config.LLM.GeminiAPIKey)
	case app.Config.LLM.GroqAPIKey != "":
		gen.Summarizer = llm.NewGroq(app.Config.LLM.GroqAPIKey)
	}

	return gen, nil
}

func (app *Application) gmailService(ctx context.Context) (*gsuite.Gmail, error) {
	if app.gmail != nil {
		return app.gmail, nil
	}
	if app.creds == nil {
		return nil, fmt.Errorf("google services are not configured (set GOOGLE_CLIENT_SECRET_FILE)")
	}

	mail, err := gsuite.NewGmail(ctx, app.creds, app.Config.Location, app.Config.Mail.FormsSender, app.Logger)
	if err != nil {
		return nil, err
	}
	app.gmail = mail
	return mail, nil
}

func (app *Application) createDraft(ctx context.Context, body string, w report.Window) error {
	mail, err := app.gmailService(ctx)
	if err != nil {
		return err
	}

	_, err = mail.CreateReportDraft(ctx, body, w,
		app.Config.Author, app.UserData.MailTemplate, app.Config.Mail.To, app.Config.Mail.CC)
	return err
}

var reportFilePattern = regexp.MustCompile(`^Weekly_Report_(\d{4}-\d{2}-\d{2})_to_(\d{4}-\d{2}-\d{2})\.md$`)

// CreateDraft drafts an already generated report file, defaulting to the
// newest one in the output directory.
func (app *Application) CreateDraft(ctx context.Context, file string) error {
	path, err := app.resolveReportFile(file)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	w, err := app.windowFromFilename(path)
	if err != nil {
		return err
	}

	if len(app.Config.Mail.To) == 0 {
		return fmt.Errorf("no draft recipients configured (set GMAIL_SEND_TO)")
	}

	app.Logger.Info("creating draft", "report", path)
	return app.createDraft(ctx, string(body), w)
}

var authorPattern = regexp.MustCompile(`\[Weekly Report:\s*([^\]]+)\]`)

// SyncDocs pushes a report file into the Google Docs document linked from
// the weekly notification mail.
func (app *Application) SyncDocs(ctx context.Context, file string) error {
	path, err := app.resolveReportFile(file)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	author := app.Config.Author
	firstLine, _, _ := strings.Cut(string(body), "\n")
	if m := authorPattern.FindStringSubmatch(firstLine); m != nil {
		author = strings.TrimSpace(m[1])
	}
	app.Logger.Info("syncing report", "report", path, "author", author)

	mail, err := app.gmailService(ctx)
	if err != nil {
		return err
	}

	link, err := mail.FindSyncDocURL(ctx, app.Config.Mail.SyncSender, author, time.Now().In(app.Config.Location))
	if err != nil {
		return err
	}

	docID, err := gsuite.DocumentID(link)
	if err != nil {
		return err
	}

	docsService, err := gsuite.NewDocs(ctx, app.creds)
	if err != nil {
		return err
	}

	if err := docsService.ReplaceBody(ctx, docID, string(body)); err != nil {
		return err
	}

	app.Logger.Info("document updated", "doc", link)
	return nil
}

func (app *Application) resolveReportFile(file string) (string, error) {
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return "", fmt.Errorf("report file %q is not readable: %w", file, err)
		}
		return file, nil
	}
	return report.NewExporter(app.Config.Output.Directory).LatestReport()
}

func (app *Application) windowFromFilename(path string) (report.Window, error) {
	m := reportFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return report.Window{}, fmt.Errorf("cannot derive the report week from %q", filepath.Base(path))
	}
	return report.ResolveWindow(time.Now().In(app.Config.Location), m[1], m[2], app.Config.Location)
}
