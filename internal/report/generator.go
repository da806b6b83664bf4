package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Stage descriptions shown by the progress spinner while the generator works.
const (
	StagePullRequests = "Fetching pull requests and commits"
	StageMerged       = "Fetching merged pull requests"
	StageReviewed     = "Fetching reviewed pull requests"
	StageCoverage     = "Fetching test coverage"
	StageMeetings     = "Fetching calendar meetings"
	StageForms        = "Fetching Google Forms submissions"
	StageSummarize    = "Summarizing accomplishments"
	StageAssemble     = "Generating report"
)

// Data holds everything collected from the sources for one report window.
type Data struct {
	PullRequests []PullRequest
	Merged       []MergedPullRequest
	Reviewed     []ReviewedPullRequest
	Events       []Event
	Submissions  []Submission
	Measures     []Measure
}

// Report is a fully assembled weekly report plus the data it was built from.
type Report struct {
	Window             Window
	Fields             map[string]string
	Body               string
	Data               Data
	RawAccomplishments string
	Elapsed            time.Duration
}

// Generator collects activity from the configured sources and renders the
// report body. Sources may be nil; a nil source contributes an empty section.
type Generator struct {
	Pulls      PullRequestSource
	Calendar   EventSource
	Forms      SubmissionSource
	Coverage   CoverageSource
	Summarizer Summarizer
	Template   string
	Extras     Extras
	Author     string
	Logger     *slog.Logger
	Progress   func(stage string)
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Generator) progress(stage string) {
	if g.Progress != nil {
		g.Progress(stage)
	}
}

func (g *Generator) warn(err *SourceError) {
	g.logger().Warn("source unavailable, section will be empty", "source", err.Source, "error", err.Err)
}

// Generate runs the full pipeline for the window. Source failures degrade to
// empty sections; only template problems abort the report.
func (g *Generator) Generate(ctx context.Context, w Window) (*Report, error) {
	started := time.Now()
	var data Data

	if g.Pulls != nil {
		g.progress(StagePullRequests)
		prs, err := g.Pulls.PullRequestsWithCommits(ctx, w)
		if err != nil {
			g.warn(&SourceError{Source: "github pull requests", Err: err})
		}
		data.PullRequests = prs

		g.progress(StageMerged)
		merged, err := g.Pulls.MergedPullRequests(ctx, w)
		if err != nil {
			g.warn(&SourceError{Source: "github merged pull requests", Err: err})
		}
		data.Merged = merged

		g.progress(StageReviewed)
		reviewed, err := g.Pulls.ReviewedPullRequests(ctx, w)
		if err != nil {
			g.warn(&SourceError{Source: "github reviewed pull requests", Err: err})
		}
		data.Reviewed = reviewed
	}

	if g.Coverage != nil {
		g.progress(StageCoverage)
		measures, err := g.Coverage.Measures(ctx)
		if err != nil {
			g.warn(&SourceError{Source: "sonarqube", Err: err})
		}
		data.Measures = measures
	}

	if g.Calendar != nil {
		g.progress(StageMeetings)
		events, err := g.Calendar.Events(ctx, w)
		if err != nil {
			g.warn(&SourceError{Source: "google calendar", Err: err})
		}
		data.Events = events
	}

	if g.Forms != nil {
		g.progress(StageForms)
		subs, err := g.Forms.Submissions(ctx, w)
		if err != nil {
			g.warn(&SourceError{Source: "google forms", Err: err})
		}
		data.Submissions = subs
	}

	raw := FormatAccomplishments(data.PullRequests)
	accomplishments := raw
	if g.Summarizer != nil && len(data.PullRequests) > 0 {
		g.progress(StageSummarize)
		summary, err := g.Summarizer.Summarize(ctx, raw)
		if err != nil {
			g.logger().Warn("summarizer failed, using raw accomplishments", "error", err)
		} else {
			accomplishments = summary
		}
	}

	g.progress(StageAssemble)
	fields := g.fields(w, data, accomplishments)
	body, err := Assemble(g.Template, fields)
	if err != nil {
		return nil, err
	}

	return &Report{
		Window:             w,
		Fields:             fields,
		Body:               body,
		Data:               data,
		RawAccomplishments: raw,
		Elapsed:            time.Since(started),
	}, nil
}

// Refine feeds reviewer feedback back through the summarizer and rebuilds
// the report body around the revised accomplishments section.
func (g *Generator) Refine(ctx context.Context, rep *Report, feedback string) (*Report, error) {
	if g.Summarizer == nil {
		return nil, fmt.Errorf("no summarizer configured, cannot refine the report")
	}

	input := rep.Fields["accomplishments"] + "\n\nReviewer feedback to address:\n" + feedback
	revised, err := g.Summarizer.Summarize(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to refine accomplishments: %w", err)
	}

	fields := make(map[string]string, len(rep.Fields))
	for k, v := range rep.Fields {
		fields[k] = v
	}
	fields["accomplishments"] = revised

	body, err := Assemble(g.Template, fields)
	if err != nil {
		return nil, err
	}

	refined := *rep
	refined.Fields = fields
	refined.Body = body
	return &refined, nil
}

func (g *Generator) fields(w Window, data Data, accomplishments string) map[string]string {
	currentYear := w.Start.Year()
	halfYear := "H1"
	if w.Start.Month() > time.June {
		halfYear = "H2"
	}

	return map[string]string{
		"author":     g.Author,
		"period":     w.RangeLabel(),
		"date_range": w.RangeLabel(),

		"issues": BulletList(g.Extras.Issues, ""),

		"current_month":            w.Start.Month().String(),
		"current_year":             strconv.Itoa(currentYear),
		"half_year":                halfYear,
		"half_year_year":           strconv.Itoa(currentYear),
		"major_bugs_current_month": strconv.Itoa(g.Extras.MajorBugsCurrentMonth),
		"minor_bugs_current_month": strconv.Itoa(g.Extras.MinorBugsCurrentMonth),
		"major_bugs_half_year":     strconv.Itoa(g.Extras.MajorBugsHalfYear),
		"minor_bugs_half_year":     strconv.Itoa(g.Extras.MinorBugsHalfYear),

		"test_coverage_components": FormatCoverage(data.Measures),

		"accomplishments": accomplishments,
		"deployments":     BulletList(FormatMerged(data.Merged), "  "),
		"prs_reviewed":    BulletList(FormatReviewed(data.Reviewed), "  "),

		"meetings_and_activities": FormatMeetingsBlock(FormatEvents(data.Events)),
		"google_forms_filled":     BulletList(FormatSubmissions(data.Submissions), "  "),
		"wfo_days":                BulletList(FormatWFODays(g.Extras.WFODays, w), ""),

		"next_steps": BulletList(g.Extras.NextSteps, ""),
		"learning":   BulletList(g.Extras.Learning, ""),
	}
}
