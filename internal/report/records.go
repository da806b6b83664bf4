package report

import (
	"context"
	"fmt"
	"time"
)

// Commit is one qualifying commit on a pull request.
type Commit struct {
	SHA        string
	Message    string
	URL        string
	AuthoredAt time.Time
}

// PullRequest is a pull request with at least one qualifying commit in the
// window.
type PullRequest struct {
	Repo    string
	Number  int
	Title   string
	URL     string
	Commits []Commit
}

type MergedPullRequest struct {
	Repo   string
	Number int
	Title  string
	URL    string
	Base   string
}

type ReviewedPullRequest struct {
	Repo   string
	Number int
	Title  string
	URL    string
}

// Event is a calendar entry that survived filtering.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

// Submission is one Google Forms receipt.
type Submission struct {
	Title       string
	SubmittedAt time.Time
}

// Measure is the coverage reading for one SonarQube component. A nil
// Coverage means the component had no measure and renders as N/A.
type Measure struct {
	Project   string
	Component string
	URL       string
	Coverage  *float64
}

// Extras are the manual inputs merged into the template alongside the
// fetched sections.
type Extras struct {
	Issues                []string
	MajorBugsCurrentMonth int
	MinorBugsCurrentMonth int
	MajorBugsHalfYear     int
	MinorBugsHalfYear     int
	WFODays               []int
	NextSteps             []string
	Learning              []string
}

// One narrow interface per external service. Implementations return
// whatever they collected alongside the error, so a mid-scan failure still
// yields a partial section.

type PullRequestSource interface {
	PullRequestsWithCommits(ctx context.Context, w Window) ([]PullRequest, error)
	MergedPullRequests(ctx context.Context, w Window) ([]MergedPullRequest, error)
	ReviewedPullRequests(ctx context.Context, w Window) ([]ReviewedPullRequest, error)
}

type EventSource interface {
	Events(ctx context.Context, w Window) ([]Event, error)
}

type SubmissionSource interface {
	Submissions(ctx context.Context, w Window) ([]Submission, error)
}

type CoverageSource interface {
	Measures(ctx context.Context) ([]Measure, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SourceError marks a section that could not be fully fetched. The
// generator logs it and keeps going; it never aborts the pipeline.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
