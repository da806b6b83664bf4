package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

var verbPastTense = map[string]string{
	"Fetching":    "Fetched",
	"Summarizing": "Summarized",
	"Generating":  "Generated",
	"Creating":    "Created",
}

// progressPrinter shows a spinner for the running pipeline stage and
// replaces it with a checkmark line once the stage completes.
type progressPrinter struct {
	bar   *progressbar.ProgressBar
	stage string
}

// Update completes the current stage and starts a spinner for the next.
// An empty stage only completes.
func (p *progressPrinter) Update(stage string) {
	p.finish()
	if stage == "" {
		return
	}
	p.stage = stage
	p.bar = newSpinner(stage)
}

func (p *progressPrinter) Done() {
	p.finish()
}

func (p *progressPrinter) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Printf("\r✓ %s\n", pastTense(p.stage))
	p.bar = nil
	p.stage = ""
}

// pastTense rewrites a stage description like "Fetching pull requests"
// into its completion form "Fetched pull requests".
func pastTense(stage string) string {
	verb, rest, ok := strings.Cut(stage, " ")
	if !ok {
		return stage
	}
	past, known := verbPastTense[verb]
	if !known {
		return stage
	}
	return past + " " + rest
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
