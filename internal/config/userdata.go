package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UserData holds the manual report inputs no service can supply: issue
// summaries, bug counts, office days and the free-form sections.
type UserData struct {
	Issues []string `yaml:"issues"`

	MajorBugsCurrentMonth int `yaml:"major_bugs_current_month"`
	MinorBugsCurrentMonth int `yaml:"minor_bugs_current_month"`
	MajorBugsHalfYear     int `yaml:"major_bugs_half_year"`
	MinorBugsHalfYear     int `yaml:"minor_bugs_half_year"`

	// WFODays are office days as 1=Monday .. 5=Friday.
	WFODays   []int    `yaml:"wfo_days"`
	NextSteps []string `yaml:"next_steps"`
	Learning  []string `yaml:"learning"`

	// ExcludedMeetings are calendar summaries that never belong in a
	// report (standups, focus blocks and the like).
	ExcludedMeetings []string `yaml:"excluded_meetings"`

	MailTemplate string `yaml:"mail_template"`
}

const defaultMailTemplate = `Hi all,

Here is my weekly report for {{.date_range}}.

{{.report}}`

// LoadUserData reads the YAML user-data file. A missing file is not an
// error; every field simply keeps its zero value.
func LoadUserData(path string) (*UserData, error) {
	data := &UserData{}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data.MailTemplate = defaultMailTemplate
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user data: %w", err)
	}

	if err := yaml.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if data.MailTemplate == "" {
		data.MailTemplate = defaultMailTemplate
	}
	return data, nil
}
