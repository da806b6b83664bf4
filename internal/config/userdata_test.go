package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUserData_MissingFileKeepsDefaults(t *testing.T) {
	data, err := LoadUserData(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, data.Issues)
	assert.Zero(t, data.MajorBugsCurrentMonth)
	assert.Empty(t, data.WFODays)
	assert.Equal(t, defaultMailTemplate, data.MailTemplate)
}

func TestLoadUserData_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.yaml")
	content := `issues:
  - "Flaky CI on the api repo"
major_bugs_current_month: 2
minor_bugs_current_month: 1
major_bugs_half_year: 4
minor_bugs_half_year: 3
wfo_days: [1, 3]
next_steps:
  - "Ship the cache layer"
learning:
  - "OAuth loopback flows"
excluded_meetings:
  - "Daily Standup"
mail_template: "Custom {{.date_range}}\n\n{{.report}}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	data, err := LoadUserData(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Flaky CI on the api repo"}, data.Issues)
	assert.Equal(t, 2, data.MajorBugsCurrentMonth)
	assert.Equal(t, 1, data.MinorBugsCurrentMonth)
	assert.Equal(t, 4, data.MajorBugsHalfYear)
	assert.Equal(t, 3, data.MinorBugsHalfYear)
	assert.Equal(t, []int{1, 3}, data.WFODays)
	assert.Equal(t, []string{"Ship the cache layer"}, data.NextSteps)
	assert.Equal(t, []string{"OAuth loopback flows"}, data.Learning)
	assert.Equal(t, []string{"Daily Standup"}, data.ExcludedMeetings)
	assert.Contains(t, data.MailTemplate, "Custom {{.date_range}}")
}

func TestLoadUserData_EmptyTemplateFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("issues: []\n"), 0644))

	data, err := LoadUserData(path)
	require.NoError(t, err)
	assert.Equal(t, defaultMailTemplate, data.MailTemplate)
}

func TestLoadUserData_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("issues: ["), 0644))

	_, err := LoadUserData(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
