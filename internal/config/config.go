package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub GitHubConfig
	Sonar  SonarConfig
	Google GoogleConfig
	LLM    LLMConfig
	Mail   MailConfig
	Output OutputConfig

	Author       string
	Location     *time.Location
	UserDataFile string
}

type GitHubConfig struct {
	Token    string
	Username string
	Owner    string
	Repos    []string
	// MergeBases restricts the merged-PR search to these base branches.
	// Empty means any base counts.
	MergeBases []string
}

type SonarConfig struct {
	BaseURL    string
	Token      string
	Components []Component
}

// Component identifies one SonarQube component as project key plus path.
type Component struct {
	Project string
	Path    string
}

func (c Component) Key() string {
	return c.Project + ":" + c.Path
}

type GoogleConfig struct {
	ClientSecretFile string
	TokensDir        string
}

type LLMConfig struct {
	GeminiAPIKey string
	GroqAPIKey   string
}

type MailConfig struct {
	To          []string
	CC          []string
	FormsSender string
	SyncSender  string
}

type OutputConfig struct {
	Directory string
}

// MissingVarsError carries every configuration problem found during Load,
// not just the first one.
type MissingVarsError struct {
	Problems []string
}

func (e *MissingVarsError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Load reads configuration from the environment, with a .env file as
// fallback for anything not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GitHub: GitHubConfig{
			Token:      os.Getenv("GITHUB_PERSONAL_ACCESS_TOKEN"),
			Username:   os.Getenv("GITHUB_USERNAME"),
			Owner:      os.Getenv("REPO_OWNER"),
			Repos:      splitList(os.Getenv("REPOS")),
			MergeBases: splitList(os.Getenv("GITHUB_MERGE_BASES")),
		},
		Sonar: SonarConfig{
			BaseURL: strings.TrimRight(os.Getenv("SONARQUBE_BASE_URL"), "/"),
			Token:   os.Getenv("SONARQUBE_USER_TOKEN"),
		},
		Google: GoogleConfig{
			ClientSecretFile: os.Getenv("GOOGLE_CLIENT_SECRET_FILE"),
			TokensDir:        getEnvOrDefault("GOOGLE_TOKENS_DIR", "tokens"),
		},
		LLM: LLMConfig{
			GeminiAPIKey: os.Getenv("GOOGLE_GEMINI_API_KEY"),
			GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		},
		Mail: MailConfig{
			To:          splitList(os.Getenv("GMAIL_SEND_TO")),
			CC:          splitList(os.Getenv("GMAIL_SEND_CC")),
			FormsSender: getEnvOrDefault("FORMS_SENDER", "forms-receipts-noreply@google.com"),
			SyncSender:  os.Getenv("SYNC_SENDER"),
		},
		Output: OutputConfig{
			Directory: getEnvOrDefault("OUTPUT_DIR", "output"),
		},
		Author:       os.Getenv("AUTHOR_FULL_NAME"),
		UserDataFile: getEnvOrDefault("USER_DATA_FILE", "user_data.yaml"),
	}

	var problems []string

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			problems = append(problems, fmt.Sprintf("TIMEZONE %q is not a valid IANA zone", tz))
		} else {
			cfg.Location = loc
		}
	} else {
		cfg.Location = time.Local
	}

	components, componentProblems := parseComponents(os.Getenv("SONARQUBE_COMPONENTS"))
	cfg.Sonar.Components = components
	problems = append(problems, componentProblems...)

	problems = append(problems, cfg.validate()...)

	if len(problems) > 0 {
		return nil, &MissingVarsError{Problems: problems}
	}
	return cfg, nil
}

func (c *Config) validate() []string {
	var problems []string

	required := []struct {
		name  string
		value string
	}{
		{"GITHUB_PERSONAL_ACCESS_TOKEN", c.GitHub.Token},
		{"GITHUB_USERNAME", c.GitHub.Username},
		{"REPO_OWNER", c.GitHub.Owner},
		{"AUTHOR_FULL_NAME", c.Author},
	}
	for _, v := range required {
		if v.value == "" {
			problems = append(problems, "missing required environment variable "+v.name)
		}
	}
	if len(c.GitHub.Repos) == 0 {
		problems = append(problems, "missing required environment variable REPOS")
	}

	if c.Sonar.BaseURL != "" || c.Sonar.Token != "" || len(c.Sonar.Components) > 0 {
		if c.Sonar.BaseURL == "" {
			problems = append(problems, "SonarQube is partially configured: SONARQUBE_BASE_URL is missing")
		}
		if c.Sonar.Token == "" {
			problems = append(problems, "SonarQube is partially configured: SONARQUBE_USER_TOKEN is missing")
		}
		if len(c.Sonar.Components) == 0 {
			problems = append(problems, "SonarQube is partially configured: SONARQUBE_COMPONENTS is missing")
		}
	}

	if c.Google.ClientSecretFile != "" {
		if _, err := os.Stat(c.Google.ClientSecretFile); err != nil {
			problems = append(problems, fmt.Sprintf("GOOGLE_CLIENT_SECRET_FILE %q is not readable", c.Google.ClientSecretFile))
		}
	}

	return problems
}

// A service is active only when everything it needs is configured.

func (c *Config) SonarEnabled() bool {
	return c.Sonar.BaseURL != "" && c.Sonar.Token != "" && len(c.Sonar.Components) > 0
}

func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientSecretFile != ""
}

func (c *Config) LLMEnabled() bool {
	return c.LLM.GeminiAPIKey != "" || c.LLM.GroqAPIKey != ""
}

func (c *Config) DraftEnabled() bool {
	return c.GoogleEnabled() && len(c.Mail.To) > 0
}

// parseComponents parses "project:path,project:path". Entries may be
// URL-escaped so a path can contain commas or colons.
func parseComponents(raw string) ([]Component, []string) {
	var components []Component
	var problems []string

	for _, item := range splitList(raw) {
		unescaped, err := url.QueryUnescape(item)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SONARQUBE_COMPONENTS entry %q is not valid URL escaping", item))
			continue
		}
		project, path, ok := strings.Cut(unescaped, ":")
		if !ok || project == "" || path == "" {
			problems = append(problems, fmt.Sprintf("SONARQUBE_COMPONENTS entry %q is not project:path", item))
			continue
		}
		components = append(components, Component{Project: project, Path: path})
	}
	return components, problems
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
