package sonarqube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/weekrep/weekrep/internal/report"
)

// Component identifies one measured component as project plus path. The
// SonarQube key is the two joined with a colon.
type Component struct {
	Project string
	Path    string
}

func (c Component) Key() string {
	return c.Project + ":" + c.Path
}

// Client fetches coverage measures for the configured components.
type Client struct {
	baseURL    string
	token      string
	components []Component
	httpClient *http.Client
	logger     *slog.Logger
}

var _ report.CoverageSource = (*Client)(nil)

func NewClient(baseURL, token string, components []Component, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		components: components,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type measureResponse struct {
	Component struct {
		Name     string `json:"name"`
		Measures []struct {
			Metric string `json:"metric"`
			Value  string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

// Measures returns one entry per configured component. A component whose
// lookup fails still gets an entry with no coverage value, so the report
// renders it as N/A instead of dropping it.
func (c *Client) Measures(ctx context.Context) ([]report.Measure, error) {
	measures := make([]report.Measure, 0, len(c.components))

	for _, component := range c.components {
		m := report.Measure{
			Project: component.Project,
			URL:     c.componentURL(component),
		}

		name, coverage, err := c.componentCoverage(ctx, component)
		if err != nil {
			c.logger.Warn("coverage unavailable", "component", component.Key(), "error", err)
			m.Component = component.Path
		} else {
			m.Component = name
			m.Coverage = coverage
		}

		measures = append(measures, m)
	}

	return measures, nil
}

func (c *Client) componentCoverage(ctx context.Context, component Component) (string, *float64, error) {
	reqURL := fmt.Sprintf("%s/api/measures/component?component=%s&metricKeys=coverage",
		c.baseURL, url.QueryEscape(component.Key()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.token, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result measureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}

	name := result.Component.Name
	if name == "" {
		name = component.Path
	}

	for _, measure := range result.Component.Measures {
		if measure.Metric != "coverage" {
			continue
		}
		value, err := strconv.ParseFloat(measure.Value, 64)
		if err != nil {
			c.logger.Warn("unparseable coverage value", "component", component.Key(), "value", measure.Value)
			return name, nil, nil
		}
		return name, &value, nil
	}

	return name, nil, nil
}

func (c *Client) componentURL(component Component) string {
	return fmt.Sprintf("%s/code?id=%s&selected=%s",
		c.baseURL, url.QueryEscape(component.Project), url.QueryEscape(component.Key()))
}
