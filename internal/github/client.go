package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"golang.org/x/time/rate"

	"github.com/weekrep/weekrep/internal/report"
)

// Options configures the GitHub client. A nil Transport uses the default
// authenticated transport.
type Options struct {
	Token      string
	Owner      string
	Username   string
	Repos      []string
	MergeBases []string
	Transport  http.RoundTripper
	Logger     *slog.Logger
}

// Client collects pull request activity for one user across the configured
// repositories.
type Client struct {
	rest       *api.RESTClient
	owner      string
	username   string
	repos      []string
	mergeBases []string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ report.PullRequestSource = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	rest, err := api.NewRESTClient(api.ClientOptions{
		AuthToken: opts.Token,
		Timeout:   30 * time.Second,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		rest:       rest,
		owner:      opts.Owner,
		username:   opts.Username,
		repos:      opts.Repos,
		mergeBases: opts.MergeBases,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		logger:     logger,
	}, nil
}

type prItem struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	HTMLURL        string     `json:"html_url"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at"`
	MergeCommitSHA string     `json:"merge_commit_sha"`
	User           struct {
		Login string `json:"login"`
	} `json:"user"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

type commitItem struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

type searchResult struct {
	Items []struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	} `json:"items"`
}

// PullRequestsWithCommits returns the user's pull requests that have commits
// inside the window, per repository. A failing repository is skipped; its
// error is returned alongside whatever the other repositories yielded.
func (c *Client) PullRequestsWithCommits(ctx context.Context, w report.Window) ([]report.PullRequest, error) {
	var all []report.PullRequest
	var firstErr error

	for _, repo := range c.repos {
		prs, err := c.repoPullRequests(ctx, repo, w)
		if err != nil {
			c.logger.Warn("failed to fetch pull requests", "repo", repo, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		all = append(all, prs...)
	}

	return all, firstErr
}

func (c *Client) repoPullRequests(ctx context.Context, repo string, w report.Window) ([]report.PullRequest, error) {
	var out []report.PullRequest

	path := fmt.Sprintf("repos/%s/%s/pulls?state=all&sort=updated&direction=desc&per_page=100", c.owner, repo)
	for path != "" {
		var page []prItem
		next, err := c.getPage(ctx, path, &page)
		if err != nil {
			return out, err
		}

		for _, pr := range page {
			// The listing is sorted by update time, so the first stale
			// entry means every later one is stale too.
			if pr.UpdatedAt.Before(w.From()) {
				return out, nil
			}
			if pr.User.Login != c.username {
				continue
			}

			commits, err := c.pullRequestCommits(ctx, repo, pr.Number, w)
			if err != nil {
				return out, err
			}
			if len(commits) == 0 {
				continue
			}

			out = append(out, report.PullRequest{
				Repo:    repo,
				Number:  pr.Number,
				Title:   pr.Title,
				URL:     pr.HTMLURL,
				Commits: commits,
			})
		}

		path = next
	}

	return out, nil
}

func (c *Client) pullRequestCommits(ctx context.Context, repo string, number int, w report.Window) ([]report.Commit, error) {
	var out []report.Commit

	path := fmt.Sprintf("repos/%s/%s/pulls/%d/commits?per_page=100", c.owner, repo, number)
	for path != "" {
		var page []commitItem
		next, err := c.getPage(ctx, path, &page)
		if err != nil {
			return out, err
		}

		for _, commit := range page {
			if commit.Author == nil || commit.Author.Login != c.username {
				continue
			}
			if !w.Contains(commit.Commit.Committer.Date) {
				continue
			}
			out = append(out, report.Commit{
				SHA:        commit.SHA,
				Message:    commit.Commit.Message,
				URL:        commit.HTMLURL,
				AuthoredAt: commit.Commit.Committer.Date,
			})
		}

		path = next
	}

	return out, nil
}

// MergedPullRequests returns the user's pull requests merged during the
// window, including pull requests folded into another merge commit. Results
// are deduplicated by repository and number.
func (c *Client) MergedPullRequests(ctx context.Context, w report.Window) ([]report.MergedPullRequest, error) {
	var all []report.MergedPullRequest
	var firstErr error
	seen := make(map[string]bool)

	record := func(repo string, pr *prItem) {
		key := fmt.Sprintf("%s#%d", repo, pr.Number)
		if seen[key] {
			return
		}
		seen[key] = true
		all = append(all, report.MergedPullRequest{
			Repo:   repo,
			Number: pr.Number,
			Title:  pr.Title,
			URL:    pr.HTMLURL,
			Base:   pr.Base.Ref,
		})
	}

	for _, repo := range c.repos {
		q := fmt.Sprintf("repo:%s/%s is:pr is:merged author:%s merged:>=%s",
			c.owner, repo, c.username, w.From().Format("2006-01-02"))
		for _, base := range c.mergeBases {
			q += " base:" + base
		}

		var result searchResult
		if err := c.get(ctx, "search/issues?"+searchQuery(q), &result); err != nil {
			c.logger.Warn("failed to search merged pull requests", "repo", repo, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, item := range result.Items {
			detail, err := c.pullRequest(ctx, repo, item.Number)
			if err != nil {
				c.logger.Warn("failed to fetch pull request details", "repo", repo, "number", item.Number, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			record(repo, detail)

			if detail.MergeCommitSHA == "" {
				continue
			}
			nested, err := c.commitPullRequests(ctx, repo, detail.MergeCommitSHA)
			if err != nil {
				c.logger.Warn("failed to fetch pull requests for merge commit", "repo", repo, "sha", detail.MergeCommitSHA, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			for i := range nested {
				pr := &nested[i]
				if pr.MergedAt == nil || pr.User.Login != c.username {
					continue
				}
				record(repo, pr)
			}
		}
	}

	return all, firstErr
}

func (c *Client) pullRequest(ctx context.Context, repo string, number int) (*prItem, error) {
	var pr prItem
	if err := c.get(ctx, fmt.Sprintf("repos/%s/%s/pulls/%d", c.owner, repo, number), &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (c *Client) commitPullRequests(ctx context.Context, repo, sha string) ([]prItem, error) {
	var prs []prItem
	if err := c.get(ctx, fmt.Sprintf("repos/%s/%s/commits/%s/pulls?state=closed", c.owner, repo, sha), &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// ReviewedPullRequests returns pull requests by others that the user
// reviewed and that were updated during the window.
func (c *Client) ReviewedPullRequests(ctx context.Context, w report.Window) ([]report.ReviewedPullRequest, error) {
	var all []report.ReviewedPullRequest
	var firstErr error

	for _, repo := range c.repos {
		q := fmt.Sprintf("repo:%s/%s is:pr reviewed-by:%s -author:%s updated:>=%s",
			c.owner, repo, c.username, c.username, w.From().Format("2006-01-02"))

		var result searchResult
		if err := c.get(ctx, "search/issues?"+searchQuery(q), &result); err != nil {
			c.logger.Warn("failed to search reviewed pull requests", "repo", repo, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, item := range result.Items {
			all = append(all, report.ReviewedPullRequest{
				Repo:   repo,
				Number: item.Number,
				Title:  item.Title,
				URL:    item.HTMLURL,
			})
		}
	}

	return all, firstErr
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.rest.DoWithContext(ctx, http.MethodGet, path, nil, v)
}

// getPage fetches one page into v and returns the rel="next" URL, if any.
// The REST client accepts absolute URLs, so the returned link can be fed
// straight back in.
func (c *Client) getPage(ctx context.Context, path string, v any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.rest.RequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return nextPageURL(resp.Header.Get("Link")), nil
}

func nextPageURL(header string) string {
	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}
		if strings.TrimSpace(parts[1]) != `rel="next"` {
			continue
		}
		return strings.Trim(strings.TrimSpace(parts[0]), "<>")
	}
	return ""
}

func searchQuery(q string) string {
	params := url.Values{}
	params.Set("q", q)
	params.Set("sort", "updated")
	params.Set("order", "desc")
	params.Set("per_page", "100")
	return params.Encode()
}
