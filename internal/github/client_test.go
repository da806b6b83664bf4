package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekrep/weekrep/internal/report"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResponse struct {
	status int
	body   string
	link   string
}

// stubTransport serves canned responses keyed by URL path and records every
// request it sees.
type stubTransport struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	requests  []*url.URL
}

func (s *stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL)
	stub, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	header := http.Header{"Content-Type": []string{"application/json"}}
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{"message":"Not Found"}`)),
			Header:     header,
			Request:    r,
		}, nil
	}

	if stub.link != "" {
		header.Set("Link", stub.link)
	}
	status := stub.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(stub.body)),
		Header:     header,
		Request:    r,
	}, nil
}

func (s *stubTransport) requestPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, len(s.requests))
	for i, u := range s.requests {
		paths[i] = u.Path
	}
	return paths
}

func newTestClient(t *testing.T, transport *stubTransport, mergeBases ...string) *Client {
	t.Helper()
	client, err := NewClient(Options{
		Token:      "test-token",
		Owner:      "acme",
		Username:   "jdoe",
		Repos:      []string{"api"},
		MergeBases: mergeBases,
		Transport:  transport,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return client
}

func testWindow() report.Window {
	return report.Window{
		Start: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
	}
}

func prJSON(number int, user, updated string) string {
	return fmt.Sprintf(`{
		"number": %d,
		"title": "PR %d",
		"html_url": "https://github.com/acme/api/pull/%d",
		"updated_at": "%s",
		"user": {"login": "%s"},
		"base": {"ref": "main"}
	}`, number, number, number, updated, user)
}

func commitJSON(sha, user, date string) string {
	author := "null"
	if user != "" {
		author = fmt.Sprintf(`{"login": "%s"}`, user)
	}
	return fmt.Sprintf(`{
		"sha": "%s",
		"html_url": "https://github.com/acme/api/commit/%s",
		"commit": {"message": "Change %s", "committer": {"date": "%s"}},
		"author": %s
	}`, sha, sha, sha, date, author)
}

func TestPullRequestsWithCommits_FiltersAndStopsAtStaleEntries(t *testing.T) {
	transport := &stubTransport{responses: map[string]stubResponse{
		"/repos/acme/api/pulls": {
			body: "[" + strings.Join([]string{
				prJSON(6, "jdoe", "2024-06-06T12:00:00Z"),
				prJSON(5, "jdoe", "2024-06-05T12:00:00Z"),
				prJSON(4, "other", "2024-06-04T12:00:00Z"),
				prJSON(3, "jdoe", "2024-05-20T12:00:00Z"),
			}, ",") + "]",
			link: `<https://api.github.com/repositories/1/pulls?page=2>; rel="next"`,
		},
		// Every commit outside the window, so the pull request is dropped.
		"/repos/acme/api/pulls/6/commits": {
			body: "[" + commitJSON("aaa1111bbb", "jdoe", "2024-05-30T10:00:00Z") + "]",
		},
		"/repos/acme/api/pulls/5/commits": {
			body: "[" + strings.Join([]string{
				commitJSON("abc1234def", "jdoe", "2024-06-05T10:00:00Z"),
				commitJSON("ddd2222eee", "other", "2024-06-05T11:00:00Z"),
				commitJSON("fff3333aaa", "", "2024-06-05T12:00:00Z"),
			}, ",") + "]",
		},
	}}
	client := newTestClient(t, transport)

	prs, err := client.PullRequestsWithCommits(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, prs, 1)
	assert.Equal(t, "api", prs[0].Repo)
	assert.Equal(t, 5, prs[0].Number)
	assert.Equal(t, "PR 5", prs[0].Title)
	require.Len(t, prs[0].Commits, 1)
	assert.Equal(t, "abc1234def", prs[0].Commits[0].SHA)
	assert.Equal(t, "Change abc1234def", prs[0].Commits[0].Message)

	// The stale entry ends the scan before the next page is touched.
	assert.NotContains(t, transport.requestPaths(), "/repositories/1/pulls")
}

func TestPullRequestsWithCommits_FollowsPagination(t *testing.T) {
	transport := &stubTransport{responses: map[string]stubResponse{
		"/repos/acme/api/pulls": {
			body: "[" + prJSON(9, "other", "2024-06-06T12:00:00Z") + "]",
			link: `<https://api.github.com/repositories/1/pulls?page=2>; rel="next"`,
		},
		"/repositories/1/pulls": {
			body: "[" + prJSON(8, "jdoe", "2024-06-05T12:00:00Z") + "]",
		},
		"/repos/acme/api/pulls/8/commits": {
			body: "[" + commitJSON("abc1234def", "jdoe", "2024-06-05T10:00:00Z") + "]",
		},
	}}
	client := newTestClient(t, transport)

	prs, err := client.PullRequestsWithCommits(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, prs, 1)
	assert.Equal(t, 8, prs[0].Number)
	assert.Contains(t, transport.requestPaths(), "/repositories/1/pulls")
}

func TestPullRequestsWithCommits_ServerError(t *testing.T) {
	transport := &stubTransport{responses: map[string]stubResponse{
		"/repos/acme/api/pulls": {status: http.StatusInternalServerError, body: `{"message":"boom"}`},
	}}
	client := newTestClient(t, transport)

	prs, err := client.PullRequestsWithCommits(context.Background(), testWindow())
	require.Error(t, err)
	assert.Empty(t, prs)
}

func TestMergedPullRequests_IncludesNestedAndDeduplicates(t *testing.T) {
	mergedAt := `"2024-06-05T15:00:00Z"`
	transport := &stubTransport{responses: map[string]stubResponse{
		"/search/issues": {
			body: `{"items":[{"number":10,"title":"Add cache","html_url":"https://github.com/acme/api/pull/10"}]}`,
		},
		"/repos/acme/api/pulls/10": {
			body: `{"number":10,"title":"Add cache","html_url":"https://github.com/acme/api/pull/10",
				"merged_at":` + mergedAt + `,"merge_commit_sha":"deadbeef",
				"user":{"login":"jdoe"},"base":{"ref":"main"}}`,
		},
		"/repos/acme/api/commits/deadbeef/pulls": {
			body: `[
				{"number":10,"title":"Add cache","html_url":"https://github.com/acme/api/pull/10",
					"merged_at":` + mergedAt + `,"user":{"login":"jdoe"},"base":{"ref":"main"}},
				{"number":11,"title":"Folded in","html_url":"https://github.com/acme/api/pull/11",
					"merged_at":` + mergedAt + `,"user":{"login":"jdoe"},"base":{"ref":"main"}},
				{"number":12,"title":"Someone else","html_url":"https://github.com/acme/api/pull/12",
					"merged_at":` + mergedAt + `,"user":{"login":"other"},"base":{"ref":"main"}},
				{"number":13,"title":"Never merged","html_url":"https://github.com/acme/api/pull/13",
					"merged_at":null,"user":{"login":"jdoe"},"base":{"ref":"main"}}
			]`,
		},
	}}
	client := newTestClient(t, transport, "main")

	merged, err := client.MergedPullRequests(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, merged, 2)
	assert.Equal(t, 10, merged[0].Number)
	assert.Equal(t, "main", merged[0].Base)
	assert.Equal(t, 11, merged[1].Number)

	var query string
	for _, u := range transport.requests {
		if u.Path == "/search/issues" {
			query = u.Query().Get("q")
		}
	}
	assert.Equal(t, "repo:acme/api is:pr is:merged author:jdoe merged:>=2024-06-03 base:main", query)
}

func TestReviewedPullRequests(t *testing.T) {
	transport := &stubTransport{responses: map[string]stubResponse{
		"/search/issues": {
			body: `{"items":[
				{"number":9,"title":"Refactor nav","html_url":"https://github.com/acme/api/pull/9"},
				{"number":7,"title":"Bump deps","html_url":"https://github.com/acme/api/pull/7"}
			]}`,
		},
	}}
	client := newTestClient(t, transport)

	reviewed, err := client.ReviewedPullRequests(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, reviewed, 2)
	assert.Equal(t, report.ReviewedPullRequest{
		Repo:   "api",
		Number: 9,
		Title:  "Refactor nav",
		URL:    "https://github.com/acme/api/pull/9",
	}, reviewed[0])

	require.NotEmpty(t, transport.requests)
	q := transport.requests[0].Query().Get("q")
	assert.Equal(t, "repo:acme/api is:pr reviewed-by:jdoe -author:jdoe updated:>=2024-06-03", q)
}

func TestNextPageURL(t *testing.T) {
	header := `<https://api.github.com/repositories/1/pulls?page=2>; rel="next", ` +
		`<https://api.github.com/repositories/1/pulls?page=10>; rel="last"`
	assert.Equal(t, "https://api.github.com/repositories/1/pulls?page=2", nextPageURL(header))

	assert.Equal(t, "", nextPageURL(`<https://api.github.com/x?page=10>; rel="last"`))
	assert.Equal(t, "", nextPageURL(""))
}
