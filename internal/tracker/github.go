package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const githubTimeout = 15 * time.Second

// GitHub files issues against a single repository via the REST v3 API.
type GitHub struct {
	token      string
	owner      string
	repo       string
	baseURL    string
	httpClient *http.Client
}

// NewGitHub creates a GitHub Issues client for "owner/repo".
func NewGitHub(token, ownerRepo string) (*GitHub, error) {
	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("github repo must be owner/repo, got %q", ownerRepo)
	}
	return &GitHub{
		token:   token,
		owner:   owner,
		repo:    repo,
		baseURL: "https://api.github.com",
		httpClient: &http.Client{
			Timeout: githubTimeout,
		},
	}, nil
}

func (g *GitHub) Name() string { return "github" }

type githubIssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	State     string   `json:"state,omitempty"`
}

type githubIssueResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// CreateIssue files a new issue and returns a "owner/repo#number" ref.
func (g *GitHub) CreateIssue(ctx context.Context, issue *Issue) (string, error) {
	req := githubIssueRequest{
		Title:  issue.Title,
		Body:   issue.Body,
		Labels: issue.Labels,
	}
	if issue.Assignee != "" {
		req.Assignees = []string{issue.Assignee}
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues", g.baseURL, g.owner, g.repo)
	var resp githubIssueResponse
	if err := g.do(ctx, http.MethodPost, url, &req, &resp); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s#%d", g.owner, g.repo, resp.Number), nil
}

// UpdateIssue patches the title/body/labels of an existing issue.
func (g *GitHub) UpdateIssue(ctx context.Context, ref string, issue *Issue) error {
	number, err := g.issueNumber(ref)
	if err != nil {
		return err
	}

	req := githubIssueRequest{
		Title:  issue.Title,
		Body:   issue.Body,
		Labels: issue.Labels,
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", g.baseURL, g.owner, g.repo, number)
	return g.do(ctx, http.MethodPatch, url, &req, nil)
}

// CloseIssue marks the referenced issue closed.
func (g *GitHub) CloseIssue(ctx context.Context, ref string) error {
	number, err := g.issueNumber(ref)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", g.baseURL, g.owner, g.repo, number)
	return g.do(ctx, http.MethodPatch, url, &githubIssueRequest{State: "closed"}, nil)
}

// issueNumber parses the "#<number>" tail of a ref produced by CreateIssue.
func (g *GitHub) issueNumber(ref string) (int, error) {
	_, tail, ok := strings.Cut(ref, "#")
	if !ok {
		return 0, fmt.Errorf("invalid issue ref %q", ref)
	}
	var number int
	if _, err := fmt.Sscanf(tail, "%d", &number); err != nil {
		return 0, fmt.Errorf("invalid issue ref %q: %w", ref, err)
	}
	return number, nil
}

func (g *GitHub) do(ctx context.Context, method, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github api error %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
