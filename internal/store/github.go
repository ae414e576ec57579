package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"paperdaily/internal/retry"
)

const (
	// GitHub rejects issue bodies above 65536 characters. Stay under the
	// limit so an append never bounces the whole aggregate.
	maxBodyChars = 65000

	entrySeparator = "\n\n---\n\n"
	entriesMarker  = "<!-- entries -->\n\n"
	truncationNote = "\n\n---\n\n*Further papers were omitted because the issue body limit was reached.*"
)

// paperIDRegex matches the ID line rendered by renderEntry. Dedup across
// runs is driven entirely by these lines.
var paperIDRegex = regexp.MustCompile("\\*\\*Paper ID\\*\\*: `([^`\n]+)`")

// GitHubStore keeps one issue per day in a tracker repository. The issue
// body is the aggregate digest, appended to on reruns.
type GitHubStore struct {
	client      *github.Client
	owner       string
	repo        string
	label       string
	retryConfig retry.Config
}

func NewGitHubStore(token, owner, repo, label string) *GitHubStore {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &GitHubStore{
		client: github.NewClient(httpClient).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		label:  label,
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
			RetryIf:    retryableGitHubError,
		},
	}
}

func issueTitle(day time.Time) string {
	return fmt.Sprintf("[Daily] %s Paper Digest", day.Format("2006-01-02"))
}

// RecordedIDs parses the day's aggregate issue for archived paper IDs.
// A missing issue yields an empty set.
func (s *GitHubStore) RecordedIDs(ctx context.Context, day time.Time) (map[string]bool, error) {
	var issue *github.Issue
	err := retry.WithBackoff(ctx, s.retryConfig, func(ctx context.Context) error {
		var err error
		issue, err = s.findIssue(ctx, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to look up issue for %s: %w", day.Format("2006-01-02"), err)
	}

	ids := make(map[string]bool)
	if issue == nil {
		return ids, nil
	}
	for _, m := range paperIDRegex.FindAllStringSubmatch(issue.GetBody(), -1) {
		ids[m[1]] = true
	}
	return ids, nil
}

// Archive appends records to the day's issue, creating it when absent.
// The read-modify-write runs as one retried unit so a failed write is
// retried against a fresh read.
func (s *GitHubStore) Archive(ctx context.Context, day time.Time, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := retry.WithBackoff(ctx, s.retryConfig, func(ctx context.Context) error {
		return s.archiveOnce(ctx, day, records)
	})
	if err != nil {
		return fmt.Errorf("store: failed to archive %d records for %s: %w", len(records), day.Format("2006-01-02"), err)
	}
	return nil
}

func (s *GitHubStore) archiveOnce(ctx context.Context, day time.Time, records []Record) error {
	issue, err := s.findIssue(ctx, day)
	if err != nil {
		return err
	}

	entries := ""
	if issue != nil {
		entries = entriesSection(issue.GetBody())
	}

	existing := make(map[string]bool)
	for _, m := range paperIDRegex.FindAllStringSubmatch(entries, -1) {
		existing[m[1]] = true
	}

	added := 0
	truncated := false
	for _, rec := range records {
		if existing[rec.ID] {
			continue
		}
		entry := renderEntry(rec)
		if len(entries)+len(entry)+len(entrySeparator) > maxBodyChars {
			if !strings.HasSuffix(entries, truncationNote) {
				entries += truncationNote
				truncated = true
			}
			break
		}
		if entries != "" {
			entries += entrySeparator
		}
		entries += entry
		existing[rec.ID] = true
		added++
	}

	if issue != nil && added == 0 && !truncated {
		return nil
	}

	count := len(paperIDRegex.FindAllString(entries, -1))
	body := renderHeader(day, count) + entries

	if issue == nil {
		req := &github.IssueRequest{
			Title:  github.String(issueTitle(day)),
			Body:   github.String(body),
			Labels: &[]string{s.label},
		}
		if _, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, req); err != nil {
			return fmt.Errorf("failed to create issue: %w", err)
		}
		return nil
	}

	req := &github.IssueRequest{Body: github.String(body)}
	if _, _, err := s.client.Issues.Edit(ctx, s.owner, s.repo, issue.GetNumber(), req); err != nil {
		return fmt.Errorf("failed to update issue %d: %w", issue.GetNumber(), err)
	}
	return nil
}

// findIssue locates the day's aggregate by exact title match among
// labeled issues. Closed issues still count so a day is never archived
// twice.
func (s *GitHubStore) findIssue(ctx context.Context, day time.Time) (*github.Issue, error) {
	title := issueTitle(day)
	opts := &github.IssueListByRepoOptions{
		Labels:      []string{s.label},
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}
		for _, issue := range issues {
			if issue.GetTitle() == title {
				return issue, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// entriesSection returns the body after the entries marker, or the whole
// body when the marker is missing.
func entriesSection(body string) string {
	if idx := strings.Index(body, entriesMarker); idx >= 0 {
		return body[idx+len(entriesMarker):]
	}
	return body
}

func renderHeader(day time.Time, count int) string {
	return fmt.Sprintf("## Daily Paper Digest %s\n\n**Papers**: %d | **Last updated**: %s\n\n%s",
		day.Format("2006-01-02"), count, time.Now().UTC().Format(time.RFC3339), entriesMarker)
}

func renderEntry(rec Record) string {
	delivered := "no"
	if rec.Delivered {
		delivered = "yes"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", rec.Title)
	fmt.Fprintf(&b, "**Paper ID**: `%s`\n", rec.ID)
	fmt.Fprintf(&b, "**Source**: %s\n", rec.Source)
	fmt.Fprintf(&b, "**Link**: %s\n", rec.URL)
	fmt.Fprintf(&b, "**Processed**: %s\n", rec.ProcessedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Delivered**: %s\n\n", delivered)
	b.WriteString(rec.Summary)
	return b.String()
}

// retryableGitHubError treats rate limiting and server errors as
// transient and everything else as permanent.
func retryableGitHubError(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return retry.HTTPStatusRetryable(respErr.Response.StatusCode)
	}
	return retry.IsRetryable(err)
}
