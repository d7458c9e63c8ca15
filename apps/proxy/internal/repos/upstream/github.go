// Package upstream implements the repos.Upstream port using the official
// go-github library. Wire it up with an authenticated *github.Client from
// apps/proxy/internal/platform/github.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 15 * time.Second

// maxTagDepth stops peeling tags that point at other tags.
const maxTagDepth = 5

var _ repos.Upstream = (*Adapter)(nil)

// Adapter wraps a go-github client and implements repos.Upstream. One
// instance is bound to one credential and lives for one proxy request.
type Adapter struct {
	gh       *gogithub.Client
	timeout  time.Duration
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout sets the per-call timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// New creates an Adapter from an authenticated *github.Client.
func New(gh *gogithub.Client, opts ...Option) *Adapter {
	meter := otel.Meter("github.com/tilsley/repoproxy/upstream")
	calls, _ := meter.Int64Counter("repoproxy.upstream.requests",
		metric.WithDescription("Upstream GitHub API calls by operation and status."))
	duration, _ := meter.Float64Histogram("repoproxy.upstream.duration",
		metric.WithDescription("Upstream GitHub API call latency."),
		metric.WithUnit("ms"))

	a := &Adapter{gh: gh, timeout: DefaultTimeout, calls: calls, duration: duration}
	for _, o := range opts {
		o(a)
	}
	return a
}

// GetRepository returns the repository's full name and default branch.
func (a *Adapter) GetRepository(ctx context.Context, owner, repo string) (*repos.RepoInfo, error) {
	ctx, done := a.call(ctx, "get_repository")
	r, _, err := a.gh.Repositories.Get(ctx, owner, repo)
	if err = done(err); err != nil {
		return nil, err
	}
	return &repos.RepoInfo{FullName: r.GetFullName(), DefaultBranch: r.GetDefaultBranch()}, nil
}

// LookupRef resolves "heads/<name>" or "tags/<name>" to a commit SHA.
// Annotated tags are peeled through the tag object to the commit they name.
func (a *Adapter) LookupRef(ctx context.Context, owner, repo, ref string) (string, error) {
	cctx, done := a.call(ctx, "get_ref")
	r, _, err := a.gh.Git.GetRef(cctx, owner, repo, ref)
	if err = done(err); err != nil {
		return "", err
	}
	objType, sha := r.GetObject().GetType(), r.GetObject().GetSHA()
	for depth := 0; objType == "tag"; depth++ {
		if depth == maxTagDepth {
			return "", fmt.Errorf("tag %s nests deeper than %d levels", ref, maxTagDepth)
		}
		tctx, done := a.call(ctx, "get_tag")
		tag, _, err := a.gh.Git.GetTag(tctx, owner, repo, sha)
		if err = done(err); err != nil {
			return "", err
		}
		objType, sha = tag.GetObject().GetType(), tag.GetObject().GetSHA()
	}
	return sha, nil
}

// ExpandCommitSHA asks the commits endpoint for the full SHA of an
// abbreviated one.
func (a *Adapter) ExpandCommitSHA(ctx context.Context, owner, repo, sha string) (string, error) {
	ctx, done := a.call(ctx, "get_commit_sha")
	full, _, err := a.gh.Repositories.GetCommitSHA1(ctx, owner, repo, sha, "")
	if err = done(err); err != nil {
		return "", err
	}
	return strings.TrimSpace(full), nil
}

// GetCommitTree returns the root tree SHA of a commit.
func (a *Adapter) GetCommitTree(ctx context.Context, owner, repo, commitSHA string) (string, error) {
	ctx, done := a.call(ctx, "get_commit")
	c, _, err := a.gh.Git.GetCommit(ctx, owner, repo, commitSHA)
	if err = done(err); err != nil {
		return "", err
	}
	return c.GetTree().GetSHA(), nil
}

// GetTree returns the recursive listing of a tree.
func (a *Adapter) GetTree(ctx context.Context, owner, repo, treeSHA string) (*repos.Listing, error) {
	ctx, done := a.call(ctx, "get_tree")
	t, _, err := a.gh.Git.GetTree(ctx, owner, repo, treeSHA, true)
	if err = done(err); err != nil {
		return nil, err
	}
	entries := make([]repos.TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, repos.TreeEntry{
			Path: e.GetPath(),
			Type: repos.EntryType(e.GetType()),
			SHA:  e.GetSHA(),
			Size: e.Size,
			Mode: e.GetMode(),
		})
	}
	return &repos.Listing{TreeSHA: t.GetSHA(), Entries: entries, Truncated: t.GetTruncated()}, nil
}

// GetRawFile downloads a file body at a commit using the raw media type, so
// files larger than the JSON contents limit come back whole.
func (a *Adapter) GetRawFile(ctx context.Context, owner, repo, filePath, commitSHA string) (*repos.RawFile, error) {
	u := fmt.Sprintf("repos/%s/%s/contents/%s?ref=%s",
		url.PathEscape(owner), url.PathEscape(repo), escapePath(filePath), url.QueryEscape(commitSHA))
	req, err := a.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build contents request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")

	ctx, done := a.call(ctx, "get_contents")
	var buf bytes.Buffer
	_, err = a.gh.Do(ctx, req, &buf)
	if err = done(err); err != nil {
		return nil, err
	}
	return &repos.RawFile{Path: filePath, Data: buf.Bytes()}, nil
}

// Compare returns the upstream comparison of base...head.
func (a *Adapter) Compare(ctx context.Context, owner, repo, base, head string) (*repos.Comparison, error) {
	ctx, done := a.call(ctx, "compare")
	cmp, _, err := a.gh.Repositories.CompareCommits(ctx, owner, repo, base, head, nil)
	if err = done(err); err != nil {
		return nil, err
	}

	out := &repos.Comparison{
		Status:       cmp.GetStatus(),
		AheadBy:      cmp.GetAheadBy(),
		BehindBy:     cmp.GetBehindBy(),
		TotalCommits: cmp.GetTotalCommits(),
		Commits:      make([]repos.CommitSummary, 0, len(cmp.Commits)),
		Files:        make([]repos.FileChange, 0, len(cmp.Files)),
	}
	for _, c := range cmp.Commits {
		author := c.GetCommit().GetAuthor().GetName()
		if author == "" {
			author = c.GetAuthor().GetLogin()
		}
		out.Commits = append(out.Commits, repos.CommitSummary{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			Author:  author,
			Date:    c.GetCommit().GetAuthor().GetDate().Time,
		})
	}
	for _, f := range cmp.Files {
		out.Files = append(out.Files, repos.FileChange{
			Filename:         f.GetFilename(),
			PreviousFilename: f.GetPreviousFilename(),
			Status:           f.GetStatus(),
			Additions:        f.GetAdditions(),
			Deletions:        f.GetDeletions(),
			Changes:          f.GetChanges(),
			BlobURL:          f.GetBlobURL(),
			RawURL:           f.GetRawURL(),
			Patch:            f.GetPatch(),
		})
	}
	return out, nil
}

// call derives the per-call context and returns a completion func that
// records metrics and maps the error.
func (a *Adapter) call(ctx context.Context, op string) (context.Context, func(error) error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	start := time.Now()
	return ctx, func(err error) error {
		defer cancel()
		mapped := mapError(op, err)
		status := http.StatusOK
		var upErr repos.UpstreamError
		if errors.As(mapped, &upErr) {
			status = upErr.Status
		}
		attrs := metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", strconv.Itoa(status)),
		)
		a.calls.Add(ctx, 1, attrs)
		a.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		return mapped
	}
}

// mapError turns go-github failures into repos.UpstreamError so the HTTP
// layer can forward the upstream status. Caller cancellation passes through.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	var respErr *gogithub.ErrorResponse
	switch {
	case errors.As(err, &rateErr):
		return upstreamError(op, rateErr.Response, http.StatusForbidden, rateErr.Message)
	case errors.As(err, &abuseErr):
		return upstreamError(op, abuseErr.Response, http.StatusForbidden, abuseErr.Message)
	case errors.As(err, &respErr):
		return upstreamError(op, respErr.Response, http.StatusBadGateway, respErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return repos.UpstreamError{Op: op, Status: http.StatusGatewayTimeout, Message: "upstream request timed out"}
	case errors.Is(err, context.Canceled):
		return err
	}
	return repos.UpstreamError{Op: op, Status: http.StatusBadGateway, Message: err.Error()}
}

func upstreamError(op string, resp *http.Response, fallback int, msg string) repos.UpstreamError {
	status := fallback
	if resp != nil && resp.StatusCode != 0 {
		status = resp.StatusCode
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return repos.UpstreamError{Op: op, Status: status, Message: msg}
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
