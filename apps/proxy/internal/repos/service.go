package repos

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Service is the use-case orchestrator for the proxy's read operations.
// Each call is independent: it selects a credential, pins a commit and reads
// everything else at that commit. Nothing is kept between calls.
type Service struct {
	tokens            TokenProvider
	connect           Connector
	bundleConcurrency int
	tracer            trace.Tracer
	now               func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBundleConcurrency bounds concurrent file fetches per bundle page.
func WithBundleConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bundleConcurrency = n
		}
	}
}

// WithClock overrides the time source used for generatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(tokens TokenProvider, connect Connector, opts ...Option) *Service {
	s := &Service{
		tokens:            tokens,
		connect:           connect,
		bundleConcurrency: DefaultBundleConcurrency,
		tracer:            otel.Tracer("github.com/tilsley/repoproxy/repos"),
		now:               time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TreeRequest asks for the full tree of a ref.
type TreeRequest struct {
	RepoRef
}

// TreeResult is a pinned commit plus its recursive listing.
type TreeResult struct {
	Resolved ResolvedCommit
	Listing  *Listing
}

// FileRequest asks for a line window of one file.
type FileRequest struct {
	RepoRef
	Path  string
	Start int
	End   int
	Presentation
}

// BundleRequest asks for one page of the files under a directory.
type BundleRequest struct {
	RepoRef
	Dir        string
	Cursor     int
	ChunkFiles int
}

// MetaRequest asks for the JSON listing of everything under a directory.
type MetaRequest struct {
	RepoRef
	Dir string
}

// DiffRequest asks for the comparison of two refs.
type DiffRequest struct {
	Owner          string
	Repo           string
	Base           string
	Head           string
	Path           string
	ComputePatches bool
}

// MetaCounts summarises a meta listing.
type MetaCounts struct {
	Total int `json:"total"`
	Blobs int `json:"blobs"`
	Trees int `json:"trees"`
}

// MetaResult is the JSON listing of a directory at a pinned commit.
type MetaResult struct {
	Owner       string      `json:"owner"`
	Repo        string      `json:"repo"`
	Ref         string      `json:"ref"`
	CommitSHA   string      `json:"commitSha"`
	Dir         string      `json:"dir"`
	Counts      MetaCounts  `json:"counts"`
	Truncated   bool        `json:"truncated"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Items       []TreeEntry `json:"items"`
}

// Tree resolves the ref and lists the commit's tree.
func (s *Service) Tree(ctx context.Context, req TreeRequest) (res *TreeResult, err error) {
	ctx, span := s.start(ctx, "repos.Tree", req.RepoRef)
	defer func() { finish(span, err) }()

	if err := ValidateRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	up, rc, err := s.pin(ctx, span, req.RepoRef)
	if err != nil {
		return nil, err
	}
	listing, err := ListTree(ctx, up, req.Owner, req.Repo, rc.CommitSHA)
	if err != nil {
		return nil, err
	}
	return &TreeResult{Resolved: rc, Listing: listing}, nil
}

// Meta lists every entry under a directory at the pinned commit.
func (s *Service) Meta(ctx context.Context, req MetaRequest) (res *MetaResult, err error) {
	ctx, span := s.start(ctx, "repos.Meta", req.RepoRef)
	defer func() { finish(span, err) }()

	if err := ValidateRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	dir, err := NormalizePath("dir", req.Dir)
	if err != nil {
		return nil, err
	}
	up, rc, err := s.pin(ctx, span, req.RepoRef)
	if err != nil {
		return nil, err
	}
	listing, err := ListTree(ctx, up, req.Owner, req.Repo, rc.CommitSHA)
	if err != nil {
		return nil, err
	}

	items := Under(listing.Entries, dir)
	counts := MetaCounts{Total: len(items)}
	for _, it := range items {
		switch it.Type {
		case EntryBlob:
			counts.Blobs++
		case EntryTree:
			counts.Trees++
		}
	}
	return &MetaResult{
		Owner:       req.Owner,
		Repo:        req.Repo,
		Ref:         rc.Ref,
		CommitSHA:   rc.CommitSHA,
		Dir:         dir,
		Counts:      counts,
		Truncated:   listing.Truncated,
		GeneratedAt: s.now().UTC(),
		Items:       items,
	}, nil
}

// FileChunk returns one line window of a file at the pinned commit.
func (s *Service) FileChunk(ctx context.Context, req FileRequest) (res Response, err error) {
	ctx, span := s.start(ctx, "repos.FileChunk", req.RepoRef)
	defer func() { finish(span, err) }()

	if err := ValidateRepo(req.Owner, req.Repo); err != nil {
		return Response{}, err
	}
	p, err := NormalizePath("path", req.Path)
	if err != nil {
		return Response{}, err
	}
	if p == "" {
		return Response{}, InvalidInputError{Field: "path", Reason: "is required"}
	}
	if err := CheckWindow(req.Start, req.End); err != nil {
		return Response{}, err
	}
	span.SetAttributes(attribute.String("repo.path", p))

	up, rc, err := s.pin(ctx, span, req.RepoRef)
	if err != nil {
		return Response{}, err
	}
	fc, err := FetchFile(ctx, up, req.Owner, req.Repo, rc.CommitSHA, p)
	if err != nil {
		return Response{}, err
	}
	window, chunk, err := ChunkLines(SplitLines(fc.Text), req.Start, req.End)
	if err != nil {
		return Response{}, err
	}
	return ComposeFileChunk(req.Owner, req.Repo, rc, fc, window, chunk, req.Presentation), nil
}

// Bundle returns one page of the files under a directory, concatenated.
func (s *Service) Bundle(ctx context.Context, req BundleRequest) (res Response, err error) {
	ctx, span := s.start(ctx, "repos.Bundle", req.RepoRef)
	defer func() { finish(span, err) }()

	if err := ValidateRepo(req.Owner, req.Repo); err != nil {
		return Response{}, err
	}
	dir, err := NormalizePath("dir", req.Dir)
	if err != nil {
		return Response{}, err
	}
	if req.Cursor < 0 {
		return Response{}, InvalidInputError{Field: "cursor", Reason: "must be >= 0"}
	}

	up, rc, err := s.pin(ctx, span, req.RepoRef)
	if err != nil {
		return Response{}, err
	}
	listing, err := ListTree(ctx, up, req.Owner, req.Repo, rc.CommitSHA)
	if err != nil {
		return Response{}, err
	}
	page := PageFiles(Files(listing.Entries, dir), req.Cursor, req.ChunkFiles)
	span.SetAttributes(
		attribute.Int("bundle.cursor", page.Cursor),
		attribute.Int("bundle.files", len(page.Files)),
	)
	items, err := FetchBundle(ctx, up, req.Owner, req.Repo, rc.CommitSHA, page, s.bundleConcurrency)
	if err != nil {
		return Response{}, err
	}
	return ComposeBundle(req.Owner, req.Repo, rc, dir, page, items), nil
}

// Diff compares two refs after pinning both to commits.
func (s *Service) Diff(ctx context.Context, req DiffRequest) (res *DiffResult, err error) {
	ctx, span := s.start(ctx, "repos.Diff", RepoRef{Owner: req.Owner, Repo: req.Repo, RefInput: req.Head})
	defer func() { finish(span, err) }()

	if err := ValidateRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	if req.Base == "" {
		return nil, InvalidInputError{Field: "base", Reason: "is required"}
	}
	if req.Head == "" {
		return nil, InvalidInputError{Field: "head", Reason: "is required"}
	}
	prefix, err := NormalizePath("path", req.Path)
	if err != nil {
		return nil, err
	}

	up, err := s.session(ctx, req.Owner)
	if err != nil {
		return nil, err
	}
	base, head, err := ResolvePair(ctx, up, req.Owner, req.Repo, req.Base, req.Head)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("repo.base_commit", base.CommitSHA),
		attribute.String("repo.head_commit", head.CommitSHA),
	)

	cmp, err := up.Compare(ctx, req.Owner, req.Repo, base.CommitSHA, head.CommitSHA)
	if err != nil {
		return nil, err
	}
	files := FilterChanges(cmp.Files, prefix)
	if req.ComputePatches {
		if err := ComputeMissingPatches(ctx, up, req.Owner, req.Repo, base.CommitSHA, head.CommitSHA, files, s.bundleConcurrency); err != nil {
			return nil, fmt.Errorf("compute patches: %w", err)
		}
	}
	for i := range files {
		files[i].Patch, files[i].PatchTruncated = TruncatePatch(files[i].Patch, MaxPatchBytes)
	}

	commits := cmp.Commits
	if len(commits) > MaxDiffCommits {
		commits = commits[:MaxDiffCommits]
	}
	for i := range commits {
		commits[i].Message = FirstLine(commits[i].Message)
	}

	return &DiffResult{
		Owner:         req.Owner,
		Repo:          req.Repo,
		Base:          base.Ref,
		Head:          head.Ref,
		BaseCommitSHA: base.CommitSHA,
		HeadCommitSHA: head.CommitSHA,
		Path:          prefix,
		Status:        cmp.Status,
		AheadBy:       cmp.AheadBy,
		BehindBy:      cmp.BehindBy,
		TotalCommits:  cmp.TotalCommits,
		Commits:       commits,
		Files:         files,
	}, nil
}

// session selects the owner's credential once and binds an Upstream to it.
func (s *Service) session(ctx context.Context, owner string) (Upstream, error) {
	token, err := s.tokens.ForOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, MissingCredentialError{Owner: owner}
	}
	return s.connect(token), nil
}

func (s *Service) pin(ctx context.Context, span trace.Span, ref RepoRef) (Upstream, ResolvedCommit, error) {
	up, err := s.session(ctx, ref.Owner)
	if err != nil {
		return nil, ResolvedCommit{}, err
	}
	rc, err := Resolve(ctx, up, ref.Owner, ref.Repo, ref.RefInput)
	if err != nil {
		return nil, ResolvedCommit{}, err
	}
	span.SetAttributes(attribute.String("repo.commit", rc.CommitSHA))
	return up, rc, nil
}

func (s *Service) start(ctx context.Context, name string, ref RepoRef) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("repo.owner", ref.Owner),
		attribute.String("repo.name", ref.Repo),
		attribute.String("repo.ref_input", ref.RefInput),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
