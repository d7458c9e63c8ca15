package repos_test

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// Compile-time interface compliance checks.
var (
	_ repos.Upstream      = (*memUpstream)(nil)
	_ repos.TokenProvider = (*stubTokens)(nil)
)

const (
	commitA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	commitB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	treeA   = "1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a"
	treeB   = "1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b"
)

func ptr[T any](v T) *T { return &v }

// ─── memUpstream ──────────────────────────────────────────────────────────────

// memUpstream serves a canned repository. Function fields override single
// calls; everything else is answered from the maps.
type memUpstream struct {
	info    repos.RepoInfo
	refs    map[string]string            // "heads/main" -> sha
	short   map[string]string            // abbreviated -> full
	trees   map[string]string            // commit -> tree
	listing map[string]*repos.Listing    // tree -> listing
	files   map[string]map[string]string // commit -> path -> content
	compare *repos.Comparison

	getRepositoryFn func(ctx context.Context, owner, repo string) (*repos.RepoInfo, error)
	lookupRefFn     func(ctx context.Context, owner, repo, ref string) (string, error)
	getRawFileFn    func(ctx context.Context, owner, repo, path, sha string) (*repos.RawFile, error)

	mu       sync.Mutex
	lookups  []string
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newMemUpstream() *memUpstream {
	return &memUpstream{
		info:    repos.RepoInfo{FullName: "acme/widgets", DefaultBranch: "main"},
		refs:    map[string]string{"heads/main": commitA},
		short:   map[string]string{},
		trees:   map[string]string{commitA: treeA, commitB: treeB},
		listing: map[string]*repos.Listing{},
		files:   map[string]map[string]string{commitA: {}, commitB: {}},
	}
}

// withFiles installs a snapshot at commit and derives its listing.
func (m *memUpstream) withFiles(commit string, files map[string]string) *memUpstream {
	m.files[commit] = files
	dirs := map[string]bool{}
	var entries []repos.TreeEntry
	for p, content := range files {
		entries = append(entries, repos.TreeEntry{
			Path: p, Type: repos.EntryBlob, SHA: repos.BlobSHA([]byte(content)), Size: ptr(len(content)), Mode: "100644",
		})
		for i := strings.LastIndexByte(p, '/'); i > 0; i = strings.LastIndexByte(p[:i], '/') {
			dirs[p[:i]] = true
		}
	}
	for d := range dirs {
		entries = append(entries, repos.TreeEntry{Path: d, Type: repos.EntryTree, SHA: "tree-" + d, Mode: "040000"})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path > entries[j].Path }) // deliberately unsorted
	m.listing[m.trees[commit]] = &repos.Listing{Entries: entries}
	return m
}

func notFound(op string) error {
	return repos.UpstreamError{Op: op, Status: http.StatusNotFound, Message: "Not Found"}
}

func (m *memUpstream) GetRepository(ctx context.Context, owner, repo string) (*repos.RepoInfo, error) {
	m.calls.Add(1)
	if m.getRepositoryFn != nil {
		return m.getRepositoryFn(ctx, owner, repo)
	}
	info := m.info
	return &info, nil
}

func (m *memUpstream) LookupRef(ctx context.Context, owner, repo, ref string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lookups = append(m.lookups, ref)
	m.mu.Unlock()
	if m.lookupRefFn != nil {
		return m.lookupRefFn(ctx, owner, repo, ref)
	}
	if sha, ok := m.refs[ref]; ok {
		return sha, nil
	}
	return "", notFound("get_ref")
}

func (m *memUpstream) ExpandCommitSHA(_ context.Context, _, _, sha string) (string, error) {
	m.calls.Add(1)
	if full, ok := m.short[sha]; ok {
		return full, nil
	}
	return "", repos.UpstreamError{Op: "get_commit_sha", Status: http.StatusUnprocessableEntity, Message: "No commit found for SHA: " + sha}
}

func (m *memUpstream) GetCommitTree(_ context.Context, _, _, commitSHA string) (string, error) {
	m.calls.Add(1)
	if t, ok := m.trees[commitSHA]; ok {
		return t, nil
	}
	return "", notFound("get_commit")
}

func (m *memUpstream) GetTree(_ context.Context, _, _, treeSHA string) (*repos.Listing, error) {
	m.calls.Add(1)
	l, ok := m.listing[treeSHA]
	if !ok {
		return &repos.Listing{}, nil
	}
	cp := *l
	cp.Entries = append([]repos.TreeEntry(nil), l.Entries...)
	return &cp, nil
}

func (m *memUpstream) GetRawFile(ctx context.Context, owner, repo, path, commitSHA string) (*repos.RawFile, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.getRawFileFn != nil {
		return m.getRawFileFn(ctx, owner, repo, path, commitSHA)
	}
	content, ok := m.files[commitSHA][path]
	if !ok {
		return nil, notFound("get_contents")
	}
	return &repos.RawFile{Path: path, Data: []byte(content)}, nil
}

func (m *memUpstream) Compare(_ context.Context, _, _, _, _ string) (*repos.Comparison, error) {
	m.calls.Add(1)
	if m.compare == nil {
		return &repos.Comparison{Status: "identical"}, nil
	}
	cp := *m.compare
	cp.Files = append([]repos.FileChange(nil), m.compare.Files...)
	cp.Commits = append([]repos.CommitSummary(nil), m.compare.Commits...)
	return &cp, nil
}

// ─── stubTokens ───────────────────────────────────────────────────────────────

type stubTokens struct {
	forOwnerFn func(ctx context.Context, owner string) (string, error)
	calls      int
}

func (s *stubTokens) ForOwner(ctx context.Context, owner string) (string, error) {
	s.calls++
	if s.forOwnerFn != nil {
		return s.forOwnerFn(ctx, owner)
	}
	return "token-" + owner, nil
}

// newService wires a Service whose connector always returns up.
func newService(up *memUpstream, opts ...repos.Option) (*repos.Service, *stubTokens, *[]string) {
	tokens := &stubTokens{}
	var seen []string
	svc := repos.NewService(tokens, func(token string) repos.Upstream {
		seen = append(seen, token)
		return up
	}, opts...)
	return svc, tokens, &seen
}
