package repos

import "context"

// Upstream is the read-only slice of the git hosting API the proxy fronts.
// Implementations return UpstreamError for non-2xx responses.
type Upstream interface {
	GetRepository(ctx context.Context, owner, repo string) (*RepoInfo, error)
	// LookupRef resolves "heads/<name>" or "tags/<name>" to a commit SHA,
	// peeling annotated tags.
	LookupRef(ctx context.Context, owner, repo, ref string) (string, error)
	// ExpandCommitSHA turns an abbreviated commit SHA into the full one.
	ExpandCommitSHA(ctx context.Context, owner, repo, sha string) (string, error)
	GetCommitTree(ctx context.Context, owner, repo, commitSHA string) (string, error)
	GetTree(ctx context.Context, owner, repo, treeSHA string) (*Listing, error)
	GetRawFile(ctx context.Context, owner, repo, path, commitSHA string) (*RawFile, error)
	Compare(ctx context.Context, owner, repo, base, head string) (*Comparison, error)
}

// TokenProvider selects the upstream credential for a repository owner.
// It returns MissingCredentialError when none is configured.
type TokenProvider interface {
	ForOwner(ctx context.Context, owner string) (string, error)
}

// Connector builds an Upstream authenticated with the given token.
type Connector func(token string) Upstream
