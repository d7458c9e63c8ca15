package repos

import "time"

// RepoRef identifies a repository and an optional, loosely specified ref.
// An empty RefInput means the repository's default branch.
type RepoRef struct {
	Owner    string
	Repo     string
	RefInput string
}

// ResolvedCommit is the outcome of ref resolution. Every read in a request
// is keyed off CommitSHA, never off Ref.
type ResolvedCommit struct {
	Ref           string `json:"ref"`
	CommitSHA     string `json:"commitSha"`
	DefaultBranch string `json:"defaultBranch"`
}

// EntryType is the git object type of a tree entry.
type EntryType string

const (
	EntryBlob   EntryType = "blob"
	EntryTree   EntryType = "tree"
	EntryCommit EntryType = "commit" // submodule
)

// TreeEntry is one row of a recursive tree listing.
type TreeEntry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	SHA  string    `json:"sha"`
	Size *int      `json:"size"`
	Mode string    `json:"mode,omitempty"`
}

// Listing is the flat recursive tree of a commit as returned upstream.
type Listing struct {
	TreeSHA   string
	Entries   []TreeEntry
	Truncated bool
}

// RepoInfo is the subset of repository metadata the resolver needs.
type RepoInfo struct {
	FullName      string
	DefaultBranch string
}

// RawFile is a file body fetched upstream at a pinned commit.
type RawFile struct {
	Path string
	Data []byte
}

// FileContent is a fetched text file plus its integrity fingerprints.
type FileContent struct {
	Path    string
	Text    string
	BlobSHA string // git object id of the blob
	Size    int
	Digest  string // sha256 of Text
}

// Comparison is the upstream view of base...head.
type Comparison struct {
	Status       string
	AheadBy      int
	BehindBy     int
	TotalCommits int
	Commits      []CommitSummary
	Files        []FileChange
}

// CommitSummary is a one-line description of a commit in a comparison.
type CommitSummary struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// FileChange is a per-file record of a comparison.
type FileChange struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previousFilename,omitempty"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	BlobURL          string `json:"blobUrl,omitempty"`
	RawURL           string `json:"rawUrl,omitempty"`
	Patch            string `json:"patch,omitempty"`
	PatchTruncated   bool   `json:"patchTruncated,omitempty"`
	PatchComputed    bool   `json:"patchComputed,omitempty"`
}
