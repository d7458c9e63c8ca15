package repos

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Metadata headers. The body of a response never repeats them.
const (
	HeaderOwner         = "X-Owner"
	HeaderRepo          = "X-Repo"
	HeaderRef           = "X-Ref"
	HeaderCommitSHA     = "X-Commit-Sha"
	HeaderDefaultBranch = "X-Default-Branch"
	HeaderPath          = "X-Path"
	HeaderDir           = "X-Dir"
	HeaderBlobSHA       = "X-Blob-Sha"
	HeaderTotalLines    = "X-Total-Lines"
	HeaderRange         = "X-Range"
	HeaderNextStart     = "X-Next-Start"
	HeaderContentSHA256 = "X-Content-Sha256"
	HeaderChunkSHA256   = "X-Chunk-Sha256"
	HeaderTotalFiles    = "X-Total-Files"
	HeaderChunkFiles    = "X-Chunk-Files"
	HeaderCursor        = "X-Cursor"
	HeaderNextCursor    = "X-Next-Cursor"
	HeaderBodySHA256    = "X-Body-Sha256"
	HeaderTruncated     = "X-Tree-Truncated"
	HeaderBaseCommitSHA = "X-Base-Commit-Sha"
)

const contentTypeText = "text/plain; charset=utf-8"

// Response is a composed body plus the metadata that describes it.
type Response struct {
	Header      http.Header
	ContentType string
	Body        string
}

// Presentation lists optional transforms applied after digests are taken.
type Presentation struct {
	LineNumbers   bool
	MarkdownFence bool
}

// PinnedHeader carries the repository and pinned commit every response reports.
func PinnedHeader(owner, repo string, rc ResolvedCommit) http.Header {
	h := http.Header{}
	h.Set(HeaderOwner, owner)
	h.Set(HeaderRepo, repo)
	h.Set(HeaderRef, rc.Ref)
	h.Set(HeaderCommitSHA, rc.CommitSHA)
	h.Set(HeaderDefaultBranch, rc.DefaultBranch)
	return h
}

// ComposeFileChunk builds the response for one chunk of a file. Both digests
// describe the raw chunk bytes, before any presentation transform.
func ComposeFileChunk(owner, repo string, rc ResolvedCommit, fc *FileContent, w LineWindow, chunk string, p Presentation) Response {
	h := PinnedHeader(owner, repo, rc)
	h.Set(HeaderPath, fc.Path)
	h.Set(HeaderBlobSHA, fc.BlobSHA)
	h.Set(HeaderTotalLines, strconv.Itoa(w.TotalLines))
	h.Set(HeaderRange, fmt.Sprintf("%d-%d", w.Start, w.End))
	h.Set(HeaderNextStart, strconv.Itoa(w.NextStart))
	h.Set(HeaderContentSHA256, fc.Digest)
	h.Set(HeaderChunkSHA256, Digest(chunk))

	body := chunk
	if p.LineNumbers {
		body = NumberLines(body, w.Start, w.End)
	}
	if p.MarkdownFence {
		body = Fence(body, fc.Path)
	}
	return Response{Header: h, ContentType: contentTypeText, Body: body}
}

// NumberLines prefixes each line with its 1-based number, right aligned to
// the width of the last number.
func NumberLines(chunk string, first, last int) string {
	width := len(strconv.Itoa(last))
	var b strings.Builder
	for i, line := range SplitLines(chunk) {
		fmt.Fprintf(&b, "%*d| %s", width, first+i, line)
	}
	return b.String()
}

// Fence wraps body in a markdown code fence long enough that no backtick run
// inside body can close it. The info string is the file extension.
func Fence(body, filePath string) string {
	fence := strings.Repeat("`", max(3, longestRun(body, '`')+1))
	lang := strings.TrimPrefix(path.Ext(filePath), ".")
	var b strings.Builder
	b.WriteString(fence + lang + "\n")
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence + "\n")
	return b.String()
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
			continue
		}
		cur = 0
	}
	return best
}

// Links builds proxy URLs pinned to a single commit.
type Links struct {
	BaseURL   string
	Owner     string
	Repo      string
	CommitSHA string
}

// File returns the fetch link for a file.
func (l Links) File(filePath string) string {
	q := url.Values{"owner": {l.Owner}, "repo": {l.Repo}, "ref": {l.CommitSHA}, "path": {filePath}}
	return strings.TrimSuffix(l.BaseURL, "/") + "/api/file?" + q.Encode()
}

// Bundle returns the bundle link for a directory; "" is the root.
func (l Links) Bundle(dir string) string {
	q := url.Values{"owner": {l.Owner}, "repo": {l.Repo}, "ref": {l.CommitSHA}}
	if dir != "" {
		q.Set("dir", dir)
	}
	return strings.TrimSuffix(l.BaseURL, "/") + "/api/bundle?" + q.Encode()
}

// ComposeTree renders the hierarchy as an indented text tree, directories
// first, with a pinned fetch link under every file and a bundle link beside
// every directory.
func ComposeTree(owner, repo string, rc ResolvedCommit, listing *Listing, links Links) Response {
	h := PinnedHeader(owner, repo, rc)
	h.Set(HeaderTruncated, strconv.FormatBool(listing.Truncated))
	hier := BuildHierarchy(listing.Entries)

	var b strings.Builder
	fmt.Fprintf(&b, "%s/ @ %s (%s)\n", repo, rc.Ref, rc.CommitSHA)
	fmt.Fprintf(&b, "📦 %s\n", links.Bundle(""))
	hier.Walk(RootID, func(id NodeID, last []bool) {
		var indent strings.Builder
		for _, l := range last[:len(last)-1] {
			if l {
				indent.WriteString("   ")
			} else {
				indent.WriteString("│  ")
			}
		}
		self := last[len(last)-1]
		connector, below := "├─ ", "│  "
		if self {
			connector, below = "└─ ", "   "
		}
		n := hier.Node(id)
		if n.IsFile() {
			fmt.Fprintf(&b, "%s%s%s\n", indent.String(), connector, n.Name)
			fmt.Fprintf(&b, "%s%s└─ 🔗 %s\n", indent.String(), below, links.File(n.Entry.Path))
			return
		}
		fmt.Fprintf(&b, "%s%s%s/  📦 %s\n", indent.String(), connector, n.Name, links.Bundle(hier.Path(id)))
	})
	if listing.Truncated {
		b.WriteString("(listing truncated upstream)\n")
	}
	return Response{Header: h, ContentType: contentTypeText, Body: b.String()}
}
