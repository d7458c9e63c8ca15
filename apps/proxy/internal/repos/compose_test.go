package repos_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

var pinned = repos.ResolvedCommit{Ref: "main", CommitSHA: commitA, DefaultBranch: "main"}

func TestNumberLines_PadsToWidestNumber(t *testing.T) {
	assert.Equal(t, " 9| a\n10| b\n", repos.NumberLines("a\nb\n", 9, 10))
	assert.Equal(t, "1| only", repos.NumberLines("only", 1, 1))
}

func TestFence(t *testing.T) {
	assert.Equal(t, "```go\npackage a\n```\n", repos.Fence("package a\n", "src/a.go"))
	assert.Equal(t, "```\nno newline\n```\n", repos.Fence("no newline", "Makefile"))
	assert.Equal(t, "```md\n```\n", repos.Fence("", "README.md"))
}

func TestFence_OutgrowsInnerBacktickRuns(t *testing.T) {
	body := "Example:\n````go\nx := 1\n````\n"
	got := repos.Fence(body, "doc.md")
	assert.True(t, strings.HasPrefix(got, "`````md\n"))
	assert.True(t, strings.HasSuffix(got, "\n`````\n"))
}

func TestComposeFileChunk_DigestsPrecedePresentation(t *testing.T) {
	text := "one\ntwo\nthree\n"
	fc := &repos.FileContent{Path: "a.txt", Text: text, BlobSHA: repos.BlobSHA([]byte(text)), Size: len(text), Digest: repos.Digest(text)}
	w := repos.LineWindow{Start: 2, End: 3, NextStart: repos.Done, TotalLines: 3}
	chunk := "two\nthree\n"

	resp := repos.ComposeFileChunk("acme", "widgets", pinned, fc, w, chunk, repos.Presentation{LineNumbers: true, MarkdownFence: true})

	assert.Equal(t, "```txt\n2| two\n3| three\n```\n", resp.Body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.ContentType)
	h := resp.Header
	assert.Equal(t, "acme", h.Get(repos.HeaderOwner))
	assert.Equal(t, "widgets", h.Get(repos.HeaderRepo))
	assert.Equal(t, "main", h.Get(repos.HeaderRef))
	assert.Equal(t, commitA, h.Get(repos.HeaderCommitSHA))
	assert.Equal(t, "a.txt", h.Get(repos.HeaderPath))
	assert.Equal(t, fc.BlobSHA, h.Get(repos.HeaderBlobSHA))
	assert.Equal(t, "3", h.Get(repos.HeaderTotalLines))
	assert.Equal(t, "2-3", h.Get(repos.HeaderRange))
	assert.Equal(t, "-1", h.Get(repos.HeaderNextStart))
	assert.Equal(t, repos.Digest(text), h.Get(repos.HeaderContentSHA256))
	assert.Equal(t, repos.Digest(chunk), h.Get(repos.HeaderChunkSHA256))
}

func TestLinks(t *testing.T) {
	l := repos.Links{BaseURL: "https://proxy.example/", Owner: "acme", Repo: "widgets", CommitSHA: commitA}

	assert.Equal(t,
		"https://proxy.example/api/file?owner=acme&path=docs%2Fwith+space.md&ref="+commitA+"&repo=widgets",
		l.File("docs/with space.md"))
	assert.Equal(t, "https://proxy.example/api/bundle?owner=acme&ref="+commitA+"&repo=widgets", l.Bundle(""))
	assert.Equal(t, "https://proxy.example/api/bundle?dir=src&owner=acme&ref="+commitA+"&repo=widgets", l.Bundle("src"))
}

func TestComposeTree(t *testing.T) {
	listing := &repos.Listing{Entries: []repos.TreeEntry{blob("src/a.go"), dir("src"), blob("README.md")}}
	links := repos.Links{BaseURL: "http://proxy", Owner: "acme", Repo: "widgets", CommitSHA: commitA}
	q := "owner=acme&ref=" + commitA + "&repo=widgets"

	resp := repos.ComposeTree("acme", "widgets", pinned, listing, links)

	want := strings.Join([]string{
		"widgets/ @ main (" + commitA + ")",
		"📦 http://proxy/api/bundle?" + q,
		"├─ src/  📦 http://proxy/api/bundle?dir=src&" + q,
		"│  └─ a.go",
		"│     └─ 🔗 http://proxy/api/file?owner=acme&path=src%2Fa.go&ref=" + commitA + "&repo=widgets",
		"└─ README.md",
		"   └─ 🔗 http://proxy/api/file?owner=acme&path=README.md&ref=" + commitA + "&repo=widgets",
		"",
	}, "\n")
	assert.Equal(t, want, resp.Body)
	assert.Equal(t, "false", resp.Header.Get(repos.HeaderTruncated))
	assert.Equal(t, commitA, resp.Header.Get(repos.HeaderCommitSHA))
}

func TestComposeTree_FlagsTruncation(t *testing.T) {
	listing := &repos.Listing{Entries: []repos.TreeEntry{blob("a.txt")}, Truncated: true}
	resp := repos.ComposeTree("acme", "widgets", pinned, listing, repos.Links{BaseURL: "http://proxy"})

	assert.Equal(t, "true", resp.Header.Get(repos.HeaderTruncated))
	assert.True(t, strings.HasSuffix(resp.Body, "(listing truncated upstream)\n"))
}
