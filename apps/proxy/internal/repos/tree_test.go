package repos_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

func blob(p string) repos.TreeEntry { return repos.TreeEntry{Path: p, Type: repos.EntryBlob} }
func dir(p string) repos.TreeEntry  { return repos.TreeEntry{Path: p, Type: repos.EntryTree} }

func TestListTree_CarriesTreeSHAAndTruncation(t *testing.T) {
	up := newMemUpstream().withFiles(commitA, map[string]string{"a.txt": "a"})
	up.listing[treeA].Truncated = true

	l, err := repos.ListTree(context.Background(), up, "acme", "widgets", commitA)
	require.NoError(t, err)
	assert.Equal(t, treeA, l.TreeSHA)
	assert.True(t, l.Truncated)
	assert.Len(t, l.Entries, 1)
}

func TestListTree_UnknownCommit(t *testing.T) {
	up := newMemUpstream()
	_, err := repos.ListTree(context.Background(), up, "acme", "widgets", "cccccccccccccccccccccccccccccccccccccccc")
	var upErr repos.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.NotFound())
}

func TestFiles_FiltersAndSorts(t *testing.T) {
	entries := []repos.TreeEntry{
		blob("src/z.go"), dir("src"), blob("README.md"), blob("src/a.go"),
		blob("srcx/other.go"), {Path: "src/mod", Type: repos.EntryCommit},
	}
	assert.Equal(t, []string{"README.md", "src/a.go", "src/z.go", "srcx/other.go"}, repos.Files(entries, ""))
	assert.Equal(t, []string{"src/a.go", "src/z.go"}, repos.Files(entries, "src"))
	assert.Empty(t, repos.Files(entries, "missing"))
}

func TestUnder_IncludesTreesSortedByPath(t *testing.T) {
	entries := []repos.TreeEntry{blob("src/b/x.go"), dir("src/b"), blob("src/a.go"), blob("top.go")}
	got := repos.Under(entries, "src")
	paths := make([]string, 0, len(got))
	for _, e := range got {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"src/a.go", "src/b", "src/b/x.go"}, paths)
}

// paths lists every node below the root in walk order.
func paths(h *repos.Hierarchy) []string {
	var out []string
	h.Walk(repos.RootID, func(id repos.NodeID, _ []bool) {
		out = append(out, h.Path(id))
	})
	return out
}

// find returns the node at path by walking the tree.
func find(h *repos.Hierarchy, path string) (repos.NodeID, bool) {
	found, ok := repos.RootID, false
	h.Walk(repos.RootID, func(id repos.NodeID, _ []bool) {
		if !ok && h.Path(id) == path {
			found, ok = id, true
		}
	})
	return found, ok
}

func TestBuildHierarchy_DirectoriesFirstThenName(t *testing.T) {
	h := repos.BuildHierarchy([]repos.TreeEntry{
		blob("b.txt"), blob("a.txt"), blob("z/inner.txt"), dir("z"), blob("m/deep/file.txt"),
	})

	var names []string
	for _, id := range h.Children(repos.RootID) {
		names = append(names, h.Node(id).Name)
	}
	assert.Equal(t, []string{"m", "z", "a.txt", "b.txt"}, names)

	id, ok := find(h, "m/deep/file.txt")
	require.True(t, ok)
	assert.True(t, h.Node(id).IsFile())
	assert.Equal(t, "m/deep/file.txt", h.Path(id))

	deep, ok := find(h, "m/deep")
	require.True(t, ok)
	assert.False(t, h.Node(deep).IsFile())
}

func TestBuildHierarchy_ByteOrderNames(t *testing.T) {
	h := repos.BuildHierarchy([]repos.TreeEntry{blob("b"), blob("B"), blob("a"), blob("_")})
	var names []string
	for _, id := range h.Children(repos.RootID) {
		names = append(names, h.Node(id).Name)
	}
	assert.Equal(t, []string{"B", "_", "a", "b"}, names)
}

func TestBuildHierarchy_SkipsSubmodules(t *testing.T) {
	h := repos.BuildHierarchy([]repos.TreeEntry{blob("a.txt"), {Path: "vendor/lib", Type: repos.EntryCommit}})
	assert.Equal(t, []string{"a.txt"}, paths(h))
}

func TestWalk_DepthFirstWithLastFlags(t *testing.T) {
	h := repos.BuildHierarchy([]repos.TreeEntry{blob("src/a.go"), blob("src/b.go"), blob("README.md")})

	var visits []string
	h.Walk(repos.RootID, func(id repos.NodeID, last []bool) {
		visits = append(visits, fmt.Sprintf("%s%v", h.Path(id), last))
	})
	assert.Equal(t, []string{
		"src[false]",
		"src/a.go[false false]",
		"src/b.go[false true]",
		"README.md[true]",
	}, visits)
}

func TestWalk_DeepNestingDoesNotRecurse(t *testing.T) {
	segs := make([]string, 5000)
	for i := range segs {
		segs[i] = "d"
	}
	h := repos.BuildHierarchy([]repos.TreeEntry{blob(strings.Join(segs, "/") + "/leaf.txt")})

	count := 0
	maxDepth := 0
	h.Walk(repos.RootID, func(_ repos.NodeID, last []bool) {
		count++
		maxDepth = max(maxDepth, len(last))
	})
	assert.Equal(t, 5001, count)
	assert.Equal(t, 5001, maxDepth)
}
