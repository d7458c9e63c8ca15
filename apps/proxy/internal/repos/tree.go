package repos

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ListTree returns the recursive listing of commitSHA's tree. A listing the
// upstream marked truncated is returned as is.
func ListTree(ctx context.Context, up Upstream, owner, repo, commitSHA string) (*Listing, error) {
	treeSHA, err := up.GetCommitTree(ctx, owner, repo, commitSHA)
	if err != nil {
		return nil, err
	}
	if treeSHA == "" {
		return nil, fmt.Errorf("commit %s has no tree", commitSHA)
	}
	listing, err := up.GetTree(ctx, owner, repo, treeSHA)
	if err != nil {
		return nil, err
	}
	listing.TreeSHA = treeSHA
	return listing, nil
}

// Files returns the blob paths under dir, sorted lexicographically.
// An empty dir means the repository root.
func Files(entries []TreeEntry, dir string) []string {
	prefix := dirPrefix(dir)
	var out []string
	for _, e := range entries {
		if e.Type != EntryBlob || !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

// Under returns every entry below dir (blobs and trees), sorted by path.
func Under(entries []TreeEntry, dir string) []TreeEntry {
	prefix := dirPrefix(dir)
	out := make([]TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Path == "" || !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b TreeEntry) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func dirPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// NodeID indexes a Node inside a Hierarchy.
type NodeID int

// RootID is the synthetic root directory of every Hierarchy.
const RootID NodeID = 0

// Node is either a directory (Entry == nil) or a file (Entry != nil).
// Directories are synthetic and carry no tree entry of their own.
type Node struct {
	Name     string
	Parent   NodeID
	Entry    *TreeEntry
	children []NodeID
}

// IsFile reports whether the node is a file leaf.
func (n *Node) IsFile() bool { return n.Entry != nil }

// Hierarchy is an arena-backed directory tree built from a flat listing.
type Hierarchy struct {
	nodes []Node
}

// BuildHierarchy folds a flat listing into a Hierarchy. Blobs become file
// leaves, every intermediate path segment becomes a directory. Submodule
// entries are skipped.
func BuildHierarchy(entries []TreeEntry) *Hierarchy {
	h := &Hierarchy{nodes: []Node{{Name: "", Parent: RootID}}}
	byPath := map[string]NodeID{"": RootID}
	for i := range entries {
		e := entries[i]
		if e.Path == "" || (e.Type != EntryBlob && e.Type != EntryTree) {
			continue
		}
		parts := strings.Split(e.Path, "/")
		parent := RootID
		for j, part := range parts {
			p := strings.Join(parts[:j+1], "/")
			id, ok := byPath[p]
			if !ok {
				id = NodeID(len(h.nodes))
				h.nodes = append(h.nodes, Node{Name: part, Parent: parent})
				h.nodes[parent].children = append(h.nodes[parent].children, id)
				byPath[p] = id
			}
			if j == len(parts)-1 && e.Type == EntryBlob {
				h.nodes[id].Entry = &e
			}
			parent = id
		}
	}
	for i := range h.nodes {
		slices.SortFunc(h.nodes[i].children, h.compareSiblings)
	}
	return h
}

// compareSiblings orders directories before files, then by name.
func (h *Hierarchy) compareSiblings(a, b NodeID) int {
	na, nb := &h.nodes[a], &h.nodes[b]
	if na.IsFile() != nb.IsFile() {
		if na.IsFile() {
			return 1
		}
		return -1
	}
	return strings.Compare(na.Name, nb.Name)
}

// Node returns the node with the given id.
func (h *Hierarchy) Node(id NodeID) *Node { return &h.nodes[id] }

// Children returns the sorted children of a directory node.
func (h *Hierarchy) Children(id NodeID) []NodeID { return h.nodes[id].children }

// Path rebuilds the full path of a node from its ancestors.
func (h *Hierarchy) Path(id NodeID) string {
	var parts []string
	for id != RootID {
		parts = append(parts, h.nodes[id].Name)
		id = h.nodes[id].Parent
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

// Visit is called for every node in depth-first, sorted order. last[i]
// reports whether the ancestor at depth i (and, at the final index, the node
// itself) is the last of its siblings.
type Visit func(id NodeID, last []bool)

// Walk traverses the tree below root iteratively, so pathological nesting
// cannot exhaust the stack.
func (h *Hierarchy) Walk(root NodeID, fn Visit) {
	type frame struct {
		id   NodeID
		last []bool
	}
	kids := h.nodes[root].children
	stack := make([]frame, 0, len(kids))
	for i := len(kids) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: kids[i], last: []bool{i == len(kids)-1}})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(f.id, f.last)
		children := h.nodes[f.id].children
		for i := len(children) - 1; i >= 0; i-- {
			last := make([]bool, len(f.last)+1)
			copy(last, f.last)
			last[len(f.last)] = i == len(children)-1
			stack = append(stack, frame{id: children[i], last: last})
		}
	}
}
