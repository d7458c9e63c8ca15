// Package ghfake is an in-memory stand-in for the read-only slice of the
// GitHub REST API the proxy uses: repository metadata, refs, annotated tags,
// commits, recursive trees, raw contents and compares.
//
// Repositories are built from whole-file snapshots. Every commit stores the
// full file set it points at, so trees and contents can be served for any
// historical commit without replaying history.
//
// It backs apps/mock-github for local development and the end-to-end tests
// of the proxy handlers.
package ghfake

import (
	"crypto/sha1" //nolint:gosec // git object ids are sha1 by definition
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	modeFile      = "100644"
	modeTree      = "040000"
	modeSubmodule = "160000"
)

// Change describes one commit: files are merged onto the parent snapshot,
// Delete removes paths from it.
type Change struct {
	Message    string
	Author     string
	Date       time.Time
	Files      map[string]string
	Delete     []string
	Submodules map[string]string // path -> commit sha
}

type commit struct {
	sha        string
	treeSHA    string
	parents    []string
	message    string
	author     string
	date       time.Time
	files      map[string]string
	submodules map[string]string
}

type tagObject struct {
	sha    string
	name   string
	target string
}

type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size *int   `json:"size,omitempty"`
}

type repository struct {
	owner         string
	name          string
	defaultBranch string
	commits       map[string]*commit
	branches      map[string]string
	tags          map[string]string // name -> commit sha or tag object sha
	tagObjects    map[string]*tagObject
	trees         map[string][]treeEntry
	truncated     bool
	omitPatches   bool
}

// Fake holds every repository served by the fake API.
type Fake struct {
	mu       sync.RWMutex
	repos    map[string]*repository
	seq      int
	failures []failure
	requests int
}

type failure struct {
	fragment string
	status   int
	message  string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{repos: make(map[string]*repository)}
}

func key(owner, repo string) string {
	return strings.ToLower(owner + "/" + repo)
}

// AddRepo registers an empty repository. Commit creates its default branch.
func (f *Fake) AddRepo(owner, repo, defaultBranch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[key(owner, repo)] = &repository{
		owner:         owner,
		name:          repo,
		defaultBranch: defaultBranch,
		commits:       make(map[string]*commit),
		branches:      make(map[string]string),
		tags:          make(map[string]string),
		tagObjects:    make(map[string]*tagObject),
		trees:         make(map[string][]treeEntry),
	}
}

// Commit records a new commit on branch and advances it. A branch that does
// not exist yet starts from the default branch's head, if any.
func (f *Fake) Commit(owner, repo, branch string, ch Change) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[key(owner, repo)]
	if !ok {
		return "", fmt.Errorf("repository %s/%s not found", owner, repo)
	}

	files := map[string]string{}
	subs := map[string]string{}
	var parents []string
	parent := r.branches[branch]
	if parent == "" {
		parent = r.branches[r.defaultBranch]
	}
	if parent != "" {
		p := r.commits[parent]
		files = maps.Clone(p.files)
		subs = maps.Clone(p.submodules)
		parents = []string{parent}
	}
	maps.Copy(files, ch.Files)
	maps.Copy(subs, ch.Submodules)
	for _, p := range ch.Delete {
		delete(files, p)
		delete(subs, p)
	}

	f.seq++
	when := ch.Date
	if when.IsZero() {
		when = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Hour)
	}
	author := ch.Author
	if author == "" {
		author = "octocat"
	}

	treeSHA := r.writeTree(files, subs)
	c := &commit{
		sha:        objectID("commit", treeSHA, strings.Join(parents, ","), ch.Message, strconv.Itoa(f.seq)),
		treeSHA:    treeSHA,
		parents:    parents,
		message:    ch.Message,
		author:     author,
		date:       when,
		files:      files,
		submodules: subs,
	}
	r.commits[c.sha] = c
	r.branches[branch] = c.sha
	return c.sha, nil
}

// Tag points a tag at target, which may be a branch name or a commit SHA.
// Annotated tags get their own tag object, as on GitHub.
func (f *Fake) Tag(owner, repo, name, target string, annotated bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[key(owner, repo)]
	if !ok {
		return fmt.Errorf("repository %s/%s not found", owner, repo)
	}
	sha := r.branches[target]
	if sha == "" {
		if _, ok := r.commits[target]; !ok {
			return fmt.Errorf("tag target %q not found", target)
		}
		sha = target
	}
	if !annotated {
		r.tags[name] = sha
		return nil
	}
	obj := &tagObject{sha: objectID("tag", name, sha), name: name, target: sha}
	r.tagObjects[obj.sha] = obj
	r.tags[name] = obj.sha
	return nil
}

// Branch returns the head commit of a branch.
func (f *Fake) Branch(owner, repo, branch string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if r, ok := f.repos[key(owner, repo)]; ok {
		return r.branches[branch]
	}
	return ""
}

// SetTruncated makes tree listings of the repository report truncated=true.
func (f *Fake) SetTruncated(owner, repo string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[key(owner, repo)]; ok {
		r.truncated = v
	}
}

// OmitPatches drops per-file patches from compares, as GitHub does for
// large diffs.
func (f *Fake) OmitPatches(owner, repo string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[key(owner, repo)]; ok {
		r.omitPatches = v
	}
}

// Fail makes every request whose path contains fragment answer with status.
func (f *Fake) Fail(fragment string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, failure{fragment: fragment, status: status, message: message})
}

// Requests returns the number of API requests served so far.
func (f *Fake) Requests() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.requests
}

// Repos returns the number of registered repositories.
func (f *Fake) Repos() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.repos)
}

// writeTree stores the recursive listing for a snapshot and returns its id.
func (r *repository) writeTree(files, subs map[string]string) string {
	var entries []treeEntry
	dirs := map[string]bool{}
	addDirs := func(p string) {
		for i := strings.LastIndexByte(p, '/'); i > 0; i = strings.LastIndexByte(p[:i], '/') {
			dirs[p[:i]] = true
		}
	}
	for p, content := range files {
		size := len(content)
		entries = append(entries, treeEntry{Path: p, Mode: modeFile, Type: "blob", SHA: blobSHA(content), Size: &size})
		addDirs(p)
	}
	for p, sha := range subs {
		entries = append(entries, treeEntry{Path: p, Mode: modeSubmodule, Type: "commit", SHA: sha})
		addDirs(p)
	}
	leaves := slices.Clone(entries)
	for d := range dirs {
		entries = append(entries, treeEntry{Path: d, Mode: modeTree, Type: "tree", SHA: objectID("tree", d, listingID(leaves, d))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Mode+" "+e.Path+" "+e.SHA)
	}
	sha := objectID("tree", parts...)
	r.trees[sha] = entries
	return sha
}

// listingID fingerprints everything under dir so that directory ids change
// when their contents do.
func listingID(entries []treeEntry, dir string) string {
	var parts []string
	for _, e := range entries {
		if strings.HasPrefix(e.Path, dir+"/") {
			parts = append(parts, e.Path+" "+e.SHA)
		}
	}
	slices.Sort(parts)
	return objectID("listing", parts...)
}

// resolve maps a branch, tag, full SHA or unique SHA prefix to a commit.
func (r *repository) resolve(ref string) (*commit, bool) {
	if sha, ok := r.branches[ref]; ok {
		return r.commits[sha], true
	}
	if sha, ok := r.tags[ref]; ok {
		if obj, ok := r.tagObjects[sha]; ok {
			sha = obj.target
		}
		return r.commits[sha], true
	}
	if c, ok := r.commits[strings.ToLower(ref)]; ok {
		return c, true
	}
	if c, n := r.byPrefix(ref); n == 1 {
		return c, true
	}
	return nil, false
}

// byPrefix returns the commit matching an abbreviated SHA and the number of
// matches.
func (r *repository) byPrefix(prefix string) (*commit, int) {
	prefix = strings.ToLower(prefix)
	if len(prefix) < 4 {
		return nil, 0
	}
	var found *commit
	n := 0
	for sha, c := range r.commits {
		if strings.HasPrefix(sha, prefix) {
			found = c
			n++
		}
	}
	return found, n
}

// ancestors returns every commit reachable from sha, including sha.
func (r *repository) ancestors(sha string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{sha}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		if c, ok := r.commits[s]; ok {
			stack = append(stack, c.parents...)
		}
	}
	return seen
}

func objectID(kind string, parts ...string) string {
	h := sha1.New() //nolint:gosec // see import
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func blobSHA(content string) string {
	h := sha1.New() //nolint:gosec // see import
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00" + content))
	return hex.EncodeToString(h.Sum(nil))
}
