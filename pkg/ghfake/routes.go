package ghfake

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	mediaRaw = "application/vnd.github.raw"
	mediaSHA = "application/vnd.github.v3.sha"
)

// Handler returns a gin engine serving the fake API at the root, the way
// go-github expects a base URL to be laid out.
func (f *Fake) Handler() *gin.Engine {
	r := gin.New()
	f.Register(r)
	return r
}

// Register mounts the fake API onto r.
func (f *Fake) Register(r gin.IRouter) {
	g := r.Group("/repos/:owner/:repo", f.countAndFail)
	g.GET("", f.getRepo)
	g.GET("/git/ref/*ref", f.getRef)
	g.GET("/git/tags/:sha", f.getTag)
	g.GET("/git/commits/:sha", f.getCommit)
	g.GET("/git/trees/:sha", f.getTree)
	g.GET("/commits/:ref", f.getCommitSHA)
	g.GET("/contents/*path", f.getContents)
	g.GET("/compare/*basehead", f.compare)
}

func (f *Fake) countAndFail(c *gin.Context) {
	f.mu.Lock()
	f.requests++
	failures := f.failures
	f.mu.Unlock()
	for _, fl := range failures {
		if strings.Contains(c.Request.URL.Path, fl.fragment) {
			c.AbortWithStatusJSON(fl.status, gin.H{"message": fl.message})
			return
		}
	}
	c.Next()
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"message":           "Not Found",
		"documentation_url": "https://docs.github.com/rest",
	})
}

// repo looks up the repository under a read lock. Callers must release it.
func (f *Fake) repo(c *gin.Context) (*repository, bool) {
	f.mu.RLock()
	r, ok := f.repos[key(c.Param("owner"), c.Param("repo"))]
	if !ok {
		f.mu.RUnlock()
		notFound(c)
	}
	return r, ok
}

func (f *Fake) getRepo(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"name":           r.name,
		"full_name":      r.owner + "/" + r.name,
		"default_branch": r.defaultBranch,
		"owner":          gin.H{"login": r.owner},
	})
}

func (f *Fake) getRef(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()

	ref := strings.TrimPrefix(c.Param("ref"), "/")
	kind, name, _ := strings.Cut(ref, "/")
	var sha, objType string
	switch kind {
	case "heads":
		sha, objType = r.branches[name], "commit"
	case "tags":
		sha, objType = r.tags[name], "commit"
		if _, annotated := r.tagObjects[sha]; annotated {
			objType = "tag"
		}
	}
	if sha == "" {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ref":    "refs/" + ref,
		"object": gin.H{"type": objType, "sha": sha},
	})
}

func (f *Fake) getTag(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()
	obj, ok := r.tagObjects[c.Param("sha")]
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sha":    obj.sha,
		"tag":    obj.name,
		"object": gin.H{"type": "commit", "sha": obj.target},
	})
}

func (f *Fake) getCommit(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()
	cm, ok := r.commits[strings.ToLower(c.Param("sha"))]
	if !ok {
		notFound(c)
		return
	}
	parents := make([]gin.H, 0, len(cm.parents))
	for _, p := range cm.parents {
		parents = append(parents, gin.H{"sha": p})
	}
	c.JSON(http.StatusOK, gin.H{
		"sha":     cm.sha,
		"message": cm.message,
		"tree":    gin.H{"sha": cm.treeSHA},
		"parents": parents,
		"author":  gin.H{"name": cm.author, "date": cm.date},
	})
}

func (f *Fake) getTree(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()
	sha := c.Param("sha")
	entries, ok := r.trees[sha]
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha": sha, "tree": entries, "truncated": r.truncated})
}

// getCommitSHA mirrors GET /repos/{o}/{r}/commits/{ref}, including the
// plain-text SHA media type and abbreviated SHA expansion.
func (f *Fake) getCommitSHA(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()

	ref := c.Param("ref")
	cm, found := r.resolve(ref)
	if !found {
		if _, n := r.byPrefix(ref); n > 1 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "short SHA " + ref + " is ambiguous"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "No commit found for SHA: " + ref})
		return
	}
	if strings.Contains(c.GetHeader("Accept"), mediaSHA) {
		c.String(http.StatusOK, cm.sha)
		return
	}
	c.JSON(http.StatusOK, repositoryCommit(r, cm))
}

func (f *Fake) getContents(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()

	ref := c.Query("ref")
	if ref == "" {
		ref = r.defaultBranch
	}
	cm, found := r.resolve(ref)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "No commit found for the ref " + ref})
		return
	}
	path := strings.Trim(c.Param("path"), "/")

	if content, ok := cm.files[path]; ok {
		if strings.Contains(c.GetHeader("Accept"), mediaRaw) {
			c.Data(http.StatusOK, mediaRaw, []byte(content))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"type":     "file",
			"path":     path,
			"sha":      blobSHA(content),
			"size":     len(content),
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"encoding": "base64",
		})
		return
	}
	if entries := listDir(cm, path); len(entries) > 0 {
		c.JSON(http.StatusOK, entries)
		return
	}
	notFound(c)
}

// listDir returns the immediate children of dir, like the contents API does
// for a directory path.
func listDir(cm *commit, dir string) []gin.H {
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]string{}
	for p := range cm.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if name, _, isDir := strings.Cut(rest, "/"); isDir {
			seen[name] = "dir"
		} else {
			seen[name] = "file"
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]gin.H, 0, len(names))
	for _, n := range names {
		out = append(out, gin.H{"name": n, "path": prefix + n, "type": seen[n]})
	}
	return out
}

func (f *Fake) compare(c *gin.Context) {
	r, ok := f.repo(c)
	if !ok {
		return
	}
	defer f.mu.RUnlock()

	base, head, ok := strings.Cut(strings.TrimPrefix(c.Param("basehead"), "/"), "...")
	if !ok {
		notFound(c)
		return
	}
	bc, okBase := r.resolve(base)
	hc, okHead := r.resolve(head)
	if !okBase || !okHead {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No common ancestor between %s and %s.", base, head)})
		return
	}
	c.JSON(http.StatusOK, compareCommits(r, bc, hc))
}

func repositoryCommit(r *repository, cm *commit) gin.H {
	return gin.H{
		"sha": cm.sha,
		"commit": gin.H{
			"message": cm.message,
			"author":  gin.H{"name": cm.author, "date": cm.date},
			"tree":    gin.H{"sha": cm.treeSHA},
		},
		"author":   gin.H{"login": cm.author},
		"html_url": fmt.Sprintf("https://github.com/%s/%s/commit/%s", r.owner, r.name, cm.sha),
	}
}
