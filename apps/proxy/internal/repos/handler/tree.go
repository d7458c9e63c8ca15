package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// TreeFiles is the JSON form of /api/tree.
type TreeFiles struct {
	Owner         string   `json:"owner"`
	Repo          string   `json:"repo"`
	Ref           string   `json:"ref"`
	CommitSHA     string   `json:"commitSha"`
	DefaultBranch string   `json:"defaultBranch"`
	Truncated     bool     `json:"truncated"`
	Files         []string `json:"files"`
}

// Tree renders the repository tree at a ref, as text (default) or JSON.
func (h *Handler) Tree(c *gin.Context) {
	format := c.DefaultQuery("format", "text")
	if format != "text" && format != "json" {
		h.fail(c, "tree", repos.InvalidInputError{Field: "format", Reason: "must be text or json"})
		return
	}

	req := repos.TreeRequest{RepoRef: repoRef(c)}
	res, err := h.svc.Tree(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "tree", err)
		return
	}

	if format == "json" {
		header := repos.PinnedHeader(req.Owner, req.Repo, res.Resolved)
		header.Set(repos.HeaderTruncated, strconv.FormatBool(res.Listing.Truncated))
		files := repos.Files(res.Listing.Entries, "")
		if files == nil {
			files = []string{}
		}
		h.writeJSON(c, header, TreeFiles{
			Owner:         req.Owner,
			Repo:          req.Repo,
			Ref:           res.Resolved.Ref,
			CommitSHA:     res.Resolved.CommitSHA,
			DefaultBranch: res.Resolved.DefaultBranch,
			Truncated:     res.Listing.Truncated,
			Files:         files,
		})
		return
	}

	links := repos.Links{
		BaseURL:   h.publicBase(c),
		Owner:     req.Owner,
		Repo:      req.Repo,
		CommitSHA: res.Resolved.CommitSHA,
	}
	h.write(c, repos.ComposeTree(req.Owner, req.Repo, res.Resolved, res.Listing, links))
}

// Meta lists every entry under a directory as JSON.
func (h *Handler) Meta(c *gin.Context) {
	ref := repoRef(c)
	res, err := h.svc.Meta(c.Request.Context(), repos.MetaRequest{RepoRef: ref, Dir: c.Query("dir")})
	if err != nil {
		h.fail(c, "meta", err)
		return
	}
	header := http.Header{}
	header.Set(repos.HeaderRef, res.Ref)
	header.Set(repos.HeaderCommitSHA, res.CommitSHA)
	header.Set(repos.HeaderDir, res.Dir)
	h.writeJSON(c, header, res)
}
