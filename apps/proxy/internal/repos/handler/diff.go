package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// Diff compares two refs and returns the result as JSON.
func (h *Handler) Diff(c *gin.Context) {
	computePatches, err := boolQuery(c, "computePatches")
	if err != nil {
		h.fail(c, "diff", err)
		return
	}
	res, err := h.svc.Diff(c.Request.Context(), repos.DiffRequest{
		Owner:          c.Query("owner"),
		Repo:           c.Query("repo"),
		Base:           c.Query("base"),
		Head:           c.Query("head"),
		Path:           c.Query("path"),
		ComputePatches: computePatches,
	})
	if err != nil {
		h.fail(c, "diff", err)
		return
	}

	header := http.Header{}
	header.Set(repos.HeaderOwner, res.Owner)
	header.Set(repos.HeaderRepo, res.Repo)
	header.Set(repos.HeaderCommitSHA, res.HeadCommitSHA)
	header.Set(repos.HeaderBaseCommitSHA, res.BaseCommitSHA)
	h.writeJSON(c, header, res)
}
