package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// File returns one line window of a file.
func (h *Handler) File(c *gin.Context) {
	req := repos.FileRequest{RepoRef: repoRef(c), Path: c.Query("path")}
	var err error
	if req.Start, err = intQuery(c, "start", 1); err != nil {
		h.fail(c, "file", err)
		return
	}
	if req.End, err = intQuery(c, "end", 0); err != nil {
		h.fail(c, "file", err)
		return
	}
	if req.LineNumbers, err = boolQuery(c, "lineNumbers"); err != nil {
		h.fail(c, "file", err)
		return
	}
	if req.MarkdownFence, err = boolQuery(c, "markdownFence"); err != nil {
		h.fail(c, "file", err)
		return
	}

	res, err := h.svc.FileChunk(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "file", err)
		return
	}
	h.write(c, res)
}

// Bundle returns one page of concatenated files under a directory.
func (h *Handler) Bundle(c *gin.Context) {
	req := repos.BundleRequest{RepoRef: repoRef(c), Dir: c.Query("dir")}
	var err error
	if req.Cursor, err = intQuery(c, "cursor", 0); err != nil {
		h.fail(c, "bundle", err)
		return
	}
	if req.ChunkFiles, err = intQuery(c, "chunkFiles", repos.DefaultChunkFiles); err != nil {
		h.fail(c, "bundle", err)
		return
	}

	res, err := h.svc.Bundle(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "bundle", err)
		return
	}
	h.write(c, res)
}
