package repos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultBundleConcurrency bounds in-flight file fetches for one bundle page.
const DefaultBundleConcurrency = 8

// BundleItem is one file of a bundle page. Skip is set instead of Text when
// the file could not be served; the rest of the page is still returned.
type BundleItem struct {
	Path string
	Text string
	Skip string
}

// FetchBundle fetches every file of page concurrently, with at most limit
// requests in flight. Items come back in page order regardless of
// completion order. Binary files and per-file upstream failures become
// skipped items; cancellation aborts the whole page.
func FetchBundle(ctx context.Context, up Upstream, owner, repo, commitSHA string, page FilePage, limit int) ([]BundleItem, error) {
	items := make([]BundleItem, len(page.Files))
	if len(page.Files) == 0 {
		return items, nil
	}
	if limit < 1 {
		limit = DefaultBundleConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, len(page.Files)))
	for i, p := range page.Files {
		g.Go(func() error {
			items[i].Path = p
			fc, err := FetchFile(gctx, up, owner, repo, commitSHA, p)
			if err == nil {
				items[i].Text = fc.Text
				return nil
			}
			var binErr BinaryContentError
			var upErr UpstreamError
			switch {
			case errors.As(err, &binErr):
				items[i].Skip = "Binary file skipped."
				return nil
			case errors.As(err, &upErr) && gctx.Err() == nil:
				items[i].Skip = upErr.Error()
				return nil
			}
			return fmt.Errorf("fetch %s: %w", p, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// ComposeBundle concatenates the page's files into one plain-text body
// behind a short comment header. X-Body-Sha256 covers the whole body.
func ComposeBundle(owner, repo string, rc ResolvedCommit, dir string, page FilePage, items []BundleItem) Response {
	h := PinnedHeader(owner, repo, rc)
	h.Set(HeaderDir, dir)
	h.Set(HeaderTotalFiles, strconv.Itoa(page.TotalFiles))
	h.Set(HeaderChunkFiles, strconv.Itoa(page.ChunkFiles))
	h.Set(HeaderCursor, strconv.Itoa(page.Cursor))
	h.Set(HeaderNextCursor, strconv.Itoa(page.NextCursor))

	shownDir := dir
	if shownDir == "" {
		shownDir = "(root)"
	}
	first, last := 0, 0
	if len(items) > 0 {
		first, last = page.Cursor+1, page.Cursor+len(items)
	}

	var b strings.Builder
	b.WriteString("// Repository bundle\n")
	fmt.Fprintf(&b, "// repo=%s/%s ref=%s commit=%s\n", owner, repo, rc.Ref, rc.CommitSHA)
	fmt.Fprintf(&b, "// dir=%s\n", shownDir)
	fmt.Fprintf(&b, "// files %d-%d of %d\n", first, last, page.TotalFiles)
	fmt.Fprintf(&b, "// next cursor in header: %s\n\n", HeaderNextCursor)
	for _, it := range items {
		fmt.Fprintf(&b, "// ===== File: %s =====\n", it.Path)
		if it.Skip != "" {
			fmt.Fprintf(&b, "// [SKIP] %s\n\n", it.Skip)
			continue
		}
		b.WriteString(it.Text)
		b.WriteString("\n\n")
	}

	body := b.String()
	h.Set(HeaderBodySHA256, Digest(body))
	return Response{Header: h, ContentType: contentTypeText, Body: body}
}
