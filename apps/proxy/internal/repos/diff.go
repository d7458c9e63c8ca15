package repos

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

const (
	MaxDiffCommits     = 20
	MaxPatchBytes      = 2000
	MaxComputedPatches = 10
	PatchTruncated     = "\n[PATCH TRUNCATED]"
	diffContextLines   = 3
)

// DiffResult is the composed outcome of comparing two pinned refs.
type DiffResult struct {
	Owner         string          `json:"owner"`
	Repo          string          `json:"repo"`
	Base          string          `json:"base"`
	Head          string          `json:"head"`
	BaseCommitSHA string          `json:"baseCommitSha"`
	HeadCommitSHA string          `json:"headCommitSha"`
	Path          string          `json:"path,omitempty"`
	Status        string          `json:"status"`
	AheadBy       int             `json:"aheadBy"`
	BehindBy      int             `json:"behindBy"`
	TotalCommits  int             `json:"totalCommits"`
	Commits       []CommitSummary `json:"commits"`
	Files         []FileChange    `json:"files"`
}

// FilterChanges keeps the changes whose filename starts with prefix.
func FilterChanges(files []FileChange, prefix string) []FileChange {
	out := make([]FileChange, 0, len(files))
	for _, f := range files {
		if prefix == "" || strings.HasPrefix(f.Filename, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// TruncatePatch caps patch at limit bytes on a rune boundary and appends the
// truncation marker. It reports whether anything was cut.
func TruncatePatch(patch string, limit int) (string, bool) {
	if len(patch) <= limit {
		return patch, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(patch[cut]) {
		cut--
	}
	return patch[:cut] + PatchTruncated, true
}

// FirstLine returns the subject line of a commit message.
func FirstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return strings.TrimRight(msg[:i], "\r")
	}
	return msg
}

// ComputeMissingPatches fills in a line diff for up to MaxComputedPatches
// text files whose patch the upstream omitted. Files that are binary or
// cannot be fetched keep an empty patch.
func ComputeMissingPatches(ctx context.Context, up Upstream, owner, repo, baseSHA, headSHA string, files []FileChange, limit int) error {
	if limit < 1 {
		limit = DefaultBundleConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	budget := MaxComputedPatches
	for i := range files {
		f := &files[i]
		if f.Patch != "" || budget == 0 {
			continue
		}
		budget--
		g.Go(func() error {
			oldPath := f.Filename
			if f.PreviousFilename != "" {
				oldPath = f.PreviousFilename
			}
			before, err := sideText(gctx, up, owner, repo, baseSHA, oldPath, f.Status != "added")
			if err != nil {
				return skipUnlessFatal(gctx, err)
			}
			after, err := sideText(gctx, up, owner, repo, headSHA, f.Filename, f.Status != "removed")
			if err != nil {
				return skipUnlessFatal(gctx, err)
			}
			f.Patch = LineDiff(before, after)
			f.PatchComputed = f.Patch != ""
			return nil
		})
	}
	return g.Wait()
}

func sideText(ctx context.Context, up Upstream, owner, repo, sha, path string, exists bool) (string, error) {
	if !exists {
		return "", nil
	}
	fc, err := FetchFile(ctx, up, owner, repo, sha, path)
	if err != nil {
		return "", err
	}
	return fc.Text, nil
}

func skipUnlessFatal(ctx context.Context, err error) error {
	var binErr BinaryContentError
	var upErr UpstreamError
	if ctx.Err() == nil && (errors.As(err, &binErr) || errors.As(err, &upErr)) {
		return nil
	}
	return err
}

// LineDiff renders a line-oriented diff of a and b: "+" for inserted, "-"
// for deleted and " " for context lines, with long unchanged runs collapsed
// to "@@".
func LineDiff(a, b string) string {
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)

	var out strings.Builder
	emit := func(prefix string, lines []string) {
		for _, l := range lines {
			out.WriteString(prefix)
			out.WriteString(l)
			if !strings.HasSuffix(l, "\n") {
				out.WriteString("\n")
			}
		}
	}
	for i, d := range diffs {
		lines := SplitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			emit("+", lines)
		case diffmatchpatch.DiffDelete:
			emit("-", lines)
		case diffmatchpatch.DiffEqual:
			lead, trail := diffContextLines, diffContextLines
			if i == 0 {
				lead = 0
			}
			if i == len(diffs)-1 {
				trail = 0
			}
			if len(lines) <= lead+trail {
				emit(" ", lines)
				continue
			}
			emit(" ", lines[:lead])
			out.WriteString("@@\n")
			emit(" ", lines[len(lines)-trail:])
		}
	}
	return out.String()
}
