package ghfake

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// compareCommits builds a GitHub-shaped comparison. Files are diffed between
// the two snapshots directly rather than from the merge base.
func compareCommits(r *repository, base, head *commit) gin.H {
	fromBase := r.ancestors(base.sha)
	fromHead := r.ancestors(head.sha)

	var ahead []*commit
	for sha := range fromHead {
		if !fromBase[sha] {
			ahead = append(ahead, r.commits[sha])
		}
	}
	behind := 0
	for sha := range fromBase {
		if !fromHead[sha] {
			behind++
		}
	}
	sort.Slice(ahead, func(i, j int) bool { return ahead[i].date.Before(ahead[j].date) })

	status := "identical"
	switch {
	case len(ahead) > 0 && behind > 0:
		status = "diverged"
	case len(ahead) > 0:
		status = "ahead"
	case behind > 0:
		status = "behind"
	}

	commits := make([]gin.H, 0, len(ahead))
	for _, cm := range ahead {
		commits = append(commits, repositoryCommit(r, cm))
	}
	return gin.H{
		"status":        status,
		"ahead_by":      len(ahead),
		"behind_by":     behind,
		"total_commits": len(ahead),
		"commits":       commits,
		"files":         fileChanges(r, base.files, head.files),
	}
}

func fileChanges(r *repository, before, after map[string]string) []gin.H {
	paths := map[string]bool{}
	for p := range before {
		paths[p] = true
	}
	for p := range after {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	out := []gin.H{}
	for _, p := range sorted {
		a, inBase := before[p]
		b, inHead := after[p]
		status := "modified"
		switch {
		case inBase && inHead && a == b:
			continue
		case !inBase:
			status = "added"
		case !inHead:
			status = "removed"
		}
		adds, dels, patch := unifiedPatch(a, b)
		fc := gin.H{
			"sha":       blobSHA(b),
			"filename":  p,
			"status":    status,
			"additions": adds,
			"deletions": dels,
			"changes":   adds + dels,
			"blob_url":  fmt.Sprintf("https://github.com/%s/%s/blob/HEAD/%s", r.owner, r.name, p),
			"raw_url":   fmt.Sprintf("https://github.com/%s/%s/raw/HEAD/%s", r.owner, r.name, p),
		}
		if !r.omitPatches {
			fc["patch"] = patch
		}
		out = append(out, fc)
	}
	return out
}

// unifiedPatch renders a single-hunk patch of a against b and counts
// inserted and deleted lines.
func unifiedPatch(a, b string) (adds, dels int, patch string) {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var body strings.Builder
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, line := range splitKeep(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				adds++
				newN++
				body.WriteString("+")
			case diffmatchpatch.DiffDelete:
				dels++
				oldN++
				body.WriteString("-")
			default:
				oldN++
				newN++
				body.WriteString(" ")
			}
			body.WriteString(strings.TrimSuffix(line, "\n"))
			body.WriteString("\n")
		}
	}
	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", min(1, oldN), oldN, min(1, newN), newN)
	return adds, dels, strings.TrimSuffix(header+body.String(), "\n")
}

func splitKeep(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
