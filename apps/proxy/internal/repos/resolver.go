package repos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// shaPattern matches abbreviated and full commit SHAs. A branch or tag whose
// name is all hex and 7-40 characters long is shadowed by this rule.
var shaPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// LooksLikeSHA reports whether ref is treated as a commit SHA.
func LooksLikeSHA(ref string) bool {
	return shaPattern.MatchString(ref)
}

// Resolve pins refInput to a commit. An empty refInput means the default branch.
func Resolve(ctx context.Context, up Upstream, owner, repo, refInput string) (ResolvedCommit, error) {
	info, err := up.GetRepository(ctx, owner, repo)
	if err != nil {
		return ResolvedCommit{}, err
	}
	return resolveName(ctx, up, owner, repo, refInput, defaultBranchOf(info))
}

// ResolvePair pins two refs against a single repository metadata lookup.
func ResolvePair(ctx context.Context, up Upstream, owner, repo, base, head string) (ResolvedCommit, ResolvedCommit, error) {
	info, err := up.GetRepository(ctx, owner, repo)
	if err != nil {
		return ResolvedCommit{}, ResolvedCommit{}, err
	}
	b, err := resolveName(ctx, up, owner, repo, base, defaultBranchOf(info))
	if err != nil {
		return ResolvedCommit{}, ResolvedCommit{}, err
	}
	h, err := resolveName(ctx, up, owner, repo, head, defaultBranchOf(info))
	if err != nil {
		return ResolvedCommit{}, ResolvedCommit{}, err
	}
	return b, h, nil
}

func defaultBranchOf(info *RepoInfo) string {
	if info.DefaultBranch == "" {
		return "main"
	}
	return info.DefaultBranch
}

func resolveName(ctx context.Context, up Upstream, owner, repo, refInput, defaultBranch string) (ResolvedCommit, error) {
	ref := strings.TrimSpace(refInput)
	if ref == "" {
		ref = defaultBranch
	}
	out := ResolvedCommit{Ref: ref, DefaultBranch: defaultBranch}

	if LooksLikeSHA(ref) {
		sha := strings.ToLower(ref)
		if len(sha) < 40 {
			full, err := up.ExpandCommitSHA(ctx, owner, repo, sha)
			if err != nil {
				var upErr UpstreamError
				if errors.As(err, &upErr) && upErr.NotFound() {
					return ResolvedCommit{}, RefNotResolvedError{Ref: ref}
				}
				return ResolvedCommit{}, err
			}
			sha = full
		}
		out.CommitSHA = sha
		return out, nil
	}

	for _, kind := range []string{"heads/", "tags/"} {
		sha, err := up.LookupRef(ctx, owner, repo, kind+ref)
		if err == nil && sha != "" {
			out.CommitSHA = sha
			return out, nil
		}
		var upErr UpstreamError
		if err != nil && !(errors.As(err, &upErr) && upErr.NotFound()) {
			return ResolvedCommit{}, fmt.Errorf("lookup %s%s: %w", kind, ref, err)
		}
	}
	return ResolvedCommit{}, RefNotResolvedError{Ref: ref}
}
