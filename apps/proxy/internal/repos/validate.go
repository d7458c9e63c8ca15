package repos

import (
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateRepo checks owner and repo before any upstream call is made.
func ValidateRepo(owner, repo string) error {
	if owner == "" {
		return InvalidInputError{Field: "owner", Reason: "is required"}
	}
	if repo == "" {
		return InvalidInputError{Field: "repo", Reason: "is required"}
	}
	if !namePattern.MatchString(owner) {
		return InvalidInputError{Field: "owner", Reason: "contains unsupported characters"}
	}
	if !namePattern.MatchString(repo) || repo == "." || repo == ".." {
		return InvalidInputError{Field: "repo", Reason: "contains unsupported characters"}
	}
	return nil
}

// NormalizePath trims surrounding slashes and whitespace from a repository
// path and rejects traversal or empty segments. An empty result is the root.
func NormalizePath(field, p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", nil
	}
	if strings.ContainsAny(p, "\\\x00") {
		return "", InvalidInputError{Field: field, Reason: "contains unsupported characters"}
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return "", InvalidInputError{Field: field, Reason: "contains an empty segment"}
		case ".", "..":
			return "", InvalidInputError{Field: field, Reason: "must not contain relative segments"}
		}
	}
	return p, nil
}
