package main

import (
	"fmt"
	"strings"

	"github.com/tilsley/repoproxy/pkg/ghfake"
)

// changelogEntries makes CHANGELOG.md long enough to span several chunks.
const changelogEntries = 300

// builtinSeed describes a small library with history, a feature branch, a
// release tag and a few awkward files (binary, large, nested, spaced names),
// plus an empty repository and one whose default branch is not main.
func builtinSeed() ghfake.Seed {
	widgets := ghfake.SeedRepo{Owner: "acme", Name: "widgets", DefaultBranch: "main"}
	widgets.Commits = []ghfake.SeedCommit{
		{
			Message: "Initial import",
			Author:  "octocat",
			Files: map[string]string{
				"README.md":                   "# widgets\n\nGadgets for acme.\n",
				"go.mod":                      "module example.com/widgets\n\ngo 1.22\n",
				"src/widget.go":               goFile("widget", "Name", `"widget"`),
				"src/internal/gear/gear.go":   goFile("gear", "Teeth", "12"),
				"docs/getting started.md":     "Run `go test ./...`.\n",
				"assets/logo.png":             "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
				"CHANGELOG.md":                changelog(changelogEntries),
				"testdata/fixtures/empty.txt": "",
			},
		},
		{
			Message: "Spin gears faster\n\nThe gear ratio was off by one.",
			Author:  "hubot",
			Files: map[string]string{
				"src/internal/gear/gear.go": goFile("gear", "Teeth", "13"),
				"CHANGELOG.md":              changelog(changelogEntries + 1),
			},
			Delete: []string{"testdata/fixtures/empty.txt"},
		},
		{
			Branch:  "feature/colors",
			Message: "Add colors",
			Author:  "octocat",
			Files:   map[string]string{"src/color.go": goFile("widget", "Color", `"blue"`)},
		},
	}
	widgets.Tags = []ghfake.SeedTag{
		{Name: "v0.1.0", Target: "main", Annotated: true},
		{Name: "nightly", Target: "feature/colors"},
	}

	docs := ghfake.SeedRepo{
		Owner:         "acme",
		Name:          "handbook",
		DefaultBranch: "trunk",
		Commits: []ghfake.SeedCommit{{
			Message: "Start the handbook",
			Files: map[string]string{
				"index.md":            "# Handbook\n",
				"onboarding/day-1.md": "Say hello.\n",
				"onboarding/day-2.md": "Ship something.\n",
				"policies/fenced.md":  "```\ncode\n```\n",
			},
		}},
	}

	return ghfake.Seed{Repos: []ghfake.SeedRepo{
		widgets,
		docs,
		{Owner: "acme", Name: "empty", DefaultBranch: "main"},
	}}
}

func goFile(pkg, name, value string) string {
	return fmt.Sprintf("package %s\n\nfunc %s() any { return %s }\n", pkg, name, value)
}

func changelog(n int) string {
	var b strings.Builder
	b.WriteString("# Changelog\n\n")
	for i := n; i > 0; i-- {
		fmt.Fprintf(&b, "- 0.0.%d: routine maintenance\n", i)
	}
	return b.String()
}
