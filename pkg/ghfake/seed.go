package ghfake

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Seed describes repositories to preload, typically from a YAML file.
type Seed struct {
	Repos []SeedRepo `yaml:"repos"`
}

// SeedRepo is one repository with its history, oldest commit first.
type SeedRepo struct {
	Owner         string       `yaml:"owner"`
	Name          string       `yaml:"name"`
	DefaultBranch string       `yaml:"defaultBranch"`
	Commits       []SeedCommit `yaml:"commits"`
	Tags          []SeedTag    `yaml:"tags"`
}

// SeedCommit is applied on top of Branch's current head.
type SeedCommit struct {
	Branch  string            `yaml:"branch"`
	Message string            `yaml:"message"`
	Author  string            `yaml:"author"`
	Files   map[string]string `yaml:"files"`
	Delete  []string          `yaml:"delete"`
}

// SeedTag points Name at a branch head.
type SeedTag struct {
	Name      string `yaml:"name"`
	Target    string `yaml:"target"`
	Annotated bool   `yaml:"annotated"`
}

// DecodeSeed reads a YAML seed document.
func DecodeSeed(r io.Reader) (Seed, error) {
	var s Seed
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	return s, nil
}

// Load applies a seed to the fake.
func (f *Fake) Load(s Seed) error {
	for _, repo := range s.Repos {
		branch := repo.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		f.AddRepo(repo.Owner, repo.Name, branch)
		for _, c := range repo.Commits {
			target := c.Branch
			if target == "" {
				target = branch
			}
			if _, err := f.Commit(repo.Owner, repo.Name, target, Change{
				Message: c.Message,
				Author:  c.Author,
				Files:   c.Files,
				Delete:  c.Delete,
			}); err != nil {
				return fmt.Errorf("seed %s/%s: %w", repo.Owner, repo.Name, err)
			}
		}
		for _, t := range repo.Tags {
			if err := f.Tag(repo.Owner, repo.Name, t.Name, t.Target, t.Annotated); err != nil {
				return fmt.Errorf("seed %s/%s tag %s: %w", repo.Owner, repo.Name, t.Name, err)
			}
		}
	}
	return nil
}
