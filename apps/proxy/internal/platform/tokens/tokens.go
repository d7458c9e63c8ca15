// Package tokens selects the upstream credential for a repository owner.
//
// Lookup order: TOKEN_<OWNER> (owner upper-cased, '-' and '.' replaced by
// '_'), then TOKEN_DEFAULT, then a GitHub App installation token when one is
// configured.
package tokens

import (
	"context"
	"errors"
	"strings"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

var (
	_ repos.TokenProvider = Env{}
	_ repos.TokenProvider = App{}
	_ repos.TokenProvider = Chain{}
)

// Env reads tokens from environment variables.
type Env struct {
	getenv func(string) string
}

// NewEnv returns an Env backed by getenv (normally os.Getenv).
func NewEnv(getenv func(string) string) Env {
	return Env{getenv: getenv}
}

// VarName returns the per-owner environment variable name.
func VarName(owner string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return "TOKEN_" + r.Replace(strings.ToUpper(owner))
}

// ForOwner implements repos.TokenProvider.
func (e Env) ForOwner(_ context.Context, owner string) (string, error) {
	if tok := strings.TrimSpace(e.getenv(VarName(owner))); tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(e.getenv("TOKEN_DEFAULT")); tok != "" {
		return tok, nil
	}
	return "", repos.MissingCredentialError{Owner: owner}
}

// Minter issues short-lived tokens, e.g. a GitHub App installation.
type Minter interface {
	Token(ctx context.Context) (string, error)
}

// App hands out installation tokens regardless of owner.
type App struct {
	Minter Minter
}

// ForOwner implements repos.TokenProvider.
func (a App) ForOwner(ctx context.Context, owner string) (string, error) {
	if a.Minter == nil {
		return "", repos.MissingCredentialError{Owner: owner}
	}
	return a.Minter.Token(ctx)
}

// Chain asks each provider in turn and returns the first token found.
// Only a missing credential moves on to the next provider.
type Chain []repos.TokenProvider

// ForOwner implements repos.TokenProvider.
func (c Chain) ForOwner(ctx context.Context, owner string) (string, error) {
	for _, p := range c {
		tok, err := p.ForOwner(ctx, owner)
		var missing repos.MissingCredentialError
		switch {
		case err == nil && tok != "":
			return tok, nil
		case err == nil, errors.As(err, &missing):
			continue
		default:
			return "", err
		}
	}
	return "", repos.MissingCredentialError{Owner: owner}
}
