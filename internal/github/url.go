// internal/github/url.go
package github

import (
	"net/url"
	"strings"

	custom_errors "ghost-vault/internal/errors"
)

const githubHost = "github.com"

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

// FullName returns the "owner/name" string.
func (r RepoIdentifier) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL resolves a repository reference to its owner and name.
// Supported forms:
//   - "owner/name"
//   - "https://github.com/owner/name" (optionally with ".git" or extra path segments)
//   - "git@github.com:owner/name.git"
func ParseRepoURL(raw string) (RepoIdentifier, error) {
	ref := strings.TrimSpace(raw)
	invalid := &custom_errors.ErrInvalidRepoFormat{Repo: raw}
	if ref == "" {
		return RepoIdentifier{}, invalid
	}

	var path string
	switch {
	case strings.HasPrefix(ref, "git@"):
		host, rest, ok := strings.Cut(strings.TrimPrefix(ref, "git@"), ":")
		if !ok || !strings.EqualFold(host, githubHost) {
			return RepoIdentifier{}, invalid
		}
		path = rest
	case strings.Contains(ref, "://"):
		u, err := url.Parse(ref)
		if err != nil || !strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), githubHost) {
			return RepoIdentifier{}, invalid
		}
		path = u.Path
	case strings.HasPrefix(strings.ToLower(ref), githubHost+"/"):
		path = ref[len(githubHost)+1:]
	default:
		if strings.Count(ref, "/") != 1 {
			return RepoIdentifier{}, invalid
		}
		path = ref
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return RepoIdentifier{}, invalid
	}
	owner, name := parts[0], strings.TrimSuffix(parts[1], ".git")
	if owner == "" || name == "" {
		return RepoIdentifier{}, invalid
	}
	return RepoIdentifier{Owner: owner, Name: name}, nil
}
