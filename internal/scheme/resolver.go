// Package scheme resolves candidate versions for sources according to their
// update scheme: latest matching git tag, branch head commit, or the pinned
// static label.
package scheme

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bianoble/kunai/internal/lock"
)

// Ref is one remote ref with its commit hash.
type Ref struct {
	Name   string // final path segment, e.g. "main"
	Commit string
}

// RefLister lists remote repository refs. Implementations wrap the external
// version-control tooling; tests substitute an in-memory fake.
type RefLister interface {
	// Tags returns remote tag names in version-aware ascending order.
	Tags(ctx context.Context, repoURL string) ([]string, error)

	// Branches returns remote branch refs with their head commits.
	Branches(ctx context.Context, repoURL string) ([]Ref, error)
}

// ErrNoTagsFitFilter means no remote tag passed the tag prefix filter.
var ErrNoTagsFitFilter = errors.New("no tag fits the provided filter")

// BranchNotFoundError means the configured branch does not exist on the
// remote.
type BranchNotFoundError struct {
	Branch string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("could not find branch %q", e.Branch)
}

// InferRepoURLError means a repository URL could not be derived from an
// artifact URL template. Callers treat this as recoverable for the affected
// source.
type InferRepoURLError struct {
	Template string
	Err      error
}

func (e *InferRepoURLError) Error() string {
	return fmt.Sprintf("could not infer repository URL from template %q: %s", e.Template, e.Err)
}

func (e *InferRepoURLError) Unwrap() error {
	return e.Err
}

// Infer failure causes.
var (
	ErrArtifactURLNoBase        = errors.New("artifact URL has no base")
	ErrInsufficientPathSegments = errors.New("insufficient path segments")
)

// InferRepoURL derives a repository URL from an artifact URL template by
// keeping its first two path segments as owner/repo.
func InferRepoURL(template string) (string, error) {
	u, err := url.Parse(template)
	if err != nil {
		return "", &InferRepoURLError{Template: template, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &InferRepoURLError{Template: template, Err: ErrArtifactURLNoBase}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", &InferRepoURLError{Template: template, Err: ErrInsufficientPathSegments}
	}

	u.Path = "/" + segments[0] + "/" + segments[1]
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// repoURLFor returns the explicit repository URL override when present,
// otherwise infers one from the artifact URL template. Explicit always wins.
func repoURLFor(src *lock.Source) (string, error) {
	if src.UpdateScheme.RepoURL != "" {
		return src.UpdateScheme.RepoURL, nil
	}
	return InferRepoURL(src.ArtifactURLTemplate)
}

// matchesTagFilter reports whether tag starts with prefix and the character
// immediately after the prefix is an ASCII digit. The digit boundary keeps
// prefix "v" from matching tags like "version-info".
func matchesTagFilter(tag, prefix string) bool {
	if !strings.HasPrefix(tag, prefix) || len(tag) <= len(prefix) {
		return false
	}
	c := tag[len(prefix)]
	return c >= '0' && c <= '9'
}

// Resolve computes the candidate version for a source. The scheme set is
// closed; an unrecognized discriminant is a corrupt entry, not an extension
// point.
func Resolve(ctx context.Context, lister RefLister, src *lock.Source) (string, error) {
	switch src.UpdateScheme.Type {
	case lock.SchemeGitTags:
		return resolveGitTags(ctx, lister, src)
	case lock.SchemeGitBranch:
		return resolveGitBranch(ctx, lister, src)
	case lock.SchemeStatic:
		return src.Version, nil
	}
	return "", fmt.Errorf("unknown update scheme type %q", src.UpdateScheme.Type)
}

func resolveGitTags(ctx context.Context, lister RefLister, src *lock.Source) (string, error) {
	repoURL, err := repoURLFor(src)
	if err != nil {
		return "", err
	}

	tags, err := lister.Tags(ctx, repoURL)
	if err != nil {
		return "", fmt.Errorf("fetching tags from %s: %w", repoURL, err)
	}

	prefix := src.UpdateScheme.TagPrefix
	latest := ""
	found := false
	for _, tag := range tags {
		if matchesTagFilter(tag, prefix) {
			latest = tag
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrNoTagsFitFilter)
	}

	return strings.TrimPrefix(latest, prefix), nil
}

func resolveGitBranch(ctx context.Context, lister RefLister, src *lock.Source) (string, error) {
	repoURL, err := repoURLFor(src)
	if err != nil {
		return "", err
	}

	refs, err := lister.Branches(ctx, repoURL)
	if err != nil {
		return "", fmt.Errorf("fetching branches from %s: %w", repoURL, err)
	}

	branch := src.UpdateScheme.Branch
	var commit string
	for _, ref := range refs {
		if ref.Name == branch {
			commit = ref.Commit
			break
		}
	}
	if commit == "" {
		return "", &BranchNotFoundError{Branch: branch}
	}

	n := src.UpdateScheme.ShortHashLength
	if n <= 0 {
		n = lock.DefaultShortHashLength
	}
	if n > len(commit) {
		n = len(commit)
	}
	return branch + "-" + commit[:n], nil
}

// IsRecoverable reports whether a resolution error is isolated to the source
// that produced it. Unresolvable repository URLs and empty tag filters are
// per-source conditions; everything else (unreachable remotes, missing
// branches, subprocess failures) indicates the run as a whole cannot proceed.
func IsRecoverable(err error) bool {
	var infer *InferRepoURLError
	return errors.As(err, &infer) || errors.Is(err, ErrNoTagsFitFilter)
}
