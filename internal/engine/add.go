package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bianoble/kunai/internal/artifact"
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/logging"
	"github.com/bianoble/kunai/internal/scheme"
)

// AddEngine creates new sources, resolving initial versions and hashes as
// needed.
type AddEngine struct {
	Lister scheme.RefLister
	Hasher artifact.Hasher
}

// AddOptions describes the source to create. Scheme-specific fields are
// validated against the chosen scheme; supplying one for the wrong scheme is
// a configuration error.
type AddOptions struct {
	// Name of the new source. Optional for git schemes, where it defaults to
	// the last path segment of the resolved repository URL.
	Name string
	// URLTemplate is the artifact URL template with {version} (and, for
	// git-branch, {branch}) placeholders.
	URLTemplate string
	// Scheme is one of git-tags, git-branch, static.
	Scheme string
	// Version is the initial version. Optional for git schemes, required
	// for static.
	Version string
	// RepoURL overrides template inference (git-tags) or names the
	// repository (git-branch).
	RepoURL string
	// TagPrefix filters tags (git-tags only).
	TagPrefix string
	// Branch to track (git-branch only).
	Branch string
	// ShortHashLength for branch candidates (git-branch only); zero selects
	// the default.
	ShortHashLength int
	// Unpack passes the unpack flag to every prefetch of this source.
	Unpack bool
	// Hash skips prefetching when set.
	Hash string
	// Pinned creates the source already pinned.
	Pinned bool
}

// ErrSourceExists means a source with the requested name is already tracked.
var ErrSourceExists = errors.New("a source with this name already exists")

// Add validates opts, builds the new source, fetches its hash unless one was
// supplied, and inserts it into the map. It returns the final (possibly
// inferred) name.
func (e *AddEngine) Add(ctx context.Context, sources lock.SourceMap, opts AddOptions) (string, error) {
	us, err := buildScheme(opts)
	if err != nil {
		return "", err
	}

	name := opts.Name
	if name == "" {
		name, err = inferName(opts, us)
		if err != nil {
			return "", err
		}
		logging.Debugf("inferred source name %q", name)
	}

	if _, ok := sources[name]; ok {
		return "", fmt.Errorf("%q: %w", name, ErrSourceExists)
	}

	initial := opts.Version
	if initial == "" {
		probe := lock.NewSource("", opts.URLTemplate, us)
		initial, err = scheme.Resolve(ctx, e.Lister, probe)
		if err != nil {
			return "", fmt.Errorf("resolving initial version: %w", err)
		}
		logging.Debugf("resolved initial version %q for %s", initial, name)
	}

	src := lock.NewSource(initial, opts.URLTemplate, us).
		WithUnpack(opts.Unpack).
		WithPinned(opts.Pinned)

	hash := opts.Hash
	if hash == "" {
		fullURL, err := src.FullURL(initial)
		if err != nil {
			return "", err
		}
		hash, err = e.Hasher.FetchHash(ctx, fullURL.String(), src.Unpack)
		if err != nil {
			return "", err
		}
	}
	src.Hash = hash

	sources[name] = src
	logging.Infof("added source %q at version %s", name, initial)
	return name, nil
}

func buildScheme(opts AddOptions) (lock.UpdateScheme, error) {
	switch opts.Scheme {
	case lock.SchemeGitTags:
		if opts.Branch != "" || opts.ShortHashLength != 0 {
			return lock.UpdateScheme{}, fmt.Errorf("branch options are not valid for the %s scheme", opts.Scheme)
		}
		return lock.GitTagsScheme(opts.RepoURL, opts.TagPrefix), nil

	case lock.SchemeGitBranch:
		if opts.TagPrefix != "" {
			return lock.UpdateScheme{}, fmt.Errorf("a tag prefix is not valid for the %s scheme", opts.Scheme)
		}
		if opts.Branch == "" {
			return lock.UpdateScheme{}, fmt.Errorf("the %s scheme requires a branch", opts.Scheme)
		}
		return lock.GitBranchScheme(opts.RepoURL, opts.Branch, opts.ShortHashLength), nil

	case lock.SchemeStatic:
		if opts.RepoURL != "" || opts.TagPrefix != "" || opts.Branch != "" || opts.ShortHashLength != 0 {
			return lock.UpdateScheme{}, fmt.Errorf("repository options are not valid for the %s scheme", opts.Scheme)
		}
		if opts.Version == "" {
			return lock.UpdateScheme{}, fmt.Errorf("the %s scheme requires an explicit version", opts.Scheme)
		}
		if opts.Name == "" {
			return lock.UpdateScheme{}, fmt.Errorf("the %s scheme requires an explicit name", opts.Scheme)
		}
		return lock.StaticScheme(), nil
	}
	return lock.UpdateScheme{}, fmt.Errorf("unknown update scheme %q (expected %s, %s, or %s)",
		opts.Scheme, lock.SchemeGitTags, lock.SchemeGitBranch, lock.SchemeStatic)
}

// inferName derives a source name from the resolved repository URL's last
// path segment, with any .git suffix dropped.
func inferName(opts AddOptions, us lock.UpdateScheme) (string, error) {
	repoURL := us.RepoURL
	if repoURL == "" {
		inferred, err := scheme.InferRepoURL(opts.URLTemplate)
		if err != nil {
			return "", fmt.Errorf("inferring source name: %w", err)
		}
		repoURL = inferred
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("inferring source name from %q: %w", repoURL, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := strings.TrimSuffix(segments[len(segments)-1], ".git")
	if name == "" {
		return "", fmt.Errorf("cannot infer a source name from %q", repoURL)
	}
	return name, nil
}
