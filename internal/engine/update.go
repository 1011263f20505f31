package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/bianoble/kunai/internal/artifact"
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/logging"
	"github.com/bianoble/kunai/internal/scheme"
	"github.com/bianoble/kunai/internal/version"
)

// UpdateEngine reconciles sources against their upstream state.
type UpdateEngine struct {
	Lister scheme.RefLister
	Hasher artifact.Hasher
}

// UpdateOptions configures a reconciliation pass.
type UpdateOptions struct {
	// Names selects a subset of sources; empty means all.
	Names []string
	// Refetch fetches hashes even when the candidate version was already
	// checked.
	Refetch bool
	// Force examines pinned sources too.
	Force bool
	// Pin marks the selected sources pinned instead of updating them.
	Pin bool
	// Unpin clears the pinned flag instead of updating.
	Unpin bool
}

// Update runs one reconciliation pass over the selected sources, mutating
// the map in place. Recoverable per-source failures are collected in the
// result; a systemic failure aborts with an error and the caller must not
// persist the map.
func (e *UpdateEngine) Update(ctx context.Context, sources lock.SourceMap, opts UpdateOptions) (*UpdateResult, error) {
	if opts.Pin && opts.Unpin {
		return nil, errors.New("pin and unpin are mutually exclusive")
	}

	selected, err := selectNames(sources, opts.Names)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{Updated: make(map[string]VersionDiff)}

	for _, name := range selected {
		src := sources[name]

		if opts.Pin || opts.Unpin {
			e.togglePin(result, name, src, opts.Pin)
			continue
		}

		if src.Pinned && !opts.Force {
			logging.Debugf("%s: pinned, skipping", name)
			result.Skipped++
			continue
		}

		if err := e.reconcile(ctx, result, name, src, opts); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// togglePin flips the pinned flag. Pinning and version resolution are
// mutually exclusive within one pass.
func (e *UpdateEngine) togglePin(result *UpdateResult, name string, src *lock.Source, pinned bool) {
	if src.Pinned == pinned {
		result.UpToDate++
		return
	}
	src.Pinned = pinned
	result.PinChanged = append(result.PinChanged, name)
	result.Changed = true
	if pinned {
		logging.Infof("%s: pinned at version %s", name, src.Version)
	} else {
		logging.Infof("%s: unpinned", name)
	}
}

// reconcile resolves, checks staleness, fetches and applies the new state
// for one source. Returned errors are systemic and abort the whole run;
// per-source failures are recorded on result instead.
func (e *UpdateEngine) reconcile(ctx context.Context, result *UpdateResult, name string, src *lock.Source, opts UpdateOptions) error {
	candidate, err := scheme.Resolve(ctx, e.Lister, src)
	if err != nil {
		if scheme.IsRecoverable(err) {
			srcErr := &SourceError{Source: name, Err: err}
			logging.Warnf("%s", srcErr)
			result.Errors = append(result.Errors, srcErr)
			return nil
		}
		return &SourceError{Source: name, Err: err}
	}
	logging.Tracef("%s: candidate version %s", name, candidate)

	// A candidate we already examined is not re-fetched; this keeps
	// unusable candidates (recorded below) from being retried every run.
	if !src.UpdateScheme.IsStatic() && !opts.Refetch && src.LatestCheckedVersion == candidate {
		logging.Debugf("%s: candidate %s already checked", name, candidate)
		result.UpToDate++
		return nil
	}

	fullURL, err := src.FullURL(candidate)
	if err != nil {
		// A broken template is an authoring bug the operator must fix.
		return &SourceError{Source: name, Err: err}
	}

	hash, err := e.Hasher.FetchHash(ctx, fullURL.String(), src.Unpack)
	if err != nil {
		return e.recordFetchFailure(result, name, src, candidate, err)
	}

	switch {
	case candidate != src.Version:
		result.Updated[name] = VersionDiff{Old: src.Version, New: candidate}
		if version.IsNewer(src.Version, candidate) {
			logging.Warnf("%s: candidate %s sorts below current version %s", name, candidate, src.Version)
		}
		logging.Infof("%s: %s -> %s", name, src.Version, candidate)
		src.Version = candidate
		src.Hash = hash
		result.Changed = true
	case hash != src.Hash:
		logging.Infof("%s: hash changed for version %s", name, src.Version)
		result.HashChanged = append(result.HashChanged, name)
		src.Hash = hash
		result.Changed = true
	default:
		logging.Debugf("%s: up to date", name)
		result.UpToDate++
	}

	if src.LatestCheckedVersion != candidate {
		src.LatestCheckedVersion = candidate
		result.Changed = true
	}
	return nil
}

// recordFetchFailure applies the failure-isolation policy for hash fetching.
func (e *UpdateEngine) recordFetchFailure(result *UpdateResult, name string, src *lock.Source, candidate string, err error) error {
	var prefetchErr *artifact.PrefetchError
	var cmdErr *artifact.CommandError
	var malformedErr *artifact.MalformedResponseError

	switch {
	case errors.As(err, &prefetchErr):
		// The candidate exists but has no fetchable artifact (for example an
		// unreleased tag). Advance latestCheckedVersion so the candidate is
		// not re-resolved every run; version and hash stay untouched.
		srcErr := &SourceError{Source: name, Err: err}
		logging.Warnf("%s", srcErr)
		result.Errors = append(result.Errors, srcErr)
		if src.LatestCheckedVersion != candidate {
			src.LatestCheckedVersion = candidate
			result.Changed = true
		}
		return nil
	case errors.As(err, &cmdErr), errors.As(err, &malformedErr):
		// The tooling itself is broken; further attempts are equally futile.
		return &SourceError{Source: name, Err: err}
	default:
		srcErr := &SourceError{Source: name, Err: err}
		logging.Warnf("%s", srcErr)
		result.Errors = append(result.Errors, srcErr)
		return nil
	}
}

// selectNames returns the names to process in deterministic order. Asking
// for a source that does not exist fails the run before any work starts.
func selectNames(sources lock.SourceMap, names []string) ([]string, error) {
	if len(names) == 0 {
		return sources.SortedNames(), nil
	}

	var unknown []string
	for _, name := range names {
		if _, ok := sources[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownSourcesError{Names: unknown}
	}
	return names, nil
}

// UnknownSourcesError reports requested source names that are not in the
// lockfile.
type UnknownSourcesError struct {
	Names []string
}

func (e *UnknownSourcesError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("a source named %q does not exist", e.Names[0])
	}
	return fmt.Sprintf("sources do not exist: %v", e.Names)
}
