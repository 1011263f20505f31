package engine

import (
	"context"
	"fmt"

	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/scheme"
)

// fakeLister serves canned listings keyed by repository URL.
type fakeLister struct {
	tags     map[string][]string
	branches map[string][]scheme.Ref
	err      error
	calls    int
}

func (f *fakeLister) Tags(_ context.Context, repoURL string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tags, ok := f.tags[repoURL]
	if !ok {
		return nil, fmt.Errorf("unexpected repo %q", repoURL)
	}
	return tags, nil
}

func (f *fakeLister) Branches(_ context.Context, repoURL string) ([]scheme.Ref, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	refs, ok := f.branches[repoURL]
	if !ok {
		return nil, fmt.Errorf("unexpected repo %q", repoURL)
	}
	return refs, nil
}

// fakeHasher returns canned hashes keyed by full artifact URL and records
// every fetch.
type fakeHasher struct {
	hashes map[string]string
	err    error
	calls  []string
}

func (f *fakeHasher) FetchHash(_ context.Context, rawURL string, _ bool) (string, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return "", f.err
	}
	hash, ok := f.hashes[rawURL]
	if !ok {
		return "", fmt.Errorf("unexpected url %q", rawURL)
	}
	return hash, nil
}

func gitTagsFixture() (lock.SourceMap, *fakeLister, *fakeHasher) {
	sources := lock.SourceMap{
		"bat": {
			Version:              "1.0.0",
			Hash:                 "sha256-old",
			LatestCheckedVersion: "1.0.0",
			ArtifactURLTemplate:  "https://github.com/sharkdp/bat/archive/v{version}.tar.gz",
			UpdateScheme:         lock.GitTagsScheme("", "v"),
		},
	}
	lister := &fakeLister{tags: map[string][]string{
		"https://github.com/sharkdp/bat": {"v1.0.0", "v2.0.0"},
	}}
	hasher := &fakeHasher{hashes: map[string]string{
		"https://github.com/sharkdp/bat/archive/v2.0.0.tar.gz": "sha256-new",
		"https://github.com/sharkdp/bat/archive/v1.0.0.tar.gz": "sha256-old",
	}}
	return sources, lister, hasher
}
