package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/bianoble/kunai/internal/artifact"
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/scheme"
)

func TestUpdateVersionChange(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	diff, ok := result.Updated["bat"]
	if !ok {
		t.Fatal("bat not recorded as updated")
	}
	if diff.Old != "1.0.0" || diff.New != "2.0.0" {
		t.Errorf("diff = %+v", diff)
	}

	src := sources["bat"]
	if src.Version != "2.0.0" || src.Hash != "sha256-new" {
		t.Errorf("version = %q, hash = %q — version and hash must move together", src.Version, src.Hash)
	}
	if src.LatestCheckedVersion != "2.0.0" {
		t.Errorf("latestCheckedVersion = %q", src.LatestCheckedVersion)
	}
	if !result.Changed {
		t.Error("Changed should be true")
	}
}

func TestUpdateIdempotence(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	first, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("first Update: %v", err)
	}
	if len(first.Updated) != 1 {
		t.Fatalf("first run updated = %v", first.Updated)
	}
	firstDoc, err := lock.Marshal(sources)
	if err != nil {
		t.Fatal(err)
	}

	second, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if second.Changed {
		t.Error("second run should change nothing")
	}
	if second.UpToDate != 1 || len(second.Updated) != 0 {
		t.Errorf("second run: upToDate = %d, updated = %v", second.UpToDate, second.Updated)
	}
	secondDoc, err := lock.Marshal(sources)
	if err != nil {
		t.Fatal(err)
	}
	if string(firstDoc) != string(secondDoc) {
		t.Error("document changed across an idempotent pass")
	}
}

func TestUpdateStalenessSkipsFetch(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	// A previous pass already observed 2.0.0 without adopting it.
	sources["bat"].LatestCheckedVersion = "2.0.0"
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(hasher.calls) != 0 {
		t.Errorf("hasher called %d times, want 0", len(hasher.calls))
	}
	if result.UpToDate != 1 || result.Changed {
		t.Errorf("result = %+v", result)
	}
	if sources["bat"].Version != "1.0.0" {
		t.Error("version must not move without a hash fetch")
	}
}

func TestUpdateRefetchOverridesStaleness(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	sources["bat"].LatestCheckedVersion = "2.0.0"
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{Refetch: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(hasher.calls) != 1 {
		t.Fatalf("hasher calls = %v", hasher.calls)
	}
	if sources["bat"].Version != "2.0.0" {
		t.Errorf("version = %q", sources["bat"].Version)
	}
	if _, ok := result.Updated["bat"]; !ok {
		t.Error("refetch should adopt the candidate")
	}
}

func TestUpdateStaticAlwaysFetches(t *testing.T) {
	sources := lock.SourceMap{
		"blob": {
			Version:              "2024-01-01",
			Hash:                 "sha256-old",
			LatestCheckedVersion: "2024-01-01",
			ArtifactURLTemplate:  "https://example.com/data/{version}.bin",
			UpdateScheme:         lock.StaticScheme(),
		},
	}
	hasher := &fakeHasher{hashes: map[string]string{
		"https://example.com/data/2024-01-01.bin": "sha256-rehashed",
	}}
	eng := &UpdateEngine{Lister: &fakeLister{}, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(hasher.calls) != 1 {
		t.Error("static sources are re-hashed on every pass")
	}
	if len(result.HashChanged) != 1 || result.HashChanged[0] != "blob" {
		t.Errorf("hashChanged = %v", result.HashChanged)
	}
	if sources["blob"].Hash != "sha256-rehashed" || sources["blob"].Version != "2024-01-01" {
		t.Errorf("source = %+v", sources["blob"])
	}
}

func TestUpdatePinnedSkipped(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	sources["bat"].Pinned = true
	before := *sources["bat"]
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if result.Skipped != 1 || result.Changed {
		t.Errorf("result = %+v", result)
	}
	if *sources["bat"] != before {
		t.Error("pinned source must not change in any field")
	}
	if lister.calls != 0 || len(hasher.calls) != 0 {
		t.Error("pinned sources must not contact collaborators")
	}
}

func TestUpdateForceExaminesPinned(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	sources["bat"].Pinned = true
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{Force: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, ok := result.Updated["bat"]; !ok {
		t.Error("force should update a pinned source")
	}
	if !sources["bat"].Pinned {
		t.Error("force must not clear the pinned flag")
	}
}

func TestUpdatePinTogglesWithoutResolution(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{Pin: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if !sources["bat"].Pinned {
		t.Error("source should be pinned")
	}
	if lister.calls != 0 || len(hasher.calls) != 0 {
		t.Error("pinning must not resolve or fetch")
	}
	if len(result.PinChanged) != 1 || !result.Changed {
		t.Errorf("result = %+v", result)
	}
	if sources["bat"].Version != "1.0.0" {
		t.Error("pinning must not touch the version")
	}
}

func TestUpdateUnpinAlreadyUnpinned(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{Unpin: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Changed {
		t.Error("unpinning an unpinned source should change nothing")
	}
}

func TestUpdatePinAndUnpinConflict(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	if _, err := eng.Update(context.Background(), sources, UpdateOptions{Pin: true, Unpin: true}); err == nil {
		t.Error("expected error for pin+unpin")
	}
}

func TestUpdatePrefetchFailureIsIsolated(t *testing.T) {
	sources, lister, _ := gitTagsFixture()
	hasher := &fakeHasher{err: &artifact.PrefetchError{URL: "https://github.com/sharkdp/bat/archive/v2.0.0.tar.gz"}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	src := sources["bat"]
	if src.Version != "1.0.0" || src.Hash != "sha256-old" {
		t.Error("version/hash must stay untouched on prefetch failure")
	}
	if src.LatestCheckedVersion != "2.0.0" {
		t.Errorf("latestCheckedVersion = %q, want candidate recorded", src.LatestCheckedVersion)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v", result.Errors)
	}
	if !result.Changed {
		t.Error("advancing latestCheckedVersion must be persisted")
	}
}

func TestUpdatePrefetchFailureNotRetriedNextRun(t *testing.T) {
	sources, lister, _ := gitTagsFixture()
	hasher := &fakeHasher{err: &artifact.PrefetchError{URL: "x"}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	if _, err := eng.Update(context.Background(), sources, UpdateOptions{}); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	firstCalls := len(hasher.calls)

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if len(hasher.calls) != firstCalls {
		t.Error("unusable candidate must not be re-fetched on the next run")
	}
	if result.UpToDate != 1 {
		t.Errorf("upToDate = %d", result.UpToDate)
	}
}

func TestUpdateSpawnFailureAbortsRun(t *testing.T) {
	sources, lister, _ := gitTagsFixture()
	hasher := &fakeHasher{err: &artifact.CommandError{Command: "nix store prefetch-file", Err: errors.New("executable not found")}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	_, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err == nil {
		t.Fatal("expected systemic failure to abort the run")
	}
	var cmdErr *artifact.CommandError
	if !errors.As(err, &cmdErr) {
		t.Errorf("err = %v, want wrapped *artifact.CommandError", err)
	}
}

func TestUpdateMalformedResponseAbortsRun(t *testing.T) {
	sources, lister, _ := gitTagsFixture()
	hasher := &fakeHasher{err: &artifact.MalformedResponseError{Line: 1, Column: 2}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	if _, err := eng.Update(context.Background(), sources, UpdateOptions{}); err == nil {
		t.Fatal("expected malformed response to abort the run")
	}
}

func TestUpdateRecoverableResolveErrorContinues(t *testing.T) {
	sources := lock.SourceMap{
		// Template with a single path segment: repository inference fails.
		"broken": {
			Version:             "1.0",
			ArtifactURLTemplate: "https://example.com/{version}.tar.gz",
			UpdateScheme:        lock.GitTagsScheme("", "v"),
		},
		"good": {
			Version:              "1.0.0",
			Hash:                 "sha256-old",
			LatestCheckedVersion: "1.0.0",
			ArtifactURLTemplate:  "https://github.com/sharkdp/bat/archive/v{version}.tar.gz",
			UpdateScheme:         lock.GitTagsScheme("", "v"),
		},
	}
	lister := &fakeLister{tags: map[string][]string{
		"https://github.com/sharkdp/bat": {"v2.0.0"},
	}}
	hasher := &fakeHasher{hashes: map[string]string{
		"https://github.com/sharkdp/bat/archive/v2.0.0.tar.gz": "sha256-new",
	}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(result.Errors) != 1 || result.Errors[0].Source != "broken" {
		t.Errorf("errors = %v", result.Errors)
	}
	if _, ok := result.Updated["good"]; !ok {
		t.Error("the bad source must not block the good one")
	}
}

func TestUpdateListerFailureAbortsRun(t *testing.T) {
	sources, _, hasher := gitTagsFixture()
	lister := &fakeLister{err: &scheme.CommandError{Command: "git ls-remote", Err: errors.New("spawn failed")}}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	if _, err := eng.Update(context.Background(), sources, UpdateOptions{}); err == nil {
		t.Fatal("expected lister failure to abort the run")
	}
}

func TestUpdateBadTemplateAbortsRun(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	sources["bat"].ArtifactURLTemplate = "://not-a-url/{version}"
	sources["bat"].UpdateScheme = lock.GitTagsScheme("https://github.com/sharkdp/bat", "v")
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	_, err := eng.Update(context.Background(), sources, UpdateOptions{})
	if err == nil {
		t.Fatal("expected template failure to abort the run")
	}
	var buildErr *lock.BuildFullURLError
	if !errors.As(err, &buildErr) {
		t.Errorf("err = %v, want wrapped *lock.BuildFullURLError", err)
	}
}

func TestUpdateNameFilter(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	sources["other"] = &lock.Source{
		Version:             "1.0",
		ArtifactURLTemplate: "https://example.com/o/r/{version}.bin",
		UpdateScheme:        lock.StaticScheme(),
	}
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	result, err := eng.Update(context.Background(), sources, UpdateOptions{Names: []string{"bat"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, ok := result.Updated["bat"]; !ok {
		t.Error("bat should be updated")
	}
	if sources["other"].Hash != "" {
		t.Error("unselected source must not be touched")
	}
}

func TestUpdateUnknownNameFails(t *testing.T) {
	sources, lister, hasher := gitTagsFixture()
	eng := &UpdateEngine{Lister: lister, Hasher: hasher}

	_, err := eng.Update(context.Background(), sources, UpdateOptions{Names: []string{"bat", "ghost"}})
	var unknown *UnknownSourcesError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownSourcesError", err)
	}
	if len(unknown.Names) != 1 || unknown.Names[0] != "ghost" {
		t.Errorf("names = %v", unknown.Names)
	}
	if lister.calls != 0 {
		t.Error("no work should start with an unknown name in the filter")
	}
}
