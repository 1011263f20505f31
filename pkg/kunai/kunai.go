// Package kunai provides the public Go library API for kunai.
//
// kunai pins external build artifacts by version and content hash in a
// declarative source file. This package exposes a Client for embedding the
// tool in other Go programs.
//
// # Basic Usage
//
//	client, err := kunai.New(kunai.Options{SourceFile: "kunai.lock"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Reconcile every source against its upstream.
//	result, err := client.Update(ctx, kunai.UpdateOptions{})
package kunai

import (
	"context"

	"github.com/bianoble/kunai/internal/artifact"
	"github.com/bianoble/kunai/internal/engine"
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/scheme"
)

// Option and result types are shared with the CLI.
type (
	UpdateOptions = engine.UpdateOptions
	UpdateResult  = engine.UpdateResult
	AddOptions    = engine.AddOptions
	EditKey       = engine.EditKey
	VersionDiff   = engine.VersionDiff
)

// Options configures a kunai client.
type Options struct {
	// SourceFile is the path to the source file. Default: "kunai.lock".
	SourceFile string

	// Lister resolves candidate versions from git remotes. Defaults to
	// invoking the git binary.
	Lister scheme.RefLister

	// Hasher fetches artifact content hashes. Defaults to invoking nix.
	Hasher artifact.Hasher
}

// Client is the main entry point for the kunai library.
type Client struct {
	sourceFile string
	lister     scheme.RefLister
	hasher     artifact.Hasher
}

// New creates a kunai Client.
func New(opts Options) (*Client, error) {
	if opts.SourceFile == "" {
		opts.SourceFile = "kunai.lock"
	}
	if opts.Lister == nil {
		opts.Lister = &scheme.GitRefLister{}
	}
	if opts.Hasher == nil {
		opts.Hasher = &artifact.NixHasher{}
	}
	return &Client{
		sourceFile: opts.SourceFile,
		lister:     opts.Lister,
		hasher:     opts.Hasher,
	}, nil
}

// Init creates an empty source file. It fails if the file exists.
func (c *Client) Init() error {
	return lock.Init(c.sourceFile)
}

// Sources returns the current contents of the source file.
func (c *Client) Sources() (lock.SourceMap, error) {
	return lock.Load(c.sourceFile)
}

// Update reconciles sources against their upstreams and persists any change.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	sources, err := lock.Load(c.sourceFile)
	if err != nil {
		return nil, err
	}

	eng := &engine.UpdateEngine{Lister: c.lister, Hasher: c.hasher}
	result, err := eng.Update(ctx, sources, opts)
	if err != nil {
		return nil, err
	}

	if result.Changed {
		if err := lock.Save(c.sourceFile, sources); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Add tracks a new source and persists it. It returns the final name.
func (c *Client) Add(ctx context.Context, opts AddOptions) (string, error) {
	sources, err := lock.Load(c.sourceFile)
	if err != nil {
		return "", err
	}

	eng := &engine.AddEngine{Lister: c.lister, Hasher: c.hasher}
	name, err := eng.Add(ctx, sources, opts)
	if err != nil {
		return "", err
	}

	if err := lock.Save(c.sourceFile, sources); err != nil {
		return "", err
	}
	return name, nil
}

// Delete removes the named sources. If any name is unknown, nothing changes.
func (c *Client) Delete(names []string) error {
	sources, err := lock.Load(c.sourceFile)
	if err != nil {
		return err
	}

	if err := engine.Delete(sources, names); err != nil {
		return err
	}
	return lock.Save(c.sourceFile, sources)
}

// Edit changes one field of one source and persists it. It reports whether
// the edit may have invalidated the stored hash.
func (c *Client) Edit(name string, key EditKey, value string) (bool, error) {
	sources, err := lock.Load(c.sourceFile)
	if err != nil {
		return false, err
	}

	hashAffecting, err := engine.Edit(sources, name, key, value)
	if err != nil {
		return false, err
	}

	if err := lock.Save(c.sourceFile, sources); err != nil {
		return false, err
	}
	return hashAffecting, nil
}
