// Package artifact computes content hashes of external build artifacts by
// delegating to the content-addressing prefetch tool.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bianoble/kunai/internal/jsonpos"
)

// Hasher fetches an artifact and returns its content hash. Implementations
// wrap the external prefetch tool; tests substitute an in-memory fake.
type Hasher interface {
	FetchHash(ctx context.Context, rawURL string, unpack bool) (string, error)
}

// CommandError means the prefetch tool could not be started. The tooling or
// environment is broken; callers abort the whole run.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("failed to execute command %q: %s", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// PrefetchError means the tool ran but could not fetch the artifact —
// typically a candidate tag with no published artifact yet. Callers treat
// this as recoverable for the affected source.
type PrefetchError struct {
	URL string
}

func (e *PrefetchError) Error() string {
	return fmt.Sprintf("could not fetch artifact at %s", e.URL)
}

// MalformedResponseError means the tool produced output that does not match
// its documented response shape. Positions are zero when unknown.
type MalformedResponseError struct {
	Line   int
	Column int
	Body   []byte
}

func (e *MalformedResponseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed or incorrect JSON at line %d, column %d of prefetch response", e.Line, e.Column)
	}
	return "malformed or incorrect JSON in prefetch response"
}

// NixHasher hashes artifacts with `nix store prefetch-file`. The invocation
// and response shape are fixed by the downstream build tooling that consumes
// the recorded hashes.
type NixHasher struct{}

func (NixHasher) FetchHash(ctx context.Context, rawURL string, unpack bool) (string, error) {
	args := []string{"store", "prefetch-file", rawURL, "--json"}
	if unpack {
		args = append(args, "--unpack")
	}

	cmd := exec.CommandContext(ctx, "nix", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &PrefetchError{URL: rawURL}
		}
		return "", &CommandError{Command: "nix " + strings.Join(args, " "), Err: err}
	}

	return parsePrefetchResponse(out)
}

func parsePrefetchResponse(body []byte) (string, error) {
	var resp struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		line, col := 0, 0
		if off := jsonpos.Offset(err); off >= 0 {
			line, col = jsonpos.Position(body, off)
		}
		return "", &MalformedResponseError{Line: line, Column: col, Body: body}
	}
	if resp.Hash == "" {
		return "", &MalformedResponseError{Body: body}
	}
	return resp.Hash, nil
}
