package scheme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandError means the external ref-listing command could not be run or
// exited non-zero. This is systemic: one unreachable tool means the whole
// batch is unreliable.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q failed: %s: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// GitRefLister lists remote refs by invoking git ls-remote. The invocations
// match what downstream tooling expects: tags are version-sorted remotely
// with versionsort.suffix so pre-releases order before their release.
type GitRefLister struct{}

func (GitRefLister) Tags(ctx context.Context, repoURL string) ([]string, error) {
	args := []string{"-c", "versionsort.suffix=-", "ls-remote", "--tags", "--sort=v:refname", repoURL}
	out, err := runGit(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseTagRefs(string(out)), nil
}

func (GitRefLister) Branches(ctx context.Context, repoURL string) ([]Ref, error) {
	args := []string{"ls-remote", "--branches", repoURL}
	out, err := runGit(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseBranchRefs(string(out)), nil
}

func runGit(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		cmdErr := &CommandError{Command: "git " + strings.Join(args, " "), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, cmdErr
	}
	return out, nil
}

// parseTagRefs extracts short tag names from ls-remote output, preserving
// order. Peeled "^{}" entries collapse into the tag they dereference.
func parseTagRefs(output string) []string {
	var tags []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name := lastPathSegment(line)
		name = strings.TrimSuffix(name, "^{}")
		if len(tags) > 0 && tags[len(tags)-1] == name {
			continue
		}
		tags = append(tags, name)
	}
	return tags
}

// parseBranchRefs extracts branch names and head commits from ls-remote
// output.
func parseBranchRefs(output string) []Ref {
	var refs []Ref
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		refs = append(refs, Ref{Name: lastPathSegment(fields[1]), Commit: fields[0]})
	}
	return refs
}

func lastPathSegment(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
