package lock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Update scheme discriminants as stored in the lockfile.
const (
	SchemeGitTags   = "git-tags"
	SchemeGitBranch = "git-branch"
	SchemeStatic    = "static"
)

// DefaultShortHashLength is the number of hex characters taken from a branch
// head commit when no explicit length is configured.
const DefaultShortHashLength = 6

// UpdateScheme describes how the next version of a source is discovered.
// Exactly one variant is active, selected by Type; fields that do not belong
// to the active variant are zero and never serialized.
type UpdateScheme struct {
	Type            string
	RepoURL         string // git-tags (optional override), git-branch
	TagPrefix       string // git-tags only
	Branch          string // git-branch only
	ShortHashLength int    // git-branch only
}

// GitTagsScheme returns a git-tags scheme. Both arguments may be empty.
func GitTagsScheme(repoURL, tagPrefix string) UpdateScheme {
	return UpdateScheme{Type: SchemeGitTags, RepoURL: repoURL, TagPrefix: tagPrefix}
}

// GitBranchScheme returns a git-branch scheme. A shortHashLength of zero
// selects DefaultShortHashLength.
func GitBranchScheme(repoURL, branch string, shortHashLength int) UpdateScheme {
	if shortHashLength == 0 {
		shortHashLength = DefaultShortHashLength
	}
	return UpdateScheme{Type: SchemeGitBranch, RepoURL: repoURL, Branch: branch, ShortHashLength: shortHashLength}
}

// StaticScheme returns the static scheme.
func StaticScheme() UpdateScheme {
	return UpdateScheme{Type: SchemeStatic}
}

// IsStatic reports whether the scheme performs no version discovery.
func (s UpdateScheme) IsStatic() bool {
	return s.Type == SchemeStatic
}

type gitTagsJSON struct {
	Type      string  `json:"type"`
	RepoURL   *string `json:"repoUrl"`
	TagPrefix *string `json:"tagPrefix"`
}

type gitBranchJSON struct {
	Type            string  `json:"type"`
	RepoURL         *string `json:"repoUrl"`
	Branch          string  `json:"branch"`
	ShortHashLength int     `json:"shortHashLength"`
}

type staticJSON struct {
	Type string `json:"type"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromOptString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// MarshalJSON serializes the scheme as a tagged union, emitting only the
// fields of the active variant.
func (s UpdateScheme) MarshalJSON() ([]byte, error) {
	switch s.Type {
	case SchemeGitTags:
		return json.Marshal(gitTagsJSON{
			Type:      s.Type,
			RepoURL:   optString(s.RepoURL),
			TagPrefix: optString(s.TagPrefix),
		})
	case SchemeGitBranch:
		return json.Marshal(gitBranchJSON{
			Type:            s.Type,
			RepoURL:         optString(s.RepoURL),
			Branch:          s.Branch,
			ShortHashLength: s.ShortHashLength,
		})
	case SchemeStatic:
		return json.Marshal(staticJSON{Type: s.Type})
	}
	return nil, fmt.Errorf("unknown update scheme type %q", s.Type)
}

// UnmarshalJSON parses the tagged union, rejecting unknown discriminants and
// fields that do not belong to the declared variant.
func (s *UpdateScheme) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	switch head.Type {
	case SchemeGitTags:
		var v gitTagsJSON
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("update scheme %q: %w", head.Type, err)
		}
		*s = UpdateScheme{Type: head.Type, RepoURL: fromOptString(v.RepoURL), TagPrefix: fromOptString(v.TagPrefix)}
	case SchemeGitBranch:
		var v gitBranchJSON
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("update scheme %q: %w", head.Type, err)
		}
		if v.Branch == "" {
			return fmt.Errorf("update scheme %q: 'branch' is required", head.Type)
		}
		if v.ShortHashLength < 1 {
			return fmt.Errorf("update scheme %q: 'shortHashLength' must be at least 1", head.Type)
		}
		*s = UpdateScheme{Type: head.Type, RepoURL: fromOptString(v.RepoURL), Branch: v.Branch, ShortHashLength: v.ShortHashLength}
	case SchemeStatic:
		var v staticJSON
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("update scheme %q: %w", head.Type, err)
		}
		*s = UpdateScheme{Type: head.Type}
	case "":
		return fmt.Errorf("update scheme is missing 'type'")
	default:
		return fmt.Errorf("unknown update scheme type %q", head.Type)
	}
	return nil
}

// Source is one tracked external artifact entry in the lockfile.
//
// Version and Hash are updated together: whenever Version changes, Hash is
// replaced in the same step. LatestCheckedVersion records the most recent
// candidate observed by a resolution pass, even when that candidate's
// artifact could not be fetched.
type Source struct {
	Version              string       `json:"version"`
	Hash                 string       `json:"hash"`
	LatestCheckedVersion string       `json:"latestCheckedVersion"`
	ArtifactURLTemplate  string       `json:"artifactUrlTemplate"`
	Unpack               bool         `json:"unpack"`
	Pinned               bool         `json:"pinned"`
	UpdateScheme         UpdateScheme `json:"updateScheme"`
}

// NewSource creates a source at the given version with an empty hash.
// LatestCheckedVersion starts at the initial version.
func NewSource(version, artifactURLTemplate string, scheme UpdateScheme) *Source {
	return &Source{
		Version:              version,
		LatestCheckedVersion: version,
		ArtifactURLTemplate:  artifactURLTemplate,
		UpdateScheme:         scheme,
	}
}

// WithPinned returns the source with its pinned flag set.
func (s *Source) WithPinned(pinned bool) *Source {
	s.Pinned = pinned
	return s
}

// WithUnpack returns the source with its unpack flag set.
func (s *Source) WithUnpack(unpack bool) *Source {
	s.Unpack = unpack
	return s
}

// BuildFullURLError reports an artifact URL template that expanded to an
// invalid URL.
type BuildFullURLError struct {
	FullURL string
	Err     error
}

func (e *BuildFullURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("constructed full URL %q is invalid: %s", e.FullURL, e.Err)
	}
	return fmt.Sprintf("constructed full URL %q is invalid", e.FullURL)
}

func (e *BuildFullURLError) Unwrap() error {
	return e.Err
}

// FullURL expands the artifact URL template for the given version. For the
// git-branch scheme the {branch} placeholder is substituted as well.
func (s *Source) FullURL(version string) (*url.URL, error) {
	expanded := strings.ReplaceAll(s.ArtifactURLTemplate, "{version}", version)
	if s.UpdateScheme.Type == SchemeGitBranch {
		expanded = strings.ReplaceAll(expanded, "{branch}", s.UpdateScheme.Branch)
	}

	u, err := url.Parse(expanded)
	if err != nil {
		return nil, &BuildFullURLError{FullURL: expanded, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &BuildFullURLError{FullURL: expanded, Err: fmt.Errorf("not an absolute URL")}
	}
	return u, nil
}

// SourceMap maps unique source names to their entries. It is the in-memory
// form of the whole lockfile document.
type SourceMap map[string]*Source

// SortedNames returns all source names in lexicographic order. Reconciliation
// and reporting iterate in this order so runs are deterministic.
func (m SourceMap) SortedNames() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
