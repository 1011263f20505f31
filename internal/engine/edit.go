package engine

import (
	"fmt"
	"net/url"

	"github.com/bianoble/kunai/internal/lock"
)

// EditKey names a source field that Edit may change.
type EditKey string

// The editable fields. Keys match the CLI spelling.
const (
	EditPinned              EditKey = "pinned"
	EditArtifactURLTemplate EditKey = "artifact-url-template"
	EditGitURL              EditKey = "git-url"
	EditTagPrefix           EditKey = "tag-prefix"
	EditUnpack              EditKey = "unpack"
)

// EditKeys lists every editable key, for help text.
func EditKeys() []EditKey {
	return []EditKey{EditPinned, EditArtifactURLTemplate, EditGitURL, EditTagPrefix, EditUnpack}
}

// Edit changes one field of one source. It returns hashAffecting=true when
// the edited field can invalidate the stored hash, so the caller can warn
// the operator to refetch.
func Edit(sources lock.SourceMap, name string, key EditKey, value string) (hashAffecting bool, err error) {
	src, ok := sources[name]
	if !ok {
		return false, &UnknownSourcesError{Names: []string{name}}
	}

	switch key {
	case EditPinned:
		b, err := parseBool(key, value)
		if err != nil {
			return false, err
		}
		src.Pinned = b
		return false, nil

	case EditUnpack:
		b, err := parseBool(key, value)
		if err != nil {
			return false, err
		}
		src.Unpack = b
		return false, nil

	case EditArtifactURLTemplate:
		if err := validateURL(key, value); err != nil {
			return false, err
		}
		src.ArtifactURLTemplate = value
		return true, nil

	case EditGitURL:
		if src.UpdateScheme.IsStatic() {
			return false, fmt.Errorf("the %s scheme has no repository URL", src.UpdateScheme.Type)
		}
		if value == "" {
			src.UpdateScheme.RepoURL = ""
			return true, nil
		}
		if err := validateURL(key, value); err != nil {
			return false, err
		}
		src.UpdateScheme.RepoURL = value
		return true, nil

	case EditTagPrefix:
		if src.UpdateScheme.Type != lock.SchemeGitTags {
			return false, fmt.Errorf("the %s scheme has no tag prefix", src.UpdateScheme.Type)
		}
		src.UpdateScheme.TagPrefix = value
		return true, nil
	}

	return false, fmt.Errorf("unknown key %q (expected one of %v)", key, EditKeys())
}

func parseBool(key EditKey, value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q for key %s (must be `true` or `false`)", value, key)
}

func validateURL(key EditKey, value string) error {
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid value %q for key %s (must be a valid URL)", value, key)
	}
	return nil
}
