package engine

import (
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/logging"
)

// Delete removes the named sources from the map. The operation is
// all-or-nothing: if any requested name is absent, nothing is removed and
// the error lists every missing name.
func Delete(sources lock.SourceMap, names []string) error {
	var missing []string
	for _, name := range names {
		if _, ok := sources[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &UnknownSourcesError{Names: missing}
	}

	for _, name := range names {
		delete(sources, name)
		logging.Infof("source %q has been removed", name)
	}
	return nil
}
