package engine

// VersionDiff records the old and new version of a source that changed
// during reconciliation. Transient: reported, never persisted.
type VersionDiff struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// SourceError associates an error with the source that produced it.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// UpdateResult holds the outcome of one reconciliation pass.
type UpdateResult struct {
	// Updated maps source names to their version change.
	Updated map[string]VersionDiff
	// HashChanged lists sources whose version stayed but whose hash moved.
	HashChanged []string
	// PinChanged lists sources whose pinned flag was toggled.
	PinChanged []string
	// UpToDate counts sources that needed no change.
	UpToDate int
	// Skipped counts pinned sources that were not examined.
	Skipped int
	// Errors lists per-source recoverable failures. The run continued past
	// them.
	Errors []*SourceError
	// Changed reports whether any persisted field changed; persistence is
	// skipped when false.
	Changed bool
}

// UpdatedCount returns the number of sources whose lockfile entry moved.
func (r *UpdateResult) UpdatedCount() int {
	return len(r.Updated) + len(r.HashChanged) + len(r.PinChanged)
}
