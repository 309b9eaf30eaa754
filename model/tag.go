package model

// Tag is a named set of file revisions, as produced by the external tag
// accumulator. Resolved is filled in by the Tag Locator; it is nil until
// then, and nil forever if the tag turns out to point at nothing but
// deletions.
type Tag struct {
	Name      string
	Revisions []*FileRevision
	Resolved  *Changeset
}
