package model

import "github.com/cvsup/cvsup/atom"

// FileRevision is one immutable revision of one file - a "cvs-commit" in
// the reference implementation's terms. Everything except the scratch
// fields documented below is fixed at construction time.
type FileRevision struct {
	Master *Master
	Rev    *RevisionNumber

	Timestamp int64 // seconds since the Unix epoch
	Author    *atom.String
	Log       *atom.String
	CommitID  *atom.String // nil if this master has no commit-id metadata

	Parent *FileRevision // branch-local parent, nil at branch root
	Dead   bool          // this revision is a deletion

	// Tail is set by whatever assembles a Master's branches (masterparse):
	// true when this revision is a branch's Tip but no commit was ever
	// made on that branch for this file, i.e. the branch's tip and its
	// fork point coincide. Read by the Branch Collator, which must not
	// count such a cursor as a live branch-local revision.
	Tail bool

	// Tailed is scratch state used only during one branch's collation:
	// true while this revision has been walked past its branch join and
	// is waiting to be matched on the parent branch. Cleared before the
	// Branch Collator returns.
	Tailed bool

	// Gitspace is the back-link to the first synthesized Changeset that
	// contains this revision. Invariant: once non-nil, never changed.
	Gitspace *Changeset

	// Emitted is not set or read by any component in this module; the
	// emitter deduplicates blobs through BlobStore's own mark table.
	Emitted bool
}

// SetGitspace sets the back-link exactly once. A second call with a
// different Changeset is a bug in the caller; it is reported as
// DuplicateGitspaceAssignment rather than silently allowed, but the
// original link is kept.
func (fr *FileRevision) SetGitspace(cs *Changeset) (dup bool) {
	if fr.Gitspace != nil {
		return fr.Gitspace != cs
	}
	fr.Gitspace = cs
	return false
}
