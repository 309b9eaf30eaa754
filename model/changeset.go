package model

import "github.com/cvsup/cvsup/atom"

// Snapshot is the interface a packed revdir.Dir satisfies. It lives here,
// not in package revdir, so that model has no dependency on revdir - only
// revdir depends on model (Master, FileRevision), never the reverse.
type Snapshot interface {
	// Each calls fn once per (Master, FileRevision) pair it holds, in
	// the same deep-path order as the global Masters list.
	Each(fn func(m *Master, fr *FileRevision))
	// Len reports how many files the snapshot holds.
	Len() int
}

// Changeset is a synthesized whole-tree commit - a "git-commit" in the
// reference implementation's terms.
type Changeset struct {
	Parent   *Changeset
	Date     int64 // equals the date of this changeset's leader FileRevision
	CommitID *atom.String
	Log      *atom.String
	Author   *atom.String

	RevDir Snapshot

	// Serial is this Changeset's zero-based position in the canonical
	// emission order across all branches, assigned by the Canonicalizer
	// (Mark is always Serial+1). Zero until assigned.
	Serial int

	// Mark is the fast-import mark number allocated by the Canonicalizer
	// in canonical emission order. Zero until assigned.
	Mark int

	// Tail is set by the Tail Marker: true iff this is the last commit on
	// its branch and Parent crosses into another branch.
	Tail bool

	// Dead is not set by any component in this module; every Changeset
	// the collator or Tag Locator builds leaves it false.
	Dead bool

	// Refcount is not maintained by any component in this module; it
	// stays zero.
	Refcount int

	// Branch is the output branch this Changeset belongs to. Set at
	// construction and never changed.
	Branch *BranchHead
}

// IsAncestorOf walks Parent links from c looking for other. Used only by
// tests and diagnostics; the collator itself never needs general ancestry
// queries.
func (c *Changeset) IsAncestorOf(other *Changeset) bool {
	for x := other; x != nil; x = x.Parent {
		if x == c {
			return true
		}
	}
	return false
}
