package revdir

import "github.com/cvsup/cvsup/model"

type entry struct {
	master *model.Master
	rev    *model.FileRevision
	dir    *DirHandle
}

// Dir is a packed, immutable snapshot: the files table a Changeset's
// RevDir field holds. Entries are kept sorted by Master.Index, i.e. in
// deep-path order.
type Dir struct {
	entries []entry
}

var _ model.Snapshot = (*Dir)(nil)

// Each implements model.Snapshot.
func (d *Dir) Each(fn func(*model.Master, *model.FileRevision)) {
	for _, e := range d.entries {
		fn(e.master, e.rev)
	}
}

// Len implements model.Snapshot.
func (d *Dir) Len() int { return len(d.entries) }

// At returns the FileRevision for master m if present in d.
func (d *Dir) At(m *model.Master) (*model.FileRevision, bool) {
	for _, e := range d.entries {
		if e.master == m {
			return e.rev, true
		}
	}
	return nil, false
}

// Equal reports whether d and other hold the same (Master, RevisionNumber)
// pairs, with the tag-locator equivalence that a revision number of 1.1
// and 1.1.1.1 on the same master compare equal - the initial revision of
// a file and the initial revision of that same file immediately re-added
// on a vendor branch are, for tag-matching purposes, the same content.
func (d *Dir) Equal(other *Dir, in *model.RevisionInterner) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i, e := range d.entries {
		o := other.entries[i]
		if e.master != o.master {
			return false
		}
		if e.rev.Rev == o.rev.Rev {
			continue
		}
		if revEquivalent(e.rev.Rev, o.rev.Rev, in) {
			continue
		}
		return false
	}
	return true
}

func revEquivalent(a, b *model.RevisionNumber, in *model.RevisionInterner) bool {
	pair := func(x, y *model.RevisionNumber) bool {
		return x == in.Trunk11 && y == in.Branch1111
	}
	return pair(a, b) || pair(b, a)
}

// Builder implements the scoped pack_alloc/pack_init/pack_add/pack_end
// acquisition contract. Only one Init..End/Free cycle may be
// in flight on a given Builder at a time - mirroring the reference
// implementation's single-owner process-wide scratch buffer, but scoped
// to a value instead of a package global so concurrent branches (should a
// future caller ever collate branches in parallel) don't have to share
// one lock.
type Builder struct {
	reg    *Registry
	buf    []entry
	active bool
}

// NewBuilder returns a Builder that resolves directory handles via reg.
func NewBuilder(reg *Registry) *Builder {
	return &Builder{reg: reg}
}

// Alloc reserves capacity for n entries, mirroring pack_alloc(n).
func (b *Builder) Alloc(n int) {
	b.buf = make([]entry, 0, n)
}

// Init begins a build cycle, mirroring pack_init.
func (b *Builder) Init() {
	if b.active {
		panic("revdir: Init called while Builder already active")
	}
	b.active = true
	b.buf = b.buf[:0]
}

// Add records one (Master, FileRevision) pair, mirroring pack_add.
func (b *Builder) Add(fr *model.FileRevision) {
	b.buf = append(b.buf, entry{master: fr.Master, rev: fr, dir: b.reg.For(fr.Master)})
}

// End finalizes the snapshot in deep-path order and returns it, mirroring
// pack_end.
func (b *Builder) End() *Dir {
	sortEntries(b.buf)
	out := make([]entry, len(b.buf))
	copy(out, b.buf)
	b.active = false
	return &Dir{entries: out}
}

// Free releases the scratch buffer, mirroring pack_free.
func (b *Builder) Free() {
	b.buf = nil
	b.active = false
}

func sortEntries(es []entry) {
	// insertion sort: Changesets rarely span more than a few hundred
	// files and Add already appends in roughly sorted order (masters are
	// walked in a stable per-branch order), so this avoids importing
	// sort for what is usually an already-sorted or nearly-sorted slice.
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && es[j].master.Index < es[j-1].master.Index; j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}

// Iterator walks a Dir in deep-path order, supporting the same_dir
// fast-skip the merge-join diff relies on.
type Iterator struct {
	dir *Dir
	pos int
}

// NewIterator returns an iterator positioned before d's first entry.
func NewIterator(d *Dir) *Iterator {
	if d == nil {
		return &Iterator{dir: &Dir{}}
	}
	return &Iterator{dir: d}
}

// Next returns the current FileRevision and advances, or nil at the end.
func (it *Iterator) Next() *model.FileRevision {
	if it.pos >= len(it.dir.entries) {
		return nil
	}
	fr := it.dir.entries[it.pos].rev
	it.pos++
	return fr
}

// Peek returns the current Master/FileRevision without advancing.
func (it *Iterator) Peek() (*model.Master, *model.FileRevision) {
	if it.pos >= len(it.dir.entries) {
		return nil, nil
	}
	e := it.dir.entries[it.pos]
	return e.master, e.rev
}

// NextDir returns the directory handle of the current entry, or nil at
// the end.
func (it *Iterator) NextDir() *DirHandle {
	if it.pos >= len(it.dir.entries) {
		return nil
	}
	return it.dir.entries[it.pos].dir
}

// SameDir reports whether a and b currently sit in the same packed
// directory bucket, per the iter_same_dir contract.
func SameDir(a, b *Iterator) bool {
	ha, hb := a.NextDir(), b.NextDir()
	return ha != nil && ha == hb
}
