// Package revdir implements the revdir facility: a compact, shareable
// snapshot of the set of (file, revision) pairs present in a changeset,
// built with a scoped pack_alloc/pack_init/pack_add/pack_end sequence and
// walked with an ordered iterator that can fast-skip a whole directory
// when two iterators agree they're inside it.
//
// The precise on-disk packed encoding is out of scope here; this package
// gives the contract a concrete, in-memory implementation.
package revdir

import (
	"path"

	radix "github.com/armon/go-radix"

	"github.com/cvsup/cvsup/model"
)

// DirHandle caches the owning Master's directory for merge-join locality.
// Two entries share a DirHandle iff they live in the same directory;
// SameDir below is then a pointer comparison.
type DirHandle struct {
	Path string
}

// Registry assigns a stable DirHandle per directory path across a fixed
// set of Masters, keyed by a radix tree (grounded on the path-radix
// approach golang-dep's gps.deducerTrie wraps armon/go-radix with) so
// that directory-prefix queries used by Subtree are O(matching keys)
// rather than a full scan.
type Registry struct {
	tree     *radix.Tree
	byMaster []*DirHandle
}

// NewRegistry builds directory handles for every Master in ms. Masters
// must already have Index assigned (model.SortMasters).
func NewRegistry(ms []*model.Master) *Registry {
	r := &Registry{tree: radix.New()}
	for _, m := range ms {
		r.ensure(m)
	}
	return r
}

func (r *Registry) ensure(m *model.Master) *DirHandle {
	dir := path.Dir(m.Path)
	var h *DirHandle
	if v, ok := r.tree.Get(dir); ok {
		h = v.(*DirHandle)
	} else {
		h = &DirHandle{Path: dir}
		r.tree.Insert(dir, h)
	}
	if m.Index >= len(r.byMaster) {
		grown := make([]*DirHandle, m.Index+1)
		copy(grown, r.byMaster)
		r.byMaster = grown
	}
	r.byMaster[m.Index] = h
	return h
}

// For returns m's directory handle, computing and caching it on demand
// if m was added to the Masters set after this Registry was built.
func (r *Registry) For(m *model.Master) *DirHandle {
	if m.Index < len(r.byMaster) && r.byMaster[m.Index] != nil {
		return r.byMaster[m.Index]
	}
	return r.ensure(m)
}

// Subtree returns every directory handle whose path begins with dir.
// Nothing in this module calls it; the collator itself only ever needs
// pointer-equality SameDir checks.
func (r *Registry) Subtree(dir string) []*DirHandle {
	var out []*DirHandle
	r.tree.WalkPrefix(dir, func(k string, v interface{}) bool {
		out = append(out, v.(*DirHandle))
		return false
	})
	return out
}
