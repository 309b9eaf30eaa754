package collate

import (
	"fmt"
	"sort"

	"github.com/cvsup/cvsup/model"
)

// LocateTag implements the Tag Locator. It finds (or, failing that,
// synthesizes) the Changeset a CVS tag refers to: the newest non-deleted
// revision in the tag's file set gives the starting point, then its own
// Changeset, the rest of its branch, and finally every other branch are
// searched for one whose revdir exactly matches the tag's full file set.
// A newly synthesized branch (one-commit, parented on the starting
// revision's Changeset) is appended to c.NewBranches for the driver to
// fold into the output head list.
func (c *Collator) LocateTag(t *model.Tag, in *model.RevisionInterner, allBranches []*model.BranchHead) {
	var newest *model.FileRevision
	for _, v := range t.Revisions {
		if v.Dead {
			continue
		}
		if newest == nil || v.Timestamp > newest.Timestamp {
			newest = v
		}
	}
	if newest == nil {
		c.Diag.Warn(LostTag, "tag %s: every tagged revision is a deletion", t.Name)
		return
	}
	if newest.Gitspace == nil {
		c.Diag.Warn(TagPointsAtNoGitspace, "tag %s: newest tagged revision %s has no changeset", t.Name, newest.Rev)
		return
	}

	want := make([]*model.FileRevision, len(t.Revisions))
	copy(want, t.Revisions)
	sort.Slice(want, func(i, j int) bool {
		return model.DeepPathLess(want[i].Master.Path, want[j].Master.Path)
	})

	if snapshotMatchesTag(newest.Gitspace.RevDir, want, in) {
		t.Resolved = newest.Gitspace
		return
	}

	for _, b := range allBranches {
		if b.Tip.Phase != model.GitTip {
			continue
		}
		for cs := b.Tip.Changeset; cs != nil && cs.Branch == b; cs = cs.Parent {
			if cs.Date < newest.Gitspace.Date || cs == newest.Gitspace {
				break
			}
			if snapshotMatchesTag(cs.RevDir, want, in) {
				t.Resolved = cs
				return
			}
		}
	}

	var revs []*model.FileRevision
	for _, r := range want {
		if !r.Dead {
			revs = append(revs, r)
		}
	}
	synth := &model.Changeset{
		Date:   newest.Timestamp,
		Parent: newest.Gitspace,
		Author: c.Atoms.Intern("cvsup <cvsup@localhost>"),
		Log:    c.Atoms.Intern(fmt.Sprintf("Synthetic commit for incomplete tag %s", t.Name)),
	}
	synth.RevDir = c.buildSnapshot(revs)

	nb := &model.BranchHead{
		Name:   c.Names.Intern(t.Name),
		Parent: newest.Gitspace.Branch,
		Depth:  newest.Gitspace.Branch.Depth + 1,
	}
	synth.Branch = nb
	nb.Tip = model.GitChangesetTip(synth)

	c.NewBranches = append(c.NewBranches, nb)
	t.Resolved = synth
}

// snapshotMatchesTag compares a Changeset's revdir against a tag's full,
// deep-path-sorted file set, applying the 1.1/1.1.1.1 equivalence rule per
// file.
func snapshotMatchesTag(s model.Snapshot, want []*model.FileRevision, in *model.RevisionInterner) bool {
	if s == nil || s.Len() != len(want) {
		return false
	}
	i := 0
	ok := true
	s.Each(func(m *model.Master, fr *model.FileRevision) {
		if !ok {
			return
		}
		if i >= len(want) {
			ok = false
			return
		}
		w := want[i]
		if fr.Master != w.Master || !in.Equivalent(fr.Rev, w.Rev) {
			ok = false
			return
		}
		i++
	})
	return ok
}
