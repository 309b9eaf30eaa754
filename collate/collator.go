package collate

import (
	"math"
	"sort"

	"github.com/cvsup/cvsup/atom"
	"github.com/cvsup/cvsup/model"
	"github.com/cvsup/cvsup/revdir"
)

// Collator runs the Branch Collator over one output branch at a time. One
// Collator is shared across every branch in a run so its revdir.Builder's
// scratch buffer is reused rather than reallocated per branch.
type Collator struct {
	Policy  Policy
	Diag    *Diagnostics
	Names   *model.NameInterner
	Atoms   *atom.Table
	Builder *revdir.Builder

	// NewBranches accumulates the synthetic tag branches LocateTag
	// creates: a tag pointing at no matching revdir gets its own
	// one-commit branch. The driver appends these to the end of the
	// output head list after every real branch has been collated; no
	// re-sort follows, and none is needed, since each one's parent branch
	// is already in the list.
	NewBranches []*model.BranchHead
}

// NewCollator returns a ready-to-use Collator. names is used to intern the
// synthetic branch names LocateTag manufactures for unmatched tags.
func NewCollator(policy Policy, diag *Diagnostics, names *model.NameInterner, atoms *atom.Table, reg *revdir.Registry) *Collator {
	return &Collator{
		Policy:  policy,
		Diag:    diag,
		Names:   names,
		Atoms:   atoms,
		Builder: revdir.NewBuilder(reg),
	}
}

type branchCursor struct {
	mb  *model.MasterBranch
	rev *model.FileRevision // nil once exhausted
}

// CollateBranch implements the Branch Collator for one output branch,
// given every master-side branch that shares its name. It builds head's
// commit chain (setting head.Tip to the newest Changeset) and splices the
// chain's oldest commit onto the parent branch, or onto a synthesized root
// if no matching commit can be found anywhere.
func (c *Collator) CollateBranch(head *model.BranchHead, members []*model.MasterBranch, allBranches []*model.BranchHead) {
	cursors := make([]*branchCursor, 0, len(members))
	var tailedTouched []*model.FileRevision
	birth := int64(math.MaxInt64)

	for _, mb := range members {
		if mb.Tip == nil {
			continue
		}
		cc := &branchCursor{mb: mb, rev: mb.Tip}
		cursors = append(cursors, cc)
		if mb.Tip.Tail {
			mb.Tip.Tailed = true
			tailedTouched = append(tailedTouched, mb.Tip)
			continue
		}
		for r := mb.Tip; r != nil; r = r.Parent {
			if r.Timestamp < birth {
				birth = r.Timestamp
			}
			if r == mb.Root {
				break
			}
		}
	}

	if birth != math.MaxInt64 {
		for _, cc := range cursors {
			if cc.rev != nil && cc.rev.Tailed && cc.rev.Timestamp < birth && !cc.rev.Dead {
				c.Diag.Warn(TipOlderThanBirth, "%s: revision %s on branch %s is a continuation tip older than the branch's birth", cc.mb.Name, cc.rev.Rev, head.Name)
			}
		}
	}

	var chain []*model.Changeset // newest first, in creation order
	for {
		var leader *branchCursor
		for _, cc := range cursors {
			if cc.rev == nil || cc.rev.Tailed {
				continue
			}
			if leader == nil || cc.rev.Timestamp > leader.rev.Timestamp {
				leader = cc
			}
		}
		if leader == nil {
			break
		}

		cs := &model.Changeset{
			Date:     leader.rev.Timestamp,
			CommitID: leader.rev.CommitID,
			Log:      leader.rev.Log,
			Author:   leader.rev.Author,
			Branch:   head,
		}
		var snapRevs []*model.FileRevision
		for _, cc := range cursors {
			if cc.rev != nil && !cc.rev.Tailed && !cc.rev.Dead {
				snapRevs = append(snapRevs, cc.rev)
			}
		}
		cs.RevDir = c.buildSnapshot(snapRevs)
		chain = append(chain, cs)

		for _, cc := range cursors {
			if cc.rev == nil || cc.rev.Tailed {
				continue
			}
			matched := cc == leader || similar(cc.rev, leader.rev, c.Policy)
			if !matched {
				if cc.rev.Parent == nil && cc.rev.Dead {
					cc.rev = nil
				}
				continue
			}
			if dup := cc.rev.SetGitspace(cs); dup {
				c.Diag.Warn(DuplicateGitspaceAssignment, "revision %s on %s already had a changeset", cc.rev.Rev, cc.mb.Name)
			}
			parent := cc.rev.Parent
			if parent == nil {
				cc.rev = nil
				continue
			}
			if cc.rev == cc.mb.Root {
				if parent.Dead && parent.Parent == nil {
					cc.rev = nil
					continue
				}
				if birth < parent.Timestamp {
					cc.rev = nil
					continue
				}
				parent.Tailed = true
				tailedTouched = append(tailedTouched, parent)
				cc.rev = parent
				continue
			}
			cc.rev = parent
		}
	}

	for i := 0; i+1 < len(chain); i++ {
		chain[i].Parent = chain[i+1]
	}
	if len(chain) > 0 {
		head.Tip = model.GitChangesetTip(chain[0])
	}

	c.spliceBranchJoin(head, chain, cursors, allBranches)

	for _, fr := range tailedTouched {
		fr.Tailed = false
	}
}

// spliceBranchJoin implements the "branch join" half of the Branch
// Collator: once head's own commit chain is built, find where it roots
// into the rest of the DAG.
func (c *Collator) spliceBranchJoin(head *model.BranchHead, chain []*model.Changeset, cursors []*branchCursor, allBranches []*model.BranchHead) {
	if len(chain) == 0 {
		return
	}
	oldest := chain[len(chain)-1]

	var survivors []*branchCursor
	for _, cc := range cursors {
		if cc.rev != nil {
			survivors = append(survivors, cc)
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i].rev, survivors[j].rev
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		if a.Tailed != b.Tailed {
			return !a.Tailed
		}
		return a.Master.Index < b.Master.Index
	})

	var p *model.FileRevision
	for _, cc := range survivors {
		if !cc.rev.Dead {
			p = cc.rev
			break
		}
	}
	if p == nil {
		// Every surviving cursor is dead: this branch has no ancestry,
		// root branch with no parent commit.
		return
	}

	match := p.Gitspace
	if match != nil {
		oldest.Parent = match
		oldest.Tail = true
		if match.Date > oldest.Date {
			c.Diag.Warn(BranchPointLaterThanBranch, "branch %s roots at a changeset dated after its own oldest commit", head.Name)
		}
		return
	}

	if head.Parent != nil {
		if older := latestOlderOrEqual(head.Parent, p.Timestamp); older != nil {
			oldest.Parent = older
			oldest.Tail = true
			c.Diag.Warn(BranchPointMatchedByDate, "branch %s spliced onto %s by date, no exact revision match", head.Name, head.Parent.Name)
			return
		}
	}

	c.Diag.Warn(BranchPointNotFound, "branch %s: no changeset found for its root revision%s", head.Name, hintBranch(allBranches, p))

	var synthRevs []*model.FileRevision
	for _, cc := range survivors {
		if !cc.rev.Dead {
			synthRevs = append(synthRevs, cc.rev)
		}
	}
	synth := &model.Changeset{
		Date:   p.Timestamp,
		Author: p.Author,
		Log:    p.Log,
		Branch: head,
	}
	synth.RevDir = c.buildSnapshot(synthRevs)
	oldest.Parent = synth
}

func latestOlderOrEqual(branch *model.BranchHead, ts int64) *model.Changeset {
	if branch.Tip.Phase != model.GitTip {
		return nil
	}
	for cs := branch.Tip.Changeset; cs != nil && cs.Branch == branch; cs = cs.Parent {
		if cs.Date <= ts {
			return cs
		}
	}
	return nil
}

func hintBranch(allBranches []*model.BranchHead, p *model.FileRevision) string {
	for _, b := range allBranches {
		if b.Tip.Phase != model.GitTip {
			continue
		}
		for cs := b.Tip.Changeset; cs != nil && cs.Branch == b; cs = cs.Parent {
			if cs == p.Gitspace {
				return "; found instead on branch " + b.Name.String()
			}
		}
	}
	return ""
}

func (c *Collator) buildSnapshot(revs []*model.FileRevision) model.Snapshot {
	c.Builder.Init()
	c.Builder.Alloc(len(revs))
	for _, r := range revs {
		c.Builder.Add(r)
	}
	return c.Builder.End()
}

// similar decides whether two candidate leader revisions belong in the
// same changeset. When the policy trusts commit-ids, two revisions that
// both carry one match iff the ids are equal, and a revision with one
// never matches a revision without one. Otherwise (or when neither has a
// commit-id) revisions coalesce when they fall within the commit window
// and share author and log text.
func similar(a, b *model.FileRevision, p Policy) bool {
	if p.TrustCommitIDs {
		if a.CommitID != nil && b.CommitID != nil {
			return a.CommitID == b.CommitID
		}
		if (a.CommitID != nil) != (b.CommitID != nil) {
			return false
		}
	}
	diff := a.Timestamp - b.Timestamp
	if diff < 0 {
		diff = -diff
	}
	return diff < p.Window && a.Log == b.Log && a.Author == b.Author
}
