package collate

import "github.com/cvsup/cvsup/model"

// MarkTails runs after every branch has been collated: for each output
// branch it walks from the tip down to the last Changeset still on that
// branch and marks it tail iff its Parent crosses into a different
// branch. This is the emitter's signal to stop walking one branch's chain
// and switch to the next. Safe to call more than once: it only ever sets
// the flag, never clears it, so a tail flag the Branch Collator already
// set while splicing is kept.
func MarkTails(heads []*model.BranchHead) {
	for _, h := range heads {
		if h.Tip.Phase != model.GitTip {
			continue
		}
		var last *model.Changeset
		for cs := h.Tip.Changeset; cs != nil && cs.Branch == h; cs = cs.Parent {
			last = cs
		}
		if last != nil && last.Parent != nil && last.Parent.Branch != h {
			last.Tail = true
		}
	}
}
