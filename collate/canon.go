package collate

import "github.com/cvsup/cvsup/model"

// Canonicalize builds the emission order for a fully collated graph: each
// branch's commits, oldest first, with every branch appearing only after
// its parent branch (order must already be topologically sorted - TopoSort
// followed by LocateTag's synthetic branches appended at the end, whose
// parents always precede them). A second pass then nudges commits toward date order without
// ever crossing a parent link or a branch's own starting boundary - CVS
// timestamps are client clocks and routinely disagree slightly with
// submission order.
func Canonicalize(order []*model.BranchHead) []*model.Changeset {
	var history []*model.Changeset
	for _, h := range order {
		if h.Tip.Phase != model.GitTip {
			continue
		}
		var chain []*model.Changeset
		for cs := h.Tip.Changeset; cs != nil && cs.Branch == h; cs = cs.Parent {
			chain = append(chain, cs)
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		history = append(history, chain...)
	}
	datePolish(history)
	for i, cs := range history {
		cs.Serial = i
		cs.Mark = i + 1
	}
	return history
}

func datePolish(history []*model.Changeset) {
	branchStart := make(map[*model.BranchHead]int, len(history))
	for i, cs := range history {
		if _, ok := branchStart[cs.Branch]; !ok {
			branchStart[cs.Branch] = i
		}
	}
	for i := 1; i < len(history); i++ {
		cs := history[i]
		base := branchStart[cs.Branch]
		j := i
		for j > base {
			prev := history[j-1]
			if prev == cs.Parent {
				break
			}
			if prev.Date <= cs.Date {
				break
			}
			history[j-1], history[j] = history[j], history[j-1]
			j--
		}
	}
}

// CheckParentDates reports (without altering anything) every Changeset
// whose parent is dated after it, a condition date polish cannot fully
// eliminate when a file's own clock skew outruns its neighbours'.
func CheckParentDates(history []*model.Changeset, diag *Diagnostics) {
	for _, cs := range history {
		if cs.Parent != nil && cs.Parent.Date > cs.Date {
			diag.Warn(ParentDateAfterChildDate, "changeset at %d has parent dated %d", cs.Date, cs.Parent.Date)
		}
	}
}
