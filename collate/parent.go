package collate

import "github.com/cvsup/cvsup/model"

// ResolveParents fills in each head's Parent and Depth. order must already
// be topologically sorted (TopoSort's output), so a single forward pass
// gives the same result a memoized recursive descent would: every parent
// is resolved, with its own Depth already final, before any of its
// children are visited. Where masters disagree about a branch's parent,
// the candidate with the greater resolved Depth wins - the deepest, and so
// most specific, ancestry any master reported.
func ResolveParents(order []*model.BranchHead, byName map[*model.RevisionName]*model.BranchHead, edges ParentEdges) {
	for _, h := range order {
		var best *model.BranchHead
		for _, pname := range edges[h.Name] {
			ph, ok := byName[pname]
			if !ok || ph == h {
				continue
			}
			if best == nil || ph.Depth > best.Depth {
				best = ph
			}
		}
		h.Parent = best
		if best != nil {
			h.Depth = best.Depth + 1
		} else {
			h.Depth = 1
		}
	}
}
