package collate

import (
	"sort"

	"github.com/cvsup/cvsup/model"
)

// TopoSort orders heads so that every branch appears after every branch
// any master named as its parent, breaking ties by name text for
// reproducible output. Returns a BranchCycle FatalError if the parent
// edges are not acyclic.
func TopoSort(heads map[*model.RevisionName]*model.BranchHead, edges ParentEdges) ([]*model.BranchHead, error) {
	names := make([]*model.RevisionName, 0, len(heads))
	for n := range heads {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	placed := make(map[*model.RevisionName]bool, len(heads))
	remaining := len(names)
	order := make([]*model.BranchHead, 0, len(heads))

	for remaining > 0 {
		progressed := false
		for _, name := range names {
			if placed[name] {
				continue
			}
			ready := true
			for _, p := range edges[name] {
				if _, known := heads[p]; known && !placed[p] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			order = append(order, heads[name])
			placed[name] = true
			remaining--
			progressed = true
		}
		if !progressed {
			return nil, &FatalError{Kind: BranchCycle, Msg: "branch parent edges form a cycle"}
		}
	}
	return order, nil
}
