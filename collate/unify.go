package collate

import "github.com/cvsup/cvsup/model"

// ParentEdges maps an output branch name to every parent name any master
// recorded for it. A name can appear more than once (one master's vote per
// occurrence); the Parent Resolver picks among them.
type ParentEdges map[*model.RevisionName][]*model.RevisionName

// Unify implements the Branch Unifier: one output BranchHead per distinct
// branch name, keyed by interned name, holding the maximum degree any
// master observed for that name. Order of the returned map's keys is
// irrelevant; TopoSort below imposes the order that matters.
func Unify(masters []*model.Master) map[*model.RevisionName]*model.BranchHead {
	out := make(map[*model.RevisionName]*model.BranchHead)
	for _, m := range masters {
		for _, mb := range m.Branches {
			h, ok := out[mb.Name]
			if !ok {
				out[mb.Name] = &model.BranchHead{Name: mb.Name, Degree: mb.Degree}
				continue
			}
			if mb.Degree > h.Degree {
				h.Degree = mb.Degree
			}
		}
	}
	return out
}

// CollectParentEdges gathers each master's opinion of its branches'
// parents, for use by TopoSort and ResolveParents.
func CollectParentEdges(masters []*model.Master) ParentEdges {
	edges := make(ParentEdges)
	for _, m := range masters {
		for _, mb := range m.Branches {
			if mb.ParentName != nil {
				edges[mb.Name] = append(edges[mb.Name], mb.ParentName)
			}
		}
	}
	return edges
}

// Members groups every master's branch records by output branch name, so
// the collator can process one output branch at a time.
func Members(masters []*model.Master) map[*model.RevisionName][]*model.MasterBranch {
	out := make(map[*model.RevisionName][]*model.MasterBranch)
	for _, m := range masters {
		for _, mb := range m.Branches {
			out[mb.Name] = append(out[mb.Name], mb)
		}
	}
	return out
}
