package collate

import (
	"github.com/sirupsen/logrus"

	"github.com/cvsup/cvsup/atom"
	"github.com/cvsup/cvsup/model"
	"github.com/cvsup/cvsup/revdir"
)

// Engine owns the interners and the diagnostics sink shared across an
// entire collation run; it is the single entry point masterparse's
// caller (cmd/cvsup) uses once every Master and Tag has been read.
type Engine struct {
	Policy    Policy
	Diag      *Diagnostics
	Names     *model.NameInterner
	Revisions *model.RevisionInterner
	Atoms     *atom.Table
	Registry  *revdir.Registry
}

// NewEngine returns an Engine with fresh interners, logging anomalies
// through logger.
func NewEngine(policy Policy, logger *logrus.Logger) *Engine {
	return &Engine{
		Policy:    policy,
		Diag:      NewDiagnostics(logger),
		Names:     model.NewNameInterner(),
		Revisions: model.NewRevisionInterner(),
		Atoms:     atom.NewTable(),
	}
}

// Result is everything downstream emission needs: a flat, emission-ordered
// changeset history plus the resolved tags.
type Result struct {
	History []*model.Changeset
	Branches []*model.BranchHead
	Tags     []*model.Tag
	Diag     *Diagnostics
}

// Run executes the full collation pipeline - unify, topologically sort,
// resolve parents, collate each branch, locate tags, mark tails,
// canonicalize - over masters and tags. masters is sorted in place by
// deep path as a side effect (model.SortMasters).
func (e *Engine) Run(masters []*model.Master, tags []*model.Tag) (*Result, error) {
	model.SortMasters(masters)
	e.Registry = revdir.NewRegistry(masters)

	heads := Unify(masters)
	edges := CollectParentEdges(masters)
	order, err := TopoSort(heads, edges)
	if err != nil {
		return nil, err
	}
	ResolveParents(order, heads, edges)

	members := Members(masters)
	col := NewCollator(e.Policy, e.Diag, e.Names, e.Atoms, e.Registry)
	for _, h := range order {
		col.CollateBranch(h, members[h.Name], order)
	}

	for _, t := range tags {
		col.LocateTag(t, e.Revisions, order)
	}
	order = append(order, col.NewBranches...)

	MarkTails(order)
	history := Canonicalize(order)
	CheckParentDates(history, e.Diag)

	return &Result{History: history, Branches: order, Tags: tags, Diag: e.Diag}, nil
}
