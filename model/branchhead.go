package model

// TipPhase distinguishes which union member of Tip is live. Modeled
// explicitly rather than relying on a nil check, so that reading the
// wrong member is a caught bug, not a silent nil dereference.
type TipPhase int

const (
	// NoTip means this BranchHead has not yet been given a tip - true
	// only transiently, between the Branch Unifier creating the head and
	// the Branch Collator finishing that branch.
	NoTip TipPhase = iota
	// CvsTip means Tip.Rev is live; this is a master-side head, i.e. a
	// BranchHead as the Branch Unifier produces it before collation.
	CvsTip
	// GitTip means Tip.Changeset is live; this is an output-side head
	// after its branch has been collated.
	GitTip
)

// Tip is the tagged variant standing in for the reference
// implementation's pointer-punned tip field.
type Tip struct {
	Phase     TipPhase
	Rev       *FileRevision
	Changeset *Changeset
}

// CvsRevTip returns a Tip in the CvsTip phase.
func CvsRevTip(fr *FileRevision) Tip { return Tip{Phase: CvsTip, Rev: fr} }

// GitChangesetTip returns a Tip in the GitTip phase.
func GitChangesetTip(cs *Changeset) Tip { return Tip{Phase: GitTip, Changeset: cs} }

// BranchHead is either a per-master branch head (before unification) or
// an output branch head (after). The two lifecycles share this one
// shape; which fields are meaningful depends on which list (master-side
// or output-side) the value currently lives in.
type BranchHead struct {
	Name   *RevisionName
	Tip    Tip
	Parent *BranchHead // nil for the root (trunk with no ancestor)
	Depth  int         // 1 for a head with no parent; strictly > parent's

	// Degree is the dotted-length of the trunk revision number that
	// introduced this branch; the Branch Unifier keeps the maximum any
	// master reported. Nothing downstream reads it: parent resolution and
	// the topological sort decide by Depth and name only.
	Degree int

	// Tail is not set or read by any component in this module; the
	// branch-join step and the Tail Marker record a fork point on
	// Changeset.Tail instead.
	Tail bool
}

// MasterBranches groups per-master branches by interned name, so
// identical names across masters are recognized as the same output
// branch. The Branch Unifier does not use it: collate.Unify and
// collate.Members read each Master's Branches directly.
type MasterBranches struct {
	ByName map[*RevisionName][]*MasterBranch
}

// NewMasterBranches returns an empty MasterBranches ready for Add.
func NewMasterBranches() *MasterBranches {
	return &MasterBranches{ByName: make(map[*RevisionName][]*MasterBranch)}
}

// Add records one master's view of branch mb.Name.
func (m *MasterBranches) Add(mb *MasterBranch) {
	m.ByName[mb.Name] = append(m.ByName[mb.Name], mb)
}
