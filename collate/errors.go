package collate

import "fmt"

// Kind identifies an anomaly or a fatal condition the collation engine can
// report.
type Kind string

// Anomalies: collation continues, the affected output degrades locally.
const (
	TipOlderThanBirth           Kind = "tip_older_than_birth"
	BranchPointLaterThanBranch  Kind = "branch_point_later_than_branch"
	BranchPointMatchedByDate    Kind = "branch_point_matched_by_date"
	BranchPointNotFound         Kind = "branch_point_not_found"
	TagPointsAtNoGitspace       Kind = "tag_points_at_no_gitspace"
	LostTag                     Kind = "lost_tag"
	DuplicateGitspaceAssignment Kind = "duplicate_gitspace_assignment"
	ParentDateAfterChildDate    Kind = "parent_date_after_child_date"
)

// Fatal conditions: collation cannot produce a usable result.
const (
	BranchCycle               Kind = "branch_cycle"
	InternalInvariantViolated Kind = "internal_invariant_violated"
)

// FatalError aborts a run. Only BranchCycle and InternalInvariantViolated
// ever construct one; every other anomaly is reported through Diagnostics
// and collation proceeds.
type FatalError struct {
	Kind Kind
	Msg  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}
