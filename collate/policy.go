package collate

// Policy holds the tunables the Branch Collator's similarity relation and
// fast-import emitter need: the commit coalescing window and whether
// commit-id metadata (when masters carry it) takes precedence over the
// time/author/log heuristic.
type Policy struct {
	// Window is the maximum time difference, in seconds, between two file
	// revisions for them to be considered part of the same changeset when
	// commit-ids don't settle the question.
	Window int64

	// TrustCommitIDs, when true, makes a commit-id match or mismatch
	// decisive whenever both candidate revisions carry one.
	TrustCommitIDs bool
}

// DefaultPolicy mirrors cvs-fast-export's traditional default commit
// window of 300 seconds.
func DefaultPolicy() Policy {
	return Policy{Window: 300, TrustCommitIDs: true}
}
