package collate_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/cvsup/cvsup/atom"
	"github.com/cvsup/cvsup/collate"
	"github.com/cvsup/cvsup/fastimport"
	"github.com/cvsup/cvsup/masterparse"
	"github.com/cvsup/cvsup/model"
)

func parseMaster(t *testing.T, p *masterparse.FixtureParser, path, body string) *model.Master {
	m, err := p.Parse(masterparse.Source{Path: path, Body: body})
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return m
}

func newParser() *masterparse.FixtureParser {
	return &masterparse.FixtureParser{
		Revisions: model.NewRevisionInterner(),
		Names:     model.NewNameInterner(),
		Atoms:     atom.NewTable(),
	}
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = nil
	l.Level = logrus.PanicLevel
	return l
}

// TestRunOrdersTrunkCommitsBySerial checks that a single master's trunk
// history comes out as a two-commit chain, oldest first, with marks
// assigned in that same order.
func TestRunOrdersTrunkCommitsBySerial(t *testing.T) {
	p := newParser()
	m := parseMaster(t, p, "file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
rev 1.2 ts 1000100 author bob log "second"
branch MAIN tip 1.2 root 1.1
`)
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{m}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Len(t, result.History, 2)
	assert.Equal(t, 1, result.History[0].Mark)
	assert.Equal(t, 2, result.History[1].Mark)
	assert.True(t, result.History[0].IsAncestorOf(result.History[1]))
	assert.Equal(t, result.History[0], result.History[1].Parent)
	assert.False(t, result.History[1].Tail)
}

// TestRunUnifiesBranchAcrossMasters checks that two masters naming the
// same branch are collated onto one BranchHead whose commits interleave
// by date rather than being kept as two separate branches.
func TestRunUnifiesBranchAcrossMasters(t *testing.T) {
	p := newParser()
	m1 := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "a initial"
branch MAIN tip 1.1
`)
	m2 := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 1000050 author alice log "b initial"
branch MAIN tip 1.1
`)
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{m1, m2}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	branches := make(map[string]bool)
	for _, cs := range result.History {
		branches[cs.Branch.Name.String()] = true
	}
	assert.Equal(t, map[string]bool{"MAIN": true}, branches)
}

// TestRunResolvesTag checks that a tag naming a file revision already
// reached by collation resolves to the Changeset that revision belongs
// to, rather than synthesizing a new branch for it.
func TestRunResolvesTag(t *testing.T) {
	p := newParser()
	m := parseMaster(t, p, "file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
branch MAIN tip 1.1
`)
	tag := &model.Tag{Name: "REL1", Revisions: []*model.FileRevision{m.Branches[0].Tip}}
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{m}, []*model.Tag{tag})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.NotNil(t, tag.Resolved)
	assert.Contains(t, result.History, tag.Resolved)
}

// TestRunFlagsParentDateInversion checks that a child commit dated
// before its parent is reported as an anomaly rather than silently
// accepted or treated as fatal.
func TestRunFlagsParentDateInversion(t *testing.T) {
	p := newParser()
	m := parseMaster(t, p, "file1.txt", `mode 0100644
rev 1.1 ts 2000000 author alice log "initial"
rev 1.2 ts 1000000 author alice log "out of order"
branch MAIN tip 1.2 root 1.1
`)
	diag := collate.NewDiagnostics(silentLogger())
	engine := &collate.Engine{
		Policy:    collate.DefaultPolicy(),
		Diag:      diag,
		Names:     model.NewNameInterner(),
		Revisions: model.NewRevisionInterner(),
		Atoms:     atom.NewTable(),
	}
	_, err := engine.Run([]*model.Master{m}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Equal(t, 1, diag.Count(collate.ParentDateAfterChildDate))
}

// TestRunCoalescesFilesWithinWindowIntoOneChangeset checks that two
// files whose leader revisions share author and log text, and land
// within the commit window, collapse into a single Changeset rather
// than one each.
func TestRunCoalescesFilesWithinWindowIntoOneChangeset(t *testing.T) {
	p := newParser()
	a := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "shared message"
branch MAIN tip 1.1
`)
	b := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 1000001 author alice log "shared message"
branch MAIN tip 1.1
`)
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{a, b}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Len(t, result.History, 1)
	assert.Equal(t, 2, result.History[0].RevDir.Len())
	assert.Equal(t, int64(1000001), result.History[0].Date)
}

// TestRunCommitIDsDiscriminateIdenticalTimestamps checks that two
// revisions with matching timestamp, author and log text still land in
// separate Changesets when they carry distinct commit-ids and the
// policy trusts commit-ids.
func TestRunCommitIDsDiscriminateIdenticalTimestamps(t *testing.T) {
	p := newParser()
	a := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "same" commit c1
branch MAIN tip 1.1
`)
	b := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "same" commit c2
branch MAIN tip 1.1
`)
	policy := collate.DefaultPolicy()
	assert.True(t, policy.TrustCommitIDs)
	engine := collate.NewEngine(policy, silentLogger())
	result, err := engine.Run([]*model.Master{a, b}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Len(t, result.History, 2)
	assert.NotSame(t, result.History[0], result.History[1])
}

// TestRunSynthesizesBranchForTagWithoutExactMatch checks that a tag
// naming a file set no Changeset exactly matches gets its own
// synthetic, single-commit branch parented on the gitspace of its
// newest tagged revision, rather than resolving to an approximate
// Changeset.
func TestRunSynthesizesBranchForTagWithoutExactMatch(t *testing.T) {
	p := newParser()
	a := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "a-only"
branch MAIN tip 1.1
`)
	b := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 1000000 author bob log "b-first"
rev 1.2 ts 1000100 author bob log "b-second"
branch MAIN tip 1.2 root 1.1
`)
	tag := &model.Tag{Name: "U", Revisions: []*model.FileRevision{a.Branches[0].Tip}}
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{a, b}, []*model.Tag{tag})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.NotNil(t, tag.Resolved)
	assert.NotNil(t, tag.Resolved.Branch)
	assert.Equal(t, "U", tag.Resolved.Branch.Name.String())
	assert.Contains(t, tag.Resolved.Log.String(), "Synthetic commit for incomplete tag U")
	assert.Contains(t, result.History, tag.Resolved)
}

// TestTagLocationIsIdempotent checks that resolving the same tag twice
// against one collated graph yields the same Changeset both times.
func TestTagLocationIsIdempotent(t *testing.T) {
	p := newParser()
	m := parseMaster(t, p, "file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
branch MAIN tip 1.1
`)
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{m}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rev := m.Branches[0].Tip
	tag1 := &model.Tag{Name: "REL1", Revisions: []*model.FileRevision{rev}}
	tag2 := &model.Tag{Name: "REL1", Revisions: []*model.FileRevision{rev}}

	col := collate.NewCollator(engine.Policy, engine.Diag, engine.Names, engine.Atoms, engine.Registry)
	col.LocateTag(tag1, engine.Revisions, result.Branches)
	col.LocateTag(tag2, engine.Revisions, result.Branches)

	assert.NotNil(t, tag1.Resolved)
	assert.Same(t, tag1.Resolved, tag2.Resolved)
}

// TestRunFlagsTipOlderThanBranchBirth checks that a continuation-only
// (Tail) branch member whose own tip predates the birth date imputed
// from the branch's live members is reported as an anomaly.
func TestRunFlagsTipOlderThanBranchBirth(t *testing.T) {
	p := newParser()
	a := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 5000 author alice log "a"
branch MAIN tip 1.1
`)
	b := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 10 author bob log "continuation" tail true
branch MAIN tip 1.1
`)
	diag := collate.NewDiagnostics(silentLogger())
	engine := &collate.Engine{
		Policy:    collate.DefaultPolicy(),
		Diag:      diag,
		Names:     model.NewNameInterner(),
		Revisions: model.NewRevisionInterner(),
		Atoms:     atom.NewTable(),
	}
	_, err := engine.Run([]*model.Master{a, b}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Equal(t, 1, diag.Count(collate.TipOlderThanBirth))
}

// contentOf stands in for a file revision's byte content: unique per
// revision (its log text), so a materialized tree can be compared for
// exact equality without needing real blob bytes.
func contentOf(fr *model.FileRevision) string {
	return fr.Log.String()
}

// materialize renders a Snapshot to a path -> content map, the same
// shape DiffFileOps's merge-join walks to compute fileops.
func materialize(s model.Snapshot) map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	s.Each(func(m *model.Master, fr *model.FileRevision) {
		out[m.OutputName] = contentOf(fr)
	})
	return out
}

// TestRoundTripReplaysParentPlusFileOpsToChildRevdir checks the
// round-trip property: re-materializing a Changeset's parent and then
// applying the M/D fileops DiffFileOps computes between them yields
// exactly the child's own revdir contents, for both an add/replace and
// a delete.
func TestRoundTripReplaysParentPlusFileOpsToChildRevdir(t *testing.T) {
	p := newParser()
	a := parseMaster(t, p, "a.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "a1"
rev 1.2 ts 1000300 author alice log "a2"
branch MAIN tip 1.2 root 1.1
`)
	b := parseMaster(t, p, "b.txt", `mode 0100644
rev 1.1 ts 1000050 author alice log "b1"
rev 1.2 ts 1000320 author alice log "b2-delete" dead true
branch MAIN tip 1.2 root 1.1
`)
	engine := collate.NewEngine(collate.DefaultPolicy(), silentLogger())
	result, err := engine.Run([]*model.Master{a, b}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assert.Len(t, result.History, 4)

	marks := make(map[*model.FileRevision]int)
	markContent := make(map[int]string)
	nextMark := 0
	blobMark := func(fr *model.FileRevision) int {
		if id, ok := marks[fr]; ok {
			return id
		}
		nextMark++
		marks[fr] = nextMark
		markContent[nextMark] = contentOf(fr)
		return nextMark
	}
	modeOf := func(m *model.Master) int { return m.Mode }

	exercised := 0
	for _, cs := range result.History {
		if cs.Parent == nil {
			continue
		}
		ops := fastimport.DiffFileOps(cs.Parent.RevDir, cs.RevDir, blobMark, modeOf)
		got := materialize(cs.Parent.RevDir)
		for _, op := range ops {
			if op.Delete {
				delete(got, op.Path)
			} else {
				got[op.Path] = markContent[op.Mark]
			}
		}
		assert.Equal(t, materialize(cs.RevDir), got)
		exercised++
	}
	assert.Equal(t, 3, exercised)
}
