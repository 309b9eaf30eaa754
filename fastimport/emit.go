package fastimport

import (
	"fmt"

	"github.com/cvsup/cvsup/model"
)

type fileEntry struct {
	master *model.Master
	rev    *model.FileRevision
}

func snapshotEntries(s model.Snapshot) []fileEntry {
	if s == nil {
		return nil
	}
	out := make([]fileEntry, 0, s.Len())
	s.Each(func(m *model.Master, fr *model.FileRevision) {
		out = append(out, fileEntry{m, fr})
	})
	return out
}

// ContentFunc looks up a file revision's raw content, so BlobStore can
// archive and write it the first time a revision is referenced. Real
// master parsing is out of scope, so production callers resolve this
// however their Parser staged content; fixture-driven tests can return a
// deterministic placeholder.
type ContentFunc func(fr *model.FileRevision) string

// DiffFileOps computes the M/D fileops needed to turn prev's tree into
// next's, via a merge-join over both snapshots - both already sorted in
// deep-path (Master.Index) order, so a two-pointer walk suffices without
// re-sorting either side.
func DiffFileOps(prev, next model.Snapshot, blobMark func(*model.FileRevision) int, modeOf func(*model.Master) int) []FileOp {
	oldEntries := snapshotEntries(prev)
	newEntries := snapshotEntries(next)
	var ops []FileOp
	i, j := 0, 0
	for i < len(oldEntries) || j < len(newEntries) {
		switch {
		case j >= len(newEntries) || (i < len(oldEntries) && oldEntries[i].master.Index < newEntries[j].master.Index):
			ops = append(ops, FileOp{Delete: true, Path: oldEntries[i].master.OutputName})
			i++
		case i >= len(oldEntries) || newEntries[j].master.Index < oldEntries[i].master.Index:
			ops = append(ops, FileOp{Mode: modeOf(newEntries[j].master), Mark: blobMark(newEntries[j].rev), Path: newEntries[j].master.OutputName})
			j++
		default:
			if oldEntries[i].rev != newEntries[j].rev {
				ops = append(ops, FileOp{Mode: modeOf(newEntries[j].master), Mark: blobMark(newEntries[j].rev), Path: newEntries[j].master.OutputName})
			}
			i++
			j++
		}
	}
	return ops
}

// IdentFunc resolves a Changeset's author/committer identities - backed
// by an authormap.Map in production, trivially by atom text in tests.
type IdentFunc func(cs *model.Changeset) (author, committer Ident)

// Emit walks history (already in canonical, parent-before-child order)
// and writes one commit per Changeset, diffing each against its parent's
// revdir for the M/D fileops. blobs resolves a FileRevision to its mark,
// allocating one and writing/archiving the blob record via content the
// first time a revision is referenced.
func Emit(w *Writer, history []*model.Changeset, blobs *BlobStore, content ContentFunc, modeOf func(*model.Master) int, identOf IdentFunc) error {
	blobMark := func(fr *model.FileRevision) int { return blobs.Mark(fr, content(fr)) }
	for _, cs := range history {
		var prev model.Snapshot
		if cs.Parent != nil {
			prev = cs.Parent.RevDir
		}
		ops := DiffFileOps(prev, cs.RevDir, blobMark, modeOf)

		author, committer := identOf(cs)
		spec := CommitSpec{
			Ref:       "refs/heads/" + cs.Branch.Name.String(),
			Mark:      cs.Mark,
			Author:    author,
			Committer: committer,
			Message:   cs.Log.String(),
		}
		if cs.Parent != nil {
			spec.From = fmt.Sprintf(":%d", cs.Parent.Mark)
		}
		w.WriteCommit(spec)
		for _, op := range ops {
			w.WriteFileOp(op)
		}
		w.WriteCommitEnd()
		if err := w.Err(); err != nil {
			return err
		}
	}
	return nil
}
