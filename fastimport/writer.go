// Package fastimport writes the textual git fast-import stream the
// Canonicalizer's emission order feeds. Blob records are built as
// github.com/rcowham/go-libgitfastimport's own CmdBlob, then serialized
// in the grammar's wire order via buffered fmt.Fprintf calls straight to
// an io.Writer. Commit and fileop records use this package's own plain
// structs: the library's corresponding types carry fields (e.g. a
// distinctly-typed Path) this module's code never needs to construct on
// the writing side.
package fastimport

import (
	"fmt"
	"io"
	"time"

	libfastimport "github.com/rcowham/go-libgitfastimport"
)

// Writer serializes fast-import commands to an underlying io.Writer in
// the order they're given; it never reorders or buffers more than one
// command at a time.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered by any Write* call.
func (fw *Writer) Err() error {
	return fw.err
}

func (fw *Writer) printf(format string, args ...interface{}) {
	if fw.err != nil {
		return
	}
	_, err := fmt.Fprintf(fw.w, format, args...)
	if err != nil {
		fw.err = err
	}
}

// WriteBlob emits a blob command carrying cmd.Data under mark cmd.Mark.
func (fw *Writer) WriteBlob(cmd libfastimport.CmdBlob) {
	fw.printf("blob\nmark :%d\ndata %d\n%s\n", cmd.Mark, len(cmd.Data), cmd.Data)
}

// Ident is a committer/author identity plus timestamp.
type Ident struct {
	Name  string
	Email string
	Time  time.Time
}

func (fw *Writer) writeIdent(field string, id Ident) {
	fw.printf("%s %s <%s> %d %s\n", field, id.Name, id.Email, id.Time.Unix(), id.Time.Format("-0700"))
}

// CommitSpec is everything WriteCommit needs beyond the fileops, which
// are passed separately so callers can stream them without building a
// slice up front.
type CommitSpec struct {
	Ref       string
	Mark      int
	Author    Ident
	Committer Ident
	Message   string
	From      string   // mark reference of the parent commit, e.g. ":3"; empty for a root commit
	Merge     []string // additional parent mark references
}

// WriteCommit emits a commit command's header (ref/mark/author/committer/
// data/from/merge), not including fileops; call WriteFileOp for each,
// then WriteCommitEnd.
func (fw *Writer) WriteCommit(spec CommitSpec) {
	fw.printf("commit %s\n", spec.Ref)
	fw.printf("mark :%d\n", spec.Mark)
	fw.writeIdent("author", spec.Author)
	fw.writeIdent("committer", spec.Committer)
	fw.printf("data %d\n%s\n", len(spec.Message), spec.Message)
	if spec.From != "" {
		fw.printf("from %s\n", spec.From)
	}
	for _, m := range spec.Merge {
		fw.printf("merge %s\n", m)
	}
}

// FileOp is one M or D fileop line within a commit.
type FileOp struct {
	Delete bool
	Mode   int    // e.g. 0100644, 0100755; ignored when Delete
	Mark   int    // blob mark referenced by an M op; ignored when Delete
	Path   string
}

// WriteFileOp emits one M or D fileop line.
func (fw *Writer) WriteFileOp(op FileOp) {
	if op.Delete {
		fw.printf("D %s\n", op.Path)
		return
	}
	fw.printf("M %o :%d %s\n", op.Mode, op.Mark, op.Path)
}

// WriteCommitEnd emits the blank line terminating a commit's fileop list.
func (fw *Writer) WriteCommitEnd() {
	fw.printf("\n")
}

// WriteReset emits a reset command, used to point a branch ref at a mark
// with no intervening commit (a synthesized tag branch, or any branch
// whose tip never moved, needs this).
func (fw *Writer) WriteReset(ref, from string) {
	fw.printf("reset %s\n", ref)
	if from != "" {
		fw.printf("from %s\n", from)
	}
}

// TagSpec is a lightweight annotated tag pointing at a commit mark.
type TagSpec struct {
	Name    string
	From    string // mark reference of the tagged commit, e.g. ":12"
	Tagger  Ident
	Message string
}

// WriteTag emits a tag command.
func (fw *Writer) WriteTag(spec TagSpec) {
	fw.printf("tag %s\n", spec.Name)
	fw.printf("from %s\n", spec.From)
	fw.writeIdent("tagger", spec.Tagger)
	fw.printf("data %d\n%s\n", len(spec.Message), spec.Message)
}
