package model

import (
	"sort"
	"strings"
	"sync"
)

// Master is one legacy per-file history container (a CVS ",v" file in
// spirit, though parsing it is out of scope here - see masterparse).
type Master struct {
	// Index is this Master's position in global deep-path order,
	// assigned by SortMasters. It stands in for the reference
	// implementation's use of pointer order as a stable, reproducible
	// ordering and sort key.
	Index int

	// Path is the semantic path after suffix stripping (e.g. the ",v"
	// and Attic/ of a CVS master are already gone by the time a Master
	// reaches the collation engine).
	Path string

	// OutputName is the file-operation name to use on emission.
	// FixtureParser sets it equal to Path; no component in this module
	// renames a master (".cvsignore" is emitted as ".cvsignore").
	OutputName string

	// Mode is the executable-bit-derived file mode to use for fast-import
	// M operations (0100644 or 0100755).
	Mode int

	// Branches is the set of per-master branch heads this master
	// contributes to the Branch Unifier.
	Branches []*MasterBranch
}

// MasterBranch is one master's view of a single named branch: its tip
// revision and the name of the branch it forked from, as observed in
// this master alone. The Branch Unifier merges these across masters.
type MasterBranch struct {
	Name       *RevisionName
	Degree     int
	Tip        *FileRevision
	ParentName *RevisionName // empty for trunk

	// Root is the oldest FileRevision that is genuinely part of this
	// branch's own chain for this master; Root.Parent, if any, lives on
	// the parent branch. Set by masterparse, which is the only component
	// that knows where a branch's local history actually starts without
	// redoing CVS revision-number arithmetic downstream.
	Root *FileRevision
}

// RevisionName is an interned branch/tag name.
type RevisionName struct {
	text string
}

func (n *RevisionName) String() string {
	if n == nil {
		return ""
	}
	return n.text
}

// NameInterner interns branch/tag names to pointers so the Branch
// Unifier can key its output-head map by identity.
type NameInterner struct {
	mu     sync.Mutex
	byText map[string]*RevisionName
}

// NewNameInterner returns a ready-to-use NameInterner.
func NewNameInterner() *NameInterner {
	return &NameInterner{byText: make(map[string]*RevisionName)}
}

// Intern returns the canonical *RevisionName for text.
func (ni *NameInterner) Intern(text string) *RevisionName {
	ni.mu.Lock()
	defer ni.mu.Unlock()
	if n, ok := ni.byText[text]; ok {
		return n
	}
	n := &RevisionName{text: text}
	ni.byText[text] = n
	return n
}

// DeepPathLess implements "deep-path order" (GLOSSARY): lexicographic,
// except that a path which is a prefix-plus-separator of another sorts
// first, i.e. a directory's own direct entries precede any of its
// subdirectories' entries when they'd otherwise tie on the shared prefix.
// In practice for plain file paths, split-and-compare-by-segment gives
// exactly this rule.
func DeepPathLess(a, b string) bool {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			// A segment that ends the path (a file) sorts before a
			// segment that continues as a directory of the same name
			// cannot happen since names differ here - plain string
			// compare of the differing segment is deep-path order.
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}

// SortMasters orders ms in deep-path order and assigns Index 0..n-1 in
// that order. This is the single place Index is assigned; callers must
// run it once after all Masters are known and before collation begins.
func SortMasters(ms []*Master) {
	sort.Slice(ms, func(i, j int) bool {
		return DeepPathLess(ms[i].Path, ms[j].Path)
	})
	for i, m := range ms {
		m.Index = i
	}
}
