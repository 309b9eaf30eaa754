package model

import (
	"strconv"
	"strings"
	"sync"
)

// RevisionNumber is an interned dotted-integer CVS revision number
// ("1.1", "1.1.1.1", ...). Equality is via identity: two RevisionNumbers
// parsed from the same text from the same Interner are the same pointer.
type RevisionNumber struct {
	text string
	digs []int
}

// String returns the dotted textual form, e.g. "1.1.1.1".
func (r *RevisionNumber) String() string {
	if r == nil {
		return ""
	}
	return r.text
}

// Degree is the number of dotted components; FixtureParser uses it as a
// branch's default degree (see BranchHead.Degree).
func (r *RevisionNumber) Degree() int {
	if r == nil {
		return 0
	}
	return len(r.digs)
}

// IsBranchRoot reports whether r has an even number of components, at
// least four, and ends in .1 - the "first revision of a branch" shape
// used by CVS revision numbering. The parity of the branch number is not
// checked, so a vendor-branch revision such as 1.1.1.1 also qualifies.
func (r *RevisionNumber) IsBranchRoot() bool {
	if r == nil || len(r.digs) < 4 || len(r.digs)%2 != 0 {
		return false
	}
	return r.digs[len(r.digs)-1] == 1
}

// TrunkAncestor returns the revision number of the commit on the parent
// branch this branch number was created from, e.g. "1.2.2.1" -> "1.2".
// Returns nil if r is not a branch revision.
func (r *RevisionNumber) TrunkAncestor(in *RevisionInterner) *RevisionNumber {
	if !r.IsBranchRoot() {
		return nil
	}
	parent := r.digs[:len(r.digs)-2]
	return in.fromDigits(parent)
}

// RevisionInterner interns RevisionNumbers the way atom.Table interns
// strings; "1.1" and "1.1.1.1" are pre-registered since both come up by
// name in the tag-matching equivalence below.
type RevisionInterner struct {
	mu     sync.Mutex
	byText map[string]*RevisionNumber

	// Trunk11 and Branch1111 are the two well-known revision numbers
	// pre-registered above.
	Trunk11    *RevisionNumber
	Branch1111 *RevisionNumber
}

// NewRevisionInterner returns a ready-to-use interner with the
// well-known revisions pre-registered.
func NewRevisionInterner() *RevisionInterner {
	in := &RevisionInterner{byText: make(map[string]*RevisionNumber)}
	in.Trunk11 = in.Intern("1.1")
	in.Branch1111 = in.Intern("1.1.1.1")
	return in
}

// Intern parses and interns a dotted revision number string.
func (in *RevisionInterner) Intern(text string) *RevisionNumber {
	in.mu.Lock()
	defer in.mu.Unlock()
	if r, ok := in.byText[text]; ok {
		return r
	}
	parts := strings.Split(text, ".")
	digs := make([]int, len(parts))
	for i, p := range parts {
		n, _ := strconv.Atoi(p)
		digs[i] = n
	}
	r := &RevisionNumber{text: text, digs: digs}
	in.byText[text] = r
	return r
}

// Equivalent implements the tag-matching equivalence the Tag Locator
// needs: a file's initial trunk revision (1.1) and the initial revision
// of the same file re-added onto a vendor branch (1.1.1.1) compare equal.
func (in *RevisionInterner) Equivalent(a, b *RevisionNumber) bool {
	if a == b {
		return true
	}
	pair := func(x, y *RevisionNumber) bool {
		return x == in.Trunk11 && y == in.Branch1111
	}
	return pair(a, b) || pair(b, a)
}

func (in *RevisionInterner) fromDigits(digs []int) *RevisionNumber {
	parts := make([]string, len(digs))
	for i, d := range digs {
		parts[i] = strconv.Itoa(d)
	}
	return in.Intern(strings.Join(parts, "."))
}
