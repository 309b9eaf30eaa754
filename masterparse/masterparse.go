// Package masterparse defines the external contract between a source of
// legacy per-file master histories and the collation engine: something
// that can enumerate master locations (Source) and something that can
// turn one into a model.Master plus the FileRevisions reachable from its
// branch tips (Parser). Parsing a real RCS ",v" master is out of scope;
// the Parser implementation here reads a small line-oriented test-fixture
// format instead, which is all the collation engine needs to be fed.
package masterparse

import "github.com/cvsup/cvsup/model"

// Source names one master file location to be parsed, e.g. a path
// relative to a CVS repository root.
type Source struct {
	// Path is the master's location; the ",v" suffix and any leading
	// "Attic/" segment have already been stripped.
	Path string
	Body string
}

// Parser turns one Source into a Master plus the interned data it
// references. Parsers must be safe to call concurrently from distinct
// goroutines against distinct Sources - the Pool below relies on this.
type Parser interface {
	Parse(src Source) (*model.Master, error)
}
