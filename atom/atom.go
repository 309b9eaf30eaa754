// Package atom interns strings so that equality elsewhere in the
// importer reduces to a pointer comparison. Revision numbers and branch
// names are interned separately, in package model.
package atom

import "sync"

// String is an interned string. Two Strings are equal iff they came from
// the same Table and were built from equal text.
type String struct {
	text string
}

func (s *String) String() string {
	if s == nil {
		return ""
	}
	return s.text
}

// Equal reports whether two interned strings are the same atom. A nil
// receiver or argument is never equal to a non-nil one.
func (s *String) Equal(o *String) bool {
	return s == o
}

// Table interns strings under a single lock. Zero value is ready to use.
type Table struct {
	mu   sync.Mutex
	strs map[string]*String
}

// NewTable returns a ready-to-use Table.
func NewTable() *Table {
	return &Table{strs: make(map[string]*String)}
}

// Intern returns the canonical *String for s, allocating one the first
// time s is seen.
func (t *Table) Intern(s string) *String {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.strs == nil {
		t.strs = make(map[string]*String)
	}
	if a, ok := t.strs[s]; ok {
		return a
	}
	a := &String{text: s}
	t.strs[s] = a
	return a
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strs)
}
