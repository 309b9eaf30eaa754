package masterparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cvsup/cvsup/atom"
	"github.com/cvsup/cvsup/model"
)

// FixtureParser reads the line-oriented test-fixture master format:
//
//	mode 0644
//	rev 1.1 ts 1000000 author alice log "initial revision" dead false
//	rev 1.2 ts 1000100 author bob log "second" dead false
//	branch MAIN tip 1.2 root 1.1
//	rev 1.1.2.1 ts 1000200 author carol log "branch commit" dead false parent 1.1
//	branch BRANCH1 from MAIN tip 1.1.2.1 root 1.1.2.1 degree 4
//
// Each "rev" line's parent defaults to the previous "rev" line unless a
// "parent" key names an already-declared revision explicitly (the only
// way to express a revision that forks off an earlier point than the one
// immediately before it in the fixture text). Lines are otherwise
// independent key/value pairs after the directive and, for "rev", the
// revision number; blank lines and lines starting with "#" are ignored.
//
// A "branch" line's "root" key defaults to its "tip" when omitted. That
// default only matches a branch segment with a single revision of its
// own; any segment with two or more revisions needs "root" written out
// explicitly, or the collator's birth walk and cursor advance treat the
// tip as its own root and stop after the first changeset.
type FixtureParser struct {
	Revisions *model.RevisionInterner
	Names     *model.NameInterner
	Atoms     *atom.Table
}

// Parse implements Parser.
func (p *FixtureParser) Parse(src Source) (*model.Master, error) {
	m := &model.Master{Path: src.Path, OutputName: src.Path, Mode: 0100644}
	revs := make(map[string]*model.FileRevision)
	var last *model.FileRevision

	for ln, raw := range strings.Split(src.Body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := splitFields(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", src.Path, ln+1, err)
		}
		switch fields[0] {
		case "mode":
			mode, err := strconv.ParseInt(fields[1], 8, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: mode: %w", src.Path, ln+1, err)
			}
			m.Mode = int(mode)
		case "rev":
			fr, text, err := p.parseRev(fields, m, revs, last)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", src.Path, ln+1, err)
			}
			revs[text] = fr
			last = fr
		case "branch":
			mb, err := p.parseBranch(fields, revs)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", src.Path, ln+1, err)
			}
			m.Branches = append(m.Branches, mb)
		default:
			return nil, fmt.Errorf("%s:%d: unknown directive %q", src.Path, ln+1, fields[0])
		}
	}
	return m, nil
}

func (p *FixtureParser) parseRev(fields []string, m *model.Master, revs map[string]*model.FileRevision, last *model.FileRevision) (*model.FileRevision, string, error) {
	if len(fields) < 2 {
		return nil, "", errors.New("rev: missing revision number")
	}
	text := fields[1]
	kv, err := toMap(fields[2:])
	if err != nil {
		return nil, "", err
	}
	ts, err := strconv.ParseInt(kv["ts"], 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("ts: %w", err)
	}
	fr := &model.FileRevision{
		Master:    m,
		Rev:       p.Revisions.Intern(text),
		Timestamp: ts,
		Author:    p.Atoms.Intern(kv["author"]),
		Log:       p.Atoms.Intern(unquote(kv["log"])),
		Dead:      kv["dead"] == "true",
		Tail:      kv["tail"] == "true",
	}
	if id := kv["commit"]; id != "" {
		fr.CommitID = p.Atoms.Intern(id)
	}
	if pt, ok := kv["parent"]; ok {
		if pt != "" {
			parent, known := revs[pt]
			if !known {
				return nil, "", fmt.Errorf("parent %s not yet declared", pt)
			}
			fr.Parent = parent
		}
	} else {
		fr.Parent = last
	}
	return fr, text, nil
}

func (p *FixtureParser) parseBranch(fields []string, revs map[string]*model.FileRevision) (*model.MasterBranch, error) {
	if len(fields) < 2 {
		return nil, errors.New("branch: missing name")
	}
	name := fields[1]
	kv, err := toMap(fields[2:])
	if err != nil {
		return nil, err
	}
	tipText, ok := kv["tip"]
	if !ok {
		return nil, errors.New("branch: missing tip")
	}
	tip, known := revs[tipText]
	if !known {
		return nil, fmt.Errorf("branch %s: tip %s not declared", name, tipText)
	}
	mb := &model.MasterBranch{Name: p.Names.Intern(name), Tip: tip}

	rootText := kv["root"]
	if rootText == "" {
		rootText = tipText
	}
	root, known := revs[rootText]
	if !known {
		return nil, fmt.Errorf("branch %s: root %s not declared", name, rootText)
	}
	mb.Root = root

	if parent := kv["from"]; parent != "" {
		mb.ParentName = p.Names.Intern(parent)
	}
	if d, ok := kv["degree"]; ok {
		n, err := strconv.Atoi(d)
		if err != nil {
			return nil, fmt.Errorf("degree: %w", err)
		}
		mb.Degree = n
	} else {
		mb.Degree = mb.Tip.Rev.Degree()
	}
	return mb, nil
}

func toMap(fields []string) (map[string]string, error) {
	if len(fields)%2 != 0 {
		return nil, errors.New("expected key/value pairs")
	}
	m := make(map[string]string, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		m[fields[i]] = fields[i+1]
	}
	return m, nil
}

// splitFields tokenizes on spaces, treating a "..." run (including its
// spaces) as one field.
func splitFields(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
			cur.WriteByte(ch)
		case ch == ' ' && !inQuote:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
