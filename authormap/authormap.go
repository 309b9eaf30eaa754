// Package authormap loads the CVS-login-to-DVCS-identity table used to
// turn a bare CVS username into a "Full Name <email>" committer line. The
// text format - "login = Full Name <email>[, timezone]" - is the de
// facto standard cvs-fast-export's own authormap.c parses; it is kept
// independent of this repo's own YAML config format since it is meant to
// be shared across tools and repositories.
package authormap

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Identity is one resolved DVCS author identity.
type Identity struct {
	FullName string
	Email    string
	Timezone string // empty if the file didn't specify one
}

// String renders the identity as a git-style committer name/email pair.
func (id Identity) String() string {
	return fmt.Sprintf("%s <%s>", id.FullName, id.Email)
}

// Map is a loaded author map plus the fallback behavior for logins it
// doesn't contain.
type Map struct {
	byLogin map[string]Identity
	logger  *logrus.Logger
	warned  map[string]bool
}

// New returns an empty Map; Load adds entries to it.
func New(logger *logrus.Logger) *Map {
	return &Map{byLogin: make(map[string]Identity), logger: logger, warned: make(map[string]bool)}
}

// Load parses r's contents as authormap text and merges the entries into
// m. A line beginning with "#" is a comment; every other non-blank line
// must contain "login = Full Name <email>" with an optional
// ", timezone" suffix.
func (m *Map) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return fmt.Errorf("line %d: missing '='", lineno)
		}
		login := strings.TrimSpace(line[:eq])
		rest := strings.TrimSpace(line[eq+1:])

		open := strings.IndexByte(rest, '<')
		shut := strings.IndexByte(rest, '>')
		if open < 0 || shut < 0 || shut < open {
			return fmt.Errorf("line %d: malformed email address for %q", lineno, login)
		}
		full := strings.TrimSpace(rest[:open])
		email := rest[open+1 : shut]
		tz := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest[shut+1:]), ","))

		if _, dup := m.byLogin[login]; dup {
			return fmt.Errorf("line %d: duplicate username %q", lineno, login)
		}
		m.byLogin[login] = Identity{FullName: full, Email: email, Timezone: tz}
	}
	return scanner.Err()
}

// Resolve returns login's mapped identity, or a synthesized
// "login <login@localhost>" fallback if login isn't in the map. The
// fallback is logged once per distinct unmapped login, not once per
// revision, so a large unmapped history doesn't flood the log.
func (m *Map) Resolve(login string) Identity {
	if id, ok := m.byLogin[login]; ok {
		return id
	}
	if m.logger != nil && !m.warned[login] {
		m.warned[login] = true
		m.logger.Warnf("authormap: no entry for login %q, using fallback identity", login)
	}
	return Identity{FullName: login, Email: login + "@localhost"}
}
