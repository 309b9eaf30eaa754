package main

import (
	"flag"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/cvsup/cvsup/config"
)

var debug bool = false
var logger *logrus.Logger

func init() {
	flag.BoolVar(&debug, "debug", false, "Set to have debug logging for tests.")
}

func createLogger() *logrus.Logger {
	if logger != nil {
		return logger
	}
	logger = logrus.New()
	logger.Level = logrus.InfoLevel
	if debug {
		logger.Level = logrus.DebugLevel
	}
	return logger
}

func runFilter(t *testing.T, input string, opts Options) string {
	cfg, err := config.Unmarshal(nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	f := New(createLogger(), cfg, opts)
	f.testInput = input
	f.testOutput = &strings.Builder{}
	if err := f.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return f.testOutput.String()
}

const baseStream = `blob
mark :1
data 8
contents
reset refs/heads/main
commit refs/heads/main
mark :2
author Robert Cowham <rcowham@example.com> 1680784555 +0100
committer Robert Cowham <rcowham@example.com> 1680784555 +0100
data 8
initial
M 100644 :1 src/file1.txt

`

func TestStripBlobs(t *testing.T) {
	out := runFilter(t, baseStream, Options{StripBlobs: true})
	assert.Contains(t, out, "data 2\n1\n")
	assert.NotContains(t, out, "contents")
}

func TestPassthroughWithoutStripBlobs(t *testing.T) {
	out := runFilter(t, baseStream, Options{})
	assert.Contains(t, out, "data 8\ncontents")
}

func TestRenameRefs(t *testing.T) {
	cfg, err := config.Unmarshal([]byte("branch_mappings:\n- name: main\n  prefix: legacy-\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	f := New(createLogger(), cfg, Options{RenameRefs: true})
	f.testInput = baseStream
	f.testOutput = &strings.Builder{}
	if err := f.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := f.testOutput.String()
	assert.Contains(t, out, "refs/heads/legacy-main")
	assert.NotContains(t, out, "reset refs/heads/main\n")
}

func TestUntrackedDeleteWarns(t *testing.T) {
	const stream = `commit refs/heads/main
mark :1
author a <a@example.com> 1 +0000
committer a <a@example.com> 1 +0000
data 4
init
D src/never-added.txt

`
	cfg, _ := config.Unmarshal(nil)
	var logBuf strings.Builder
	l := logrus.New()
	l.Out = &logBuf
	f := New(l, cfg, Options{})
	f.testInput = stream
	f.testOutput = &strings.Builder{}
	err := f.Run()
	assert.NoError(t, err)
	assert.Contains(t, logBuf.String(), "delete of untracked path")
}

func TestBranchOf(t *testing.T) {
	assert.Equal(t, "main", branchOf("refs/heads/main"))
	assert.Equal(t, "", branchOf("refs/tags/v1"))
}
