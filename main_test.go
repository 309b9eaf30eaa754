package main

import (
	"flag"
	"os"
	"path/filepath"
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

// writeMaster writes a fixture-format master file under dir, named
// path+",v" (mirroring an RCS master's own naming).
func writeMaster(t *testing.T, dir, path, body string) {
	full := filepath.Join(dir, path+",v")
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", full, err)
	}
}

func runConvert(t *testing.T, mastersDir string, opts Options) string {
	cfg, err := config.Unmarshal(nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	opts.MastersDir = mastersDir
	opts.Workers = 2
	c := New(createLogger(), cfg, opts)
	c.testOutput = &strings.Builder{}
	if err := c.Convert(); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return c.testOutput.String()
}

func TestConvertSingleFileTrunk(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "src/file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
rev 1.2 ts 1000100 author bob log "second"
branch MAIN tip 1.2 root 1.1
`)
	out := runConvert(t, dir, Options{})
	assert.Contains(t, out, "commit refs/heads/MAIN")
	assert.Contains(t, out, "M 100644")
	assert.Contains(t, out, "src/file1.txt")
	assert.Equal(t, 2, strings.Count(out, "commit refs/heads/MAIN"))
}

func TestConvertBranchCommitChainsToParentBranch(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "src/file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
branch MAIN tip 1.1
rev 1.1.2.1 ts 1000200 author carol log "branch commit" parent 1.1
branch BRANCH1 from MAIN tip 1.1.2.1 root 1.1.2.1 degree 4
`)
	out := runConvert(t, dir, Options{})
	assert.Contains(t, out, "commit refs/heads/MAIN")
	assert.Contains(t, out, "commit refs/heads/BRANCH1")
	assert.Contains(t, out, "from :1\n")
	assert.Equal(t, 1, strings.Count(out, "blob\nmark :1\n"))
}

func TestConvertDeletedFile(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "src/file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
rev 1.2 ts 1000100 author alice log "removed" dead true
branch MAIN tip 1.2 root 1.1
`)
	out := runConvert(t, dir, Options{})
	assert.Contains(t, out, "D src/file1.txt")
}

func TestConvertUsesAuthorMap(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "src/file1.txt", `mode 0100644
rev 1.1 ts 1000000 author alice log "initial"
branch MAIN tip 1.1
`)
	mapFile := filepath.Join(dir, "authors.txt")
	if err := os.WriteFile(mapFile, []byte("alice = Alice Example <alice@example.com>\n"), 0644); err != nil {
		t.Fatalf("write authormap: %v", err)
	}
	out := runConvert(t, dir, Options{AuthorMapFile: mapFile})
	assert.Contains(t, out, "Alice Example <alice@example.com>")
}

func TestConvertNoMastersFails(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Unmarshal(nil)
	c := New(createLogger(), cfg, Options{MastersDir: dir, Workers: 1})
	c.testOutput = &strings.Builder{}
	err := c.Convert()
	assert.Error(t, err)
}

func TestCollectSourcesStripsAtticAndSuffix(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "Attic/gone.txt", "mode 0100644\nrev 1.1 ts 1 author a log \"x\"\nbranch MAIN tip 1.1\n")
	sources, err := collectSources(dir)
	assert.NoError(t, err)
	assert.Len(t, sources, 1)
	assert.Equal(t, "gone.txt", sources[0].Path)
}
