// cvsup converts a set of legacy per-file master histories into a single
// git fast-import stream.
//
// Design:
// The main loop Convert():
//     Walks MastersDir collecting one masterparse.Source per master file
//     Parses all of them concurrently through a masterparse.Pool
//     Loads the optional tag accumulator file and the author map
//     Runs them through collate.Engine.Run, which does the actual
//         branch unification, parent resolution, per-branch collation,
//         tag location, tail marking and canonicalization
//     Emits the resulting Changeset history as a fast-import stream via
//         fastimport.Emit, writing (and archiving) one blob per distinct
//         file revision the history references
//
// Notes:
// * Parsing a real RCS ",v" master is out of scope (see masterparse);
//   MastersDir is expected to hold masterparse's own fixture format
//   unless --rcs-content points at the real masters to read blob bytes
//   from via `co -p`.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/alitto/pond"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/cvsup/cvsup/atom"
	"github.com/cvsup/cvsup/authormap"
	"github.com/cvsup/cvsup/collate"
	"github.com/cvsup/cvsup/config"
	"github.com/cvsup/cvsup/fastimport"
	"github.com/cvsup/cvsup/masterparse"
	"github.com/cvsup/cvsup/model"
)

// atomTable backs every FixtureParser built by this process; sharing one
// table across master parses is safe (atom.Table is internally locked)
// and keeps author/log text comparisons across masters pointer-equal the
// way the similarity relation needs.
var atomTable = atom.NewTable()

// Options collects the CLI's flags and config overrides into the shape
// Convert needs; kept separate from the kingpin variables themselves so
// tests can drive Convert without going through flag parsing.
type Options struct {
	MastersDir    string
	TagsFile      string
	ConfigFile    string
	AuthorMapFile string
	OutputFile    string
	ArchiveRoot   string
	RCSContent    bool
	Workers       int
}

// Converter drives one end-to-end conversion run.
type Converter struct {
	logger *logrus.Logger
	cfg    *config.Config
	opts   Options

	testOutput *strings.Builder
}

// New returns a Converter ready to Convert.
func New(logger *logrus.Logger, cfg *config.Config, opts Options) *Converter {
	return &Converter{logger: logger, cfg: cfg, opts: opts}
}

// collectSources walks dir for files ending in ",v" (an "Attic/" segment,
// if present, is dropped from the semantic path, the same convention CVS
// itself uses for dead-on-trunk files) and reads each one as a
// masterparse.Source.
func collectSources(dir string) ([]masterparse.Source, error) {
	var sources []masterparse.Source
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ",v") {
			return nil
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		rel = filepath.ToSlash(strings.TrimSuffix(rel, ",v"))
		if strings.HasPrefix(rel, "Attic/") {
			rel = strings.TrimPrefix(rel, "Attic/")
		} else {
			rel = strings.Replace(rel, "/Attic/", "/", 1)
		}
		sources = append(sources, masterparse.Source{Path: rel, Body: string(body)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return sources, nil
}

// rcsContent shells out to RCS's own `co -p` to extract one revision's
// content, the same blobdir-staging role cvs-fast-export's import phase
// plays before its export phase ever runs - reading actual master
// content back out is squarely out of this module's own parsing scope
// (masterparse.Parser), so a real conversion run still needs the RCS
// toolchain installed to resolve blob bytes.
func rcsContent(mastersDir string, fr *model.FileRevision) string {
	path := filepath.Join(mastersDir, fr.Master.Path+",v")
	out, err := exec.Command("co", "-q", "-p", "-r"+fr.Rev.String(), path).Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// placeholderContent stands in for rcsContent when --rcs-content isn't
// set, e.g. for a fixture-driven run where the fixture masters never
// carried real file bytes to begin with.
func placeholderContent(fr *model.FileRevision) string {
	return fr.Master.Path + "@" + fr.Rev.String() + "\n"
}

// loadTags reads an optional tag accumulator file: one "tag <name>" line
// followed by "rev <path> <revision>" lines naming the files and
// revisions to include, ended by a blank line. The external tag
// accumulator itself is out of scope; this is the minimal format the
// collation engine's Tag Locator needs to be fed.
func loadTags(path string, interner *model.RevisionInterner, bySource map[string]*model.Master) ([]*model.Tag, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var tags []*model.Tag
	var current *model.Tag
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "tag":
			current = &model.Tag{Name: fields[1]}
			tags = append(tags, current)
		case "rev":
			if current == nil {
				return nil, fmt.Errorf("rev line before any tag line")
			}
			m, ok := bySource[fields[1]]
			if !ok {
				return nil, fmt.Errorf("tag %s: unknown master path %q", current.Name, fields[1])
			}
			fr := findRevision(m, interner.Intern(fields[2]))
			if fr == nil {
				return nil, fmt.Errorf("tag %s: %s has no revision %s", current.Name, fields[1], fields[2])
			}
			current.Revisions = append(current.Revisions, fr)
		default:
			return nil, fmt.Errorf("unknown tag-file directive %q", fields[0])
		}
	}
	return tags, scanner.Err()
}

func findRevision(m *model.Master, rev *model.RevisionNumber) *model.FileRevision {
	for _, mb := range m.Branches {
		for fr := mb.Tip; fr != nil; fr = fr.Parent {
			if fr.Rev == rev {
				return fr
			}
		}
	}
	return nil
}

// Convert runs one full conversion: parse, collate, emit.
func (c *Converter) Convert() error {
	sources, err := collectSources(c.opts.MastersDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no masters (*,v files) found under %s", c.opts.MastersDir)
	}

	parser := &masterparse.FixtureParser{
		Revisions: model.NewRevisionInterner(),
		Names:     model.NewNameInterner(),
		Atoms:     atomTable,
	}
	pool := masterparse.NewPool(parser, c.opts.Workers)
	masters, errs := pool.ParseAll(sources)
	pool.StopAndWait()

	bySource := make(map[string]*model.Master, len(sources))
	var failed int
	for i, m := range masters {
		if errs[i] != nil {
			c.logger.Errorf("cvsup: failed to parse %s: %v", sources[i].Path, errs[i])
			failed++
			continue
		}
		bySource[sources[i].Path] = m
	}
	if failed > 0 {
		return fmt.Errorf("cvsup: %d master(s) failed to parse", failed)
	}

	tags, err := loadTags(c.opts.TagsFile, parser.Revisions, bySource)
	if err != nil {
		return err
	}

	policy := collate.Policy{Window: c.cfg.CommitWindow, TrustCommitIDs: c.cfg.TrustCommitIDs}
	engine := collate.NewEngine(policy, c.logger)
	result, err := engine.Run(masters, tags)
	if err != nil {
		return fmt.Errorf("cvsup: collation failed: %w", err)
	}

	authors := authormap.New(c.logger)
	if c.opts.AuthorMapFile != "" {
		f, err := os.Open(c.opts.AuthorMapFile)
		if err != nil {
			return fmt.Errorf("failed to open author map %s: %w", c.opts.AuthorMapFile, err)
		}
		err = authors.Load(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse author map %s: %w", c.opts.AuthorMapFile, err)
		}
	}

	var out *os.File
	if c.testOutput == nil {
		out, err = os.Create(c.opts.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.opts.OutputFile, err)
		}
		defer out.Close()
	}

	var w *fastimport.Writer
	if c.testOutput != nil {
		w = fastimport.NewWriter(c.testOutput)
	} else {
		bw := bufio.NewWriter(out)
		defer bw.Flush()
		w = fastimport.NewWriter(bw)
	}

	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	blobPool := pond.New(workers, 0, pond.MinWorkers(10))
	defer blobPool.StopAndWait()
	blobs := fastimport.NewBlobStore(w, blobPool, c.opts.ArchiveRoot)

	content := placeholderContent
	if c.opts.RCSContent {
		content = func(fr *model.FileRevision) string { return rcsContent(c.opts.MastersDir, fr) }
	}
	modeOf := func(m *model.Master) int { return m.Mode }
	identOf := func(cs *model.Changeset) (fastimport.Ident, fastimport.Ident) {
		id := authors.Resolve(cs.Author.String())
		ts := time.Unix(cs.Date, 0).UTC()
		if id.Timezone != "" {
			if loc, err := time.LoadLocation(id.Timezone); err == nil {
				ts = ts.In(loc)
			}
		}
		ident := fastimport.Ident{Name: id.FullName, Email: id.Email, Time: ts}
		return ident, ident
	}

	if err := fastimport.Emit(w, result.History, blobs, content, modeOf, identOf); err != nil {
		return fmt.Errorf("cvsup: emit failed: %w", err)
	}
	return nil
}

func main() {
	var (
		mastersDir = kingpin.Arg(
			"masters",
			"Directory of legacy master files (*,v) to convert.",
		).Required().String()
		output = kingpin.Flag(
			"output",
			"Fast-import file to write.",
		).Short('o').Required().String()
		configFile = kingpin.Flag(
			"config",
			"YAML config file (default branch, commit window, branch/typemaps).",
		).Short('c').String()
		authorMapFile = kingpin.Flag(
			"authormap",
			"Author map file (login = Full Name <email>[, timezone]); overrides the config file's author_map.",
		).Short('A').String()
		tagsFile = kingpin.Flag(
			"tags",
			"Tag accumulator file.",
		).String()
		archiveRoot = kingpin.Flag(
			"archive",
			"Directory to archive a compressed copy of every blob under; disabled if empty.",
		).String()
		rcsContentFlag = kingpin.Flag(
			"rcs-content",
			"Resolve blob content by shelling out to RCS's `co -p` against the masters directory, instead of a placeholder.",
		).Bool()
		workers = kingpin.Flag(
			"workers",
			"Parse/archive concurrency; defaults to the number of CPUs.",
		).Default("0").Int()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Default("0").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Author("cvsup")
	kingpin.CommandLine.Help = "Converts legacy per-file master histories into a single git fast-import stream.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfigFile(*configFile)
		if err != nil {
			logger.Errorf("error loading config file: %v", err)
			os.Exit(1)
		}
	} else {
		cfg, _ = config.Unmarshal(nil)
	}
	authorMap := *authorMapFile
	if authorMap == "" {
		authorMap = cfg.AuthorMapFile
	}

	startTime := time.Now()
	logger.Infof("Starting %s, masters: %s", startTime, *mastersDir)

	c := New(logger, cfg, Options{
		MastersDir:    *mastersDir,
		TagsFile:      *tagsFile,
		ConfigFile:    *configFile,
		AuthorMapFile: authorMap,
		OutputFile:    *output,
		ArchiveRoot:   *archiveRoot,
		RCSContent:    *rcsContentFlag,
		Workers:       *workers,
	})
	if err := c.Convert(); err != nil {
		logger.Errorf("cvsup: %v", err)
		os.Exit(1)
	}
	logger.Infof("Finished in %s, output: %s", time.Since(startTime), *output)
}
