package main

// cvsgraph parses a fast-import file - typically cvsup's own output - and
// writes a graphviz DOT file showing commit relationships, for inspecting
// a conversion's branch structure before trusting it.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/dot"
	libfastimport "github.com/rcowham/go-libgitfastimport"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

type graphOptions struct {
	importFile  string
	graphFile   string
	firstCommit int
	lastCommit  int
	maxCommits  int
	squash      bool
}

// commitNode is one commit's view for graph rendering.
type commitNode struct {
	commit       *libfastimport.CmdCommit
	branch       string
	parentBranch string
	label        string
	childCount   int
	mergeCount   int
	gNode        dot.Node
	hasNode      bool
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

func newCommitNode(commit *libfastimport.CmdCommit) *commitNode {
	cn := &commitNode{commit: commit}
	cn.branch = strings.Replace(commit.Ref, "refs/heads/", "", 1)
	if hasPrefix(cn.branch, "refs/tags") || hasPrefix(cn.branch, "refs/remote") {
		cn.branch = ""
	}
	cn.label = fmt.Sprintf("Commit: %d %s", cn.commit.Mark, cn.branch)
	return cn
}

// Grapher builds a graphviz rendering of a fast-import stream's commit
// graph.
type Grapher struct {
	logger    *logrus.Logger
	opts      graphOptions
	commits   map[int]*commitNode
	graph     *dot.Graph
	testInput string
}

// NewGrapher returns a Grapher ready to Parse.
func NewGrapher(logger *logrus.Logger, opts graphOptions) *Grapher {
	return &Grapher{logger: logger, opts: opts, commits: make(map[int]*commitNode)}
}

// Parse reads the fast-import stream and builds g.graph.
func (g *Grapher) Parse() error {
	var buf io.Reader
	if g.testInput != "" {
		buf = strings.NewReader(g.testInput)
	} else {
		file, err := os.Open(g.opts.importFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", g.opts.importFile, err)
		}
		defer file.Close()
		buf = bufio.NewReader(file)
	}

	f := libfastimport.NewFrontend(buf, nil, nil)
ReadLoop:
	for {
		cmd, err := f.ReadCmd()
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("failed to read cmd: %w", err)
			}
			break
		}
		switch c := cmd.(type) {
		case libfastimport.CmdCommit:
			cmt := newCommitNode(&c)
			g.commits[c.Mark] = cmt
			if c.From != "" {
				if mark, err := strconv.Atoi(c.From[1:]); err == nil {
					if parent, ok := g.commits[mark]; ok {
						parent.childCount++
						if cmt.branch == "" {
							cmt.branch = parent.branch
						}
						cmt.parentBranch = parent.branch
					}
				}
			} else {
				cmt.branch = "main"
			}
			for _, merge := range c.Merge {
				if mark, err := strconv.Atoi(merge[1:]); err == nil {
					if mergeCmt, ok := g.commits[mark]; ok {
						mergeCmt.mergeCount++
					}
				}
			}
			if g.opts.maxCommits != 0 && len(g.commits) > g.opts.maxCommits {
				break ReadLoop
			}
		default:
		}
	}

	keys := make([]int, 0, len(g.commits))
	for k := range g.commits {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	lastBranchCommit := make(map[string]int)
	branchSkipCount := make(map[string]int)
	for _, k := range keys {
		cmt := g.commits[k]
		if (g.opts.firstCommit != 0 && cmt.commit.Mark < g.opts.firstCommit) ||
			(g.opts.lastCommit != 0 && cmt.commit.Mark > g.opts.lastCommit) {
			continue
		}
		if g.opts.squash &&
			cmt.branch == cmt.parentBranch &&
			len(cmt.commit.Merge) == 0 &&
			cmt.mergeCount == 0 &&
			cmt.childCount <= 1 &&
			cmt.commit.Mark != g.opts.firstCommit &&
			cmt.commit.Mark != g.opts.lastCommit {
			branchSkipCount[cmt.branch]++
			continue
		}
		if pid, ok := lastBranchCommit[cmt.branch]; ok {
			cmt.commit.From = fmt.Sprintf(":%d", pid)
		}
		cmt.gNode = g.graph.Node(cmt.label)
		cmt.hasNode = true
		g.createEdges(cmt, branchSkipCount[cmt.branch])
		lastBranchCommit[cmt.branch] = cmt.commit.Mark
		branchSkipCount[cmt.branch] = 0
	}
	return nil
}

func (g *Grapher) createEdges(cmt *commitNode, skipCount int) {
	if cmt == nil {
		return
	}
	if cmt.commit.From != "" {
		if mark, err := strconv.Atoi(cmt.commit.From[1:]); err == nil {
			if parent, ok := g.commits[mark]; ok {
				parent.gNode = g.graph.Node(parent.label)
				label := "p"
				if skipCount > 0 {
					label = fmt.Sprintf("p%d", skipCount)
				}
				g.graph.Edge(parent.gNode, cmt.gNode, label)
			}
		}
	}
	for _, merge := range cmt.commit.Merge {
		if mark, err := strconv.Atoi(merge[1:]); err == nil {
			if mergeFrom, ok := g.commits[mark]; ok {
				mergeFrom.gNode = g.graph.Node(mergeFrom.label)
				g.graph.Edge(mergeFrom.gNode, cmt.gNode, "m")
			}
		}
	}
}

func main() {
	var (
		importFile = kingpin.Arg(
			"import",
			"Fast-import file to process.",
		).Required().String()
		outputGraph = kingpin.Flag(
			"output",
			"Graphviz dot file to write.",
		).Short('o').Required().String()
		firstCommit = kingpin.Flag(
			"first.commit",
			"ID of first commit to include (0 means all).",
		).Default("0").Short('f').Int()
		lastCommit = kingpin.Flag(
			"last.commit",
			"ID of last commit to include (0 means all).",
		).Default("0").Short('l').Int()
		maxCommits = kingpin.Flag(
			"max.commits",
			"Max number of commits to process (0 means all).",
		).Default("0").Short('m').Int()
		squash = kingpin.Flag(
			"squash",
			"Squash commits, leaving branch points and merges only.",
		).Short('s').Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Default("0").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Author("cvsup")
	kingpin.CommandLine.Help = "Renders a fast-import stream's commit graph as a graphviz DOT file.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	startTime := time.Now()
	logger.Infof("Starting %s, import: %v", startTime, *importFile)

	g := NewGrapher(logger, graphOptions{
		importFile:  *importFile,
		graphFile:   *outputGraph,
		firstCommit: *firstCommit,
		lastCommit:  *lastCommit,
		maxCommits:  *maxCommits,
		squash:      *squash,
	})
	g.graph = dot.NewGraph(dot.Directed)
	if err := g.Parse(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	f, err := os.OpenFile(g.opts.graphFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer f.Close()
	f.Write([]byte(g.graph.String()))
	logger.Infof("Output file: %s", g.opts.graphFile)
}
