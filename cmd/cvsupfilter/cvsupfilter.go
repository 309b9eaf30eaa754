package main

// cvsupfilter streams a fast-import file cvsup itself produced and
// rewrites it: optionally stripping blob contents down to a placeholder
// (for a fast dry-run shape check of a huge conversion) and rewriting
// branch refs through config.BranchMappings. While doing so it tracks
// each branch's current file tree (package node) purely as a sanity
// check: a D for a path the tree doesn't have is logged as a warning,
// since it usually means the upstream stream is malformed.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	libfastimport "github.com/rcowham/go-libgitfastimport"

	"github.com/cvsup/cvsup/config"
	"github.com/cvsup/cvsup/node"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Options configures one filtering run.
type Options struct {
	InputFile  string
	OutputFile string
	ConfigFile string
	StripBlobs bool
	RenameRefs bool
}

// Filter applies Options to a fast-import stream.
type Filter struct {
	logger *logrus.Logger
	cfg    *config.Config
	opts   Options

	filesOnBranch map[string]*node.Tree // current tree per branch, for the consistency check

	testInput  string
	testOutput *strings.Builder
}

// New returns a Filter ready to run.
func New(logger *logrus.Logger, cfg *config.Config, opts Options) *Filter {
	return &Filter{
		logger:        logger,
		cfg:           cfg,
		opts:          opts,
		filesOnBranch: make(map[string]*node.Tree),
	}
}

func branchOf(ref string) string {
	ref = strings.Replace(ref, "refs/heads/", "", 1)
	if strings.HasPrefix(ref, "refs/tags") || strings.HasPrefix(ref, "refs/remote") {
		return ""
	}
	return ref
}

func (f *Filter) trackOp(branch string, cmd interface{}) {
	tree, ok := f.filesOnBranch[branch]
	if !ok {
		tree = node.NewTree("")
		f.filesOnBranch[branch] = tree
	}
	switch op := cmd.(type) {
	case libfastimport.FileModify:
		tree.AddFile(op.Path.String())
	case libfastimport.FileDelete:
		if !tree.FindFile(op.Path.String()) {
			f.logger.Warnf("cvsupfilter: delete of untracked path %q on branch %q", op.Path.String(), branch)
		}
		tree.DeleteFile(op.Path.String())
	}
}

// Run streams InputFile (or testInput, for tests) to OutputFile (or
// testOutput), applying the configured rewrites.
func (f *Filter) Run() error {
	var in io.Reader
	if f.testInput != "" {
		in = strings.NewReader(f.testInput)
	} else {
		file, err := os.Open(f.opts.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.opts.InputFile, err)
		}
		defer file.Close()
		in = bufio.NewReader(file)
	}

	var out io.Writer
	var outFile *os.File
	if f.testOutput != nil {
		out = f.testOutput
	} else {
		var err error
		outFile, err = os.Create(f.opts.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.opts.OutputFile, err)
		}
		defer outFile.Close()
		bw := bufio.NewWriter(outFile)
		defer bw.Flush()
		out = bw
	}

	frontend := libfastimport.NewFrontend(in, nil, nil)
	backend := libfastimport.NewBackend(out, nil, nil)

	currentBranch := ""
	for {
		cmd, err := frontend.ReadCmd()
		if err != nil {
			if err != io.EOF {
				f.logger.Errorf("cvsupfilter: read error: %v", err)
				return err
			}
			break
		}
		switch c := cmd.(type) {
		case libfastimport.CmdBlob:
			if f.opts.StripBlobs {
				c.Data = fmt.Sprintf("%d\n", c.Mark)
			}
			backend.Do(c)

		case libfastimport.CmdReset:
			if f.opts.RenameRefs && strings.HasPrefix(c.RefName, "refs/heads/") {
				c.RefName = "refs/heads/" + f.cfg.RewriteBranch(branchOf(c.RefName))
			}
			backend.Do(c)

		case libfastimport.CmdCommit:
			currentBranch = branchOf(c.Ref)
			if f.opts.RenameRefs {
				c.Ref = "refs/heads/" + f.cfg.RewriteBranch(currentBranch)
			}
			backend.Do(c)

		case libfastimport.FileModify:
			f.trackOp(currentBranch, c)
			backend.Do(c)

		case libfastimport.FileDelete:
			f.trackOp(currentBranch, c)
			backend.Do(c)

		case libfastimport.CmdTag:
			if f.opts.RenameRefs {
				c.RefName = f.cfg.RewriteBranch(c.RefName)
			}
			backend.Do(c)

		default:
			backend.Do(cmd)
		}
	}
	return nil
}

func main() {
	var (
		input = kingpin.Arg(
			"input",
			"Fast-import file cvsup produced.",
		).Required().String()
		output = kingpin.Arg(
			"output",
			"Fast-import file to write.",
		).Required().String()
		configFile = kingpin.Flag(
			"config",
			"Config file (for branch_mappings).",
		).Short('c').String()
		stripBlobs = kingpin.Flag(
			"strip-blobs",
			"Replace blob contents with their mark number, for a fast dry-run shape check.",
		).Bool()
		rename = kingpin.Flag(
			"rename",
			"Rewrite branch refs through branch_mappings.",
		).Short('r').Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Author("cvsup")
	kingpin.CommandLine.Help = "Post-processes a cvsup fast-import stream: strips blobs and/or rewrites branch refs.\n"
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

	startTime := time.Now()
	logger.Infof("Starting %s, input: %s", startTime, *input)

	f := New(logger, cfg, Options{
		InputFile:  *input,
		OutputFile: *output,
		ConfigFile: *configFile,
		StripBlobs: *stripBlobs,
		RenameRefs: *rename,
	})
	if err := f.Run(); err != nil {
		logger.Errorf("cvsupfilter: %v", err)
		os.Exit(1)
	}
	logger.Infof("Output file: %s", *output)
}
