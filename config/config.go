package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	yaml "gopkg.in/yaml.v2"
)

// DefaultBranch is the default value of Config.DefaultBranch. The
// conversion does not consult it: output branches take their names from
// the masters' own branch records.
const DefaultBranch = "main"

// DefaultCommitWindow is the similarity-relation time window (seconds)
// the Branch Collator uses when no config value overrides it.
const DefaultCommitWindow = int64(300)

// BranchMapping rewrites a matching CVS branch/tag name by prepending
// Prefix, the way cmd/cvsupfilter rewrites refs in an already-emitted
// fast-import stream.
type BranchMapping struct {
	Name   string `yaml:"name"`   // regex matched against the branch name
	Prefix string `yaml:"prefix"` // prepended to matching branch names
}

// FileKind classifies a path as text or binary, standing in for CVS's
// own per-file -kb (binary) RCS flag.
type FileKind int

const (
	KindText FileKind = iota
	KindBinary
)

// RegexpTypeMap is one compiled entry of Config.TypeMaps.
type RegexpTypeMap struct {
	Kind   FileKind
	RePath *regexp.Regexp
}

// Config is cvsup's own YAML configuration, independent of the
// authormap text format (authormap.Map), which follows a different,
// externally-standardized grammar.
type Config struct {
	DefaultBranch  string          `yaml:"default_branch"`
	AuthorMapFile  string          `yaml:"author_map"`
	CommitWindow   int64           `yaml:"commit_window"` // seconds; see collate.Policy.Window
	TrustCommitIDs bool            `yaml:"trust_commit_ids"`
	BranchMappings []BranchMapping `yaml:"branch_mappings"`
	TypeMaps       []string        `yaml:"typemaps"`
	ReTypeMaps     []RegexpTypeMap
}

// Unmarshal parses config into a Config, filling in defaults first.
func Unmarshal(config []byte) (*Config, error) {
	cfg := &Config{
		DefaultBranch: DefaultBranch,
		CommitWindow:  DefaultCommitWindow,
		ReTypeMaps:    make([]RegexpTypeMap, 0),
	}
	if err := yaml.Unmarshal(config, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters (like match patterns)", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads and parses a YAML config file.
func LoadConfigFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := LoadConfigString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

// LoadConfigString parses config content already read into memory.
func LoadConfigString(content []byte) (*Config, error) {
	return Unmarshal(content)
}

func (c *Config) validate() error {
	if len(c.BranchMappings) > 0 {
		for _, m := range c.BranchMappings {
			if _, err := regexp.Compile(m.Name); err != nil {
				return fmt.Errorf("failed to parse '%s' as a regex", m.Name)
			}
		}
	}
	if len(c.TypeMaps) > 0 {
		for _, m := range c.TypeMaps {
			parts := strings.Fields(m)
			if len(parts) != 2 {
				return fmt.Errorf("failed to split '%s' on a space", m)
			}
			ftype := parts[0]
			reStr := parts[1]
			if !strings.Contains(ftype, "binary") && !strings.Contains(ftype, "text") {
				return fmt.Errorf("typemaps must contain either 'binary' or 'text' in first part: %s", m)
			}
			reStr = strings.ReplaceAll(reStr, "...", ".*")
			reStr += "$"
			rePath, err := regexp.Compile(reStr)
			if err != nil {
				return fmt.Errorf("failed to parse '%s' as a regex", reStr)
			}
			kind := KindText
			if strings.Contains(ftype, "binary") {
				kind = KindBinary
			}
			c.ReTypeMaps = append(c.ReTypeMaps, RegexpTypeMap{Kind: kind, RePath: rePath})
		}
	}
	return nil
}

// ClassifyPath returns the FileKind of the first typemap regex matching
// path. ok is false when nothing matched, so the caller should fall back
// to ClassifyContent.
func (c *Config) ClassifyPath(path string) (kind FileKind, ok bool) {
	for _, m := range c.ReTypeMaps {
		if m.RePath.MatchString(path) {
			return m.Kind, true
		}
	}
	return KindText, false
}

// ClassifyContent sniffs sample - a file revision's leading bytes - via
// h2non/filetype, the fallback cvs-fast-export itself needs once a
// path's typemap regexes are exhausted without a match.
func ClassifyContent(sample []byte) FileKind {
	if len(sample) > 261 {
		sample = sample[:261]
	}
	if filetype.IsImage(sample) || filetype.IsVideo(sample) || filetype.IsArchive(sample) || filetype.IsAudio(sample) {
		return KindBinary
	}
	if kind, err := filetype.Match(sample); err == nil && kind != filetype.Unknown {
		return KindBinary
	}
	return KindText
}

// Classify combines ClassifyPath and ClassifyContent: an explicit
// typemap regex always wins, content sniffing decides otherwise.
func (c *Config) Classify(path string, sample []byte) FileKind {
	if kind, ok := c.ClassifyPath(path); ok {
		return kind
	}
	return ClassifyContent(sample)
}

// RewriteBranch applies the first matching BranchMapping's prefix to
// name, used by cmd/cvsupfilter to rename refs in an already-emitted
// fast-import stream. Returns name unchanged if nothing matches.
func (c *Config) RewriteBranch(name string) string {
	for _, m := range c.BranchMappings {
		re, err := regexp.Compile(m.Name)
		if err != nil {
			continue
		}
		if re.MatchString(name) {
			return m.Prefix + name
		}
	}
	return name
}
