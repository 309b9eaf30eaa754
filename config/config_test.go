package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const defaultConfig = `
default_branch:		main
author_map:		authors.txt
trust_commit_ids:	true
branch_mappings:
typemaps:
`

func checkValue(t *testing.T, fieldname string, val string, expected string) {
	if val != expected {
		t.Fatalf("Error parsing %s, expected '%v' got '%v'", fieldname, expected, val)
	}
}

func TestValidConfig(t *testing.T) {
	cfg := loadOrFail(t, defaultConfig)
	checkValue(t, "DefaultBranch", cfg.DefaultBranch, "main")
	checkValue(t, "AuthorMapFile", cfg.AuthorMapFile, "authors.txt")
	assert.True(t, cfg.TrustCommitIDs)
	assert.Empty(t, cfg.BranchMappings)
}

func TestEmptyConfig(t *testing.T) {
	cfg := loadOrFail(t, "")
	checkValue(t, "DefaultBranch", cfg.DefaultBranch, "main")
	assert.Equal(t, DefaultCommitWindow, cfg.CommitWindow)
	assert.False(t, cfg.TrustCommitIDs)
	assert.Empty(t, cfg.BranchMappings)
}

func TestMap1(t *testing.T) {
	const config = `
branch_mappings:
- name: 	main
  prefix:
`
	cfg := loadOrFail(t, config)
	checkValue(t, "DefaultBranch", cfg.DefaultBranch, "main")
	assert.Equal(t, 1, len(cfg.BranchMappings))
	assert.Equal(t, "main", cfg.BranchMappings[0].Name)
}

func TestMap2(t *testing.T) {
	const config = `
branch_mappings:
- name: 	main.*
  prefix:	legacy-
`
	cfg := loadOrFail(t, config)
	assert.Equal(t, 1, len(cfg.BranchMappings))
	assert.Equal(t, "main.*", cfg.BranchMappings[0].Name)
	assert.Equal(t, "legacy-", cfg.BranchMappings[0].Prefix)
	assert.Equal(t, "legacy-maintenance", cfg.RewriteBranch("maintenance"))
	assert.Equal(t, "trunk", cfg.RewriteBranch("trunk"))
}

func TestTypeMap1(t *testing.T) {
	const config = `
typemaps:
- text  //....txt
- binary  //....bin
`
	cfg := loadOrFail(t, config)
	assert.Equal(t, 0, len(cfg.BranchMappings))
	assert.Equal(t, 2, len(cfg.TypeMaps))
	assert.Equal(t, "text  //....txt", cfg.TypeMaps[0])
	assert.Equal(t, "binary  //....bin", cfg.TypeMaps[1])
	assert.True(t, cfg.ReTypeMaps[0].RePath.MatchString("//some/file.txt"))
	assert.True(t, cfg.ReTypeMaps[0].RePath.MatchString("//some/fredtxt"))
	assert.False(t, cfg.ReTypeMaps[0].RePath.MatchString("//some/fred.txt1"))
	assert.False(t, cfg.ReTypeMaps[0].RePath.MatchString("//some/fred.bin"))
	assert.True(t, cfg.ReTypeMaps[1].RePath.MatchString("//file.bin"))
	assert.True(t, cfg.ReTypeMaps[1].RePath.MatchString("//some/file.bin"))

	kind, ok := cfg.ClassifyPath("//some/file.bin")
	assert.True(t, ok)
	assert.Equal(t, KindBinary, kind)

	kind, ok = cfg.ClassifyPath("//some/file.txt")
	assert.True(t, ok)
	assert.Equal(t, KindText, kind)

	_, ok = cfg.ClassifyPath("//some/file.unmapped")
	assert.False(t, ok)
}

func TestTypeMap2(t *testing.T) {
	const config = `
typemaps:
- text	//....txt
- binary	"//....bin"
`
	cfg := loadOrFail(t, config)
	assert.Equal(t, 0, len(cfg.BranchMappings))
	assert.Equal(t, 2, len(cfg.TypeMaps))
	assert.Equal(t, "text	//....txt", cfg.TypeMaps[0])
	assert.Equal(t, "binary	\"//....bin\"", cfg.TypeMaps[1])
}

func TestRegex(t *testing.T) {
	const config = `
branch_mappings:
- name: 	main.*[
  prefix:	fred
`
	_, err := Unmarshal([]byte(config))
	if err == nil {
		t.Fatalf("Expected regex error not seen")
	}
}

func TestClassifyContentFallsBackToText(t *testing.T) {
	assert.Equal(t, KindText, ClassifyContent([]byte("plain text content\n")))
}

func ensureFail(t *testing.T, cfgString string, desc string) {
	_, err := Unmarshal([]byte(cfgString))
	if err == nil {
		t.Fatalf("Expected config err not found: %s", desc)
	}
	t.Logf("Config err: %v", err.Error())
}

func loadOrFail(t *testing.T, cfgString string) *Config {
	cfg, err := Unmarshal([]byte(cfgString))
	if err != nil {
		t.Fatalf("Failed to read config: %v", err.Error())
	}
	return cfg
}
