// Package buildinfo inspects a C project's build configuration. It is a
// read-only collaborator: it never edits build files, it only reports which
// build systems are present, what they depend on, and whether the compile
// flags carry any hardening.
package buildinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/itayg2341/jansson/internal/source"
)

// HardeningFlags are the compiler flags whose presence marks a hardened
// build configuration.
var HardeningFlags = []string{
	"-fstack-protector-strong",
	"-D_FORTIFY_SOURCE=2",
	"-fPIE",
	"-Wformat",
	"-Wformat-security",
}

// knownFiles maps build file names to the build system they indicate.
var knownFiles = []struct {
	name   string
	system string
}{
	{"CMakeLists.txt", "CMake"},
	{"configure.ac", "Autotools"},
	{"Makefile.am", "Automake"},
	{"Android.mk", "Android NDK"},
}

var (
	reFindPackage     = regexp.MustCompile(`find_package\(\s*(\w+)`)
	rePkgCheckModules = regexp.MustCompile(`PKG_CHECK_MODULES\([^,]+,\s*([^),\s]+)`)
)

// BuildFile is one recognized build configuration file at the project root.
type BuildFile struct {
	Name   string `json:"name"`
	System string `json:"system"`
	Lines  int    `json:"lines"`

	// HasWarnings reports any -W flag; HasHardening reports a stack
	// protector or FORTIFY_SOURCE definition.
	HasWarnings  bool `json:"has_warnings"`
	HasHardening bool `json:"has_hardening"`
}

// Info is the aggregate build-system picture of one project tree.
type Info struct {
	Systems      []string    `json:"systems"`
	Files        []BuildFile `json:"files"`
	Dependencies []string    `json:"dependencies,omitempty"`

	// FlagPresence records, per hardening flag, whether any build file
	// mentions it.
	FlagPresence map[string]bool `json:"flag_presence"`
}

// Hardened reports whether every hardening flag appears somewhere in the
// build configuration.
func (in Info) Hardened() bool {
	for _, flag := range HardeningFlags {
		if !in.FlagPresence[flag] {
			return false
		}
	}
	return true
}

// Inspect reads the build files at root and returns what they declare.
// A tree with no recognized build file yields an Info with empty Systems,
// not an error.
func Inspect(root string) (Info, error) {
	info := Info{FlagPresence: make(map[string]bool)}
	for _, flag := range HardeningFlags {
		info.FlagPresence[flag] = false
	}

	depSet := make(map[string]struct{})
	for _, kf := range knownFiles {
		path := filepath.Join(root, kf.name)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Info{}, fmt.Errorf("read %s: %w", kf.name, err)
		}
		content := source.DecodePermissive(string(raw))

		bf := BuildFile{
			Name:         kf.name,
			System:       kf.system,
			Lines:        len(source.SplitLinesKeepEnds(content)),
			HasWarnings:  strings.Contains(content, "-W"),
			HasHardening: strings.Contains(content, "-fstack-protector") || strings.Contains(content, "-D_FORTIFY_SOURCE"),
		}
		info.Files = append(info.Files, bf)
		info.Systems = append(info.Systems, kf.system)

		for _, flag := range HardeningFlags {
			if strings.Contains(content, flag) {
				info.FlagPresence[flag] = true
			}
		}
		for _, dep := range extractDependencies(kf.name, content) {
			depSet[dep] = struct{}{}
		}
	}

	for dep := range depSet {
		info.Dependencies = append(info.Dependencies, dep)
	}
	sort.Strings(info.Dependencies)
	return info, nil
}

func extractDependencies(name, content string) []string {
	var deps []string
	switch name {
	case "CMakeLists.txt":
		for _, m := range reFindPackage.FindAllStringSubmatch(content, -1) {
			deps = append(deps, m[1])
		}
	case "configure.ac":
		for _, m := range rePkgCheckModules.FindAllStringSubmatch(content, -1) {
			deps = append(deps, m[1])
		}
	}
	return deps
}
