package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// Stats summarizes a source tree for the report generator.
type Stats struct {
	TotalFiles int `json:"total_files"`
	CFiles     int `json:"c_files"`
	Headers    int `json:"header_files"`
	TestFiles  int `json:"test_files"`
	DocFiles   int `json:"documentation_files"`
	BuildFiles int `json:"build_files"`

	TotalLines int `json:"total_lines"`
	Functions  int `json:"functions"`
	Structs    int `json:"structs"`
	Enums      int `json:"enums"`
	Macros     int `json:"macros"`

	APIFunctions []string `json:"api_functions,omitempty"`
}

var (
	reFunctionDef = regexp.MustCompile(`(?m)^\w+\s+\w+\s*\([^)]*\)\s*\{`)
	reStructDef   = regexp.MustCompile(`struct\s+\w+\s*\{`)
	reEnumDef     = regexp.MustCompile(`enum\s+\w+\s*\{`)
	reMacroDef    = regexp.MustCompile(`(?m)^#define\s+\w+`)
	reDeclaration = regexp.MustCompile(`(?m)^(\w+\s+\w+\s*\([^)]*\))`)
)

// CollectStats walks the whole tree (not only scannable extensions) and
// classifies files the way the report expects. apiPrefix filters which
// header declarations count as public API; empty keeps them all.
func CollectStats(root string, apiPrefix string) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		stats.TotalFiles++
		lower := strings.ToLower(name)
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		switch {
		case ext == "c":
			stats.CFiles++
		case ext == "h" || ext == "hpp":
			stats.Headers++
		case strings.Contains(lower, "test") || strings.Contains(strings.ToLower(filepath.Dir(path)), "test"):
			stats.TestFiles++
		case ext == "md" || ext == "rst" || ext == "txt":
			stats.DocFiles++
		case ext == "am" || ext == "ac" || ext == "cmake" || ext == "mk":
			stats.BuildFiles++
		}

		if ext != "c" && ext != "h" && ext != "hpp" {
			return nil
		}

		text, readErr := ReadText(path)
		if readErr != nil {
			return readErr
		}
		content := DecodePermissive(text)
		stats.TotalLines += len(SplitLinesKeepEnds(content))

		if ext == "c" {
			stats.Functions += len(reFunctionDef.FindAllString(content, -1))
			stats.Structs += len(reStructDef.FindAllString(content, -1))
			stats.Enums += len(reEnumDef.FindAllString(content, -1))
			stats.Macros += len(reMacroDef.FindAllString(content, -1))
			return nil
		}

		for _, m := range reDeclaration.FindAllString(content, -1) {
			decl := strings.TrimSpace(m)
			if apiPrefix == "" || strings.Contains(decl, apiPrefix) {
				stats.APIFunctions = append(stats.APIFunctions, decl)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}
