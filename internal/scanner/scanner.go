// Package scanner detects well-known vulnerability patterns in C source
// text. Detection is purely textual: no parsing, no scope resolution, one
// pass over the lines of a file.
package scanner

import (
	"iter"
	"regexp"
	"strings"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/source"
)

const maxMatchedText = 160

// Unsafe C calls flagged unconditionally. Word-bounded so snprintf does not
// count as sprintf.
var reUnsafeCall = regexp.MustCompile(`\b(strcpy|strcat|sprintf|gets)\s*\(`)

// Allocation calls checked against a file-scoped release heuristic.
var reAllocation = regexp.MustCompile(`\b(malloc|calloc)\s*\(`)

// Binary arithmetic over size-typed operands. Over-reports on pointer
// declarations; see the package notes on heuristics.
var reSizeArith = regexp.MustCompile(`[\w)\]]\s*[-+*]\s*[\w(]`)

// Options configures a scan pass.
type Options struct {
	// AllowList entries exempt a line from all category predicates when the
	// line contains the entry as a literal substring.
	AllowList []string
}

// Scan yields findings for one file's content, line by line. The sequence is
// lazy, finite, and restartable: ranging over it twice re-runs the pass. The
// input is decoded permissively, so files with stray non-UTF8 bytes still
// yield findings for their decodable lines.
//
// The unchecked-allocation predicate is file-scoped: an allocation counts as
// unchecked when no release keyword occurs anywhere in the file. This both
// under- and over-reports relative to real control flow and is kept as a
// best-effort lint, never a hard gate.
func Scan(file string, text string, opts Options) iter.Seq[model.Finding] {
	return func(yield func(model.Finding) bool) {
		content := source.DecodePermissive(text)
		hasRelease := strings.Contains(content, "free")

		lineNo := 0
		for _, raw := range source.SplitLinesKeepEnds(content) {
			lineNo++
			line := source.TrimLineEnd(raw)
			if allowed(line, opts.AllowList) {
				continue
			}

			if m := reUnsafeCall.FindString(line); m != "" {
				f := finding(file, lineNo, model.CategoryUnsafeCall, line,
					"call to "+strings.TrimRight(strings.TrimSpace(m), "( \t"))
				if !yield(f) {
					return
				}
			}

			if !hasRelease && reAllocation.MatchString(line) {
				f := finding(file, lineNo, model.CategoryUncheckedAllocation, line,
					"allocation without a matching release anywhere in the file")
				if !yield(f) {
					return
				}
			}

			if strings.Contains(line, "size_t") && reSizeArith.MatchString(line) {
				f := finding(file, lineNo, model.CategoryOverflowRisk, line,
					"arithmetic on size-typed values")
				if !yield(f) {
					return
				}
			}
		}
	}
}

// ScanAll collects the full finding list for one file.
func ScanAll(file string, text string, opts Options) []model.Finding {
	var out []model.Finding
	for f := range Scan(file, text, opts) {
		out = append(out, f)
	}
	return out
}

func allowed(line string, allowList []string) bool {
	for _, entry := range allowList {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(line, entry) {
			return true
		}
	}
	return false
}

func finding(file string, line int, cat model.Category, text, detail string) model.Finding {
	matched := strings.TrimSpace(text)
	if len(matched) > maxMatchedText {
		matched = matched[:maxMatchedText] + "..."
	}
	return model.Finding{
		File:        file,
		Line:        line,
		Category:    cat,
		MatchedText: matched,
		Detail:      detail,
	}
}
