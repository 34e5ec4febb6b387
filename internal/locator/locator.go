// Package locator finds a function's span inside a file's text without
// parsing C. A span is delimited by a recognizable signature line and a
// closing brace heuristic; the function body is opaque text.
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/source"
)

var (
	// ErrNotFound reports that no span matched the locator. Both strategies
	// fail closed: when unsure, they report not-found rather than guess.
	ErrNotFound = errors.New("function span not found")
	// ErrAmbiguous reports that an exact anchor occurs more than once.
	ErrAmbiguous = errors.New("anchor text is ambiguous")
)

// Locate resolves a locator against file text and returns the matched line
// span. It never mutates or retains the input.
func Locate(text string, loc model.Locator) (model.Span, error) {
	switch loc.Kind {
	case model.LocatorExact:
		return locateExact(text, loc.Anchor)
	case model.LocatorSignature:
		return locateSignature(text, loc.Signature, loc.NextLineContains)
	default:
		return model.Span{}, fmt.Errorf("unsupported locator kind %q", loc.Kind)
	}
}

// locateExact requires the anchor text to occur exactly once, verbatim.
func locateExact(text, anchor string) (model.Span, error) {
	if anchor == "" {
		return model.Span{}, errors.New("exact locator requires an anchor")
	}
	first := strings.Index(text, anchor)
	if first < 0 {
		return model.Span{}, fmt.Errorf("exact anchor: %w", ErrNotFound)
	}
	if strings.Index(text[first+1:], anchor) >= 0 {
		return model.Span{}, fmt.Errorf("exact anchor occurs more than once: %w", ErrAmbiguous)
	}

	startLine := 1 + strings.Count(text[:first], "\n")
	anchorLines := strings.Count(anchor, "\n")
	if !strings.HasSuffix(anchor, "\n") {
		anchorLines++
	}
	return model.Span{StartLine: startLine, EndLine: startLine + anchorLines - 1}, nil
}

// locateSignature finds the first line containing the signature substring,
// then scans forward for the first line that is exactly a closing brace at
// column zero. When nextLineContains is set, the line after the brace must
// contain it; braces failing the gate are skipped. Reaching end of file
// without satisfying the end condition is a hard not-found.
func locateSignature(text, signature, nextLineContains string) (model.Span, error) {
	if strings.TrimSpace(signature) == "" {
		return model.Span{}, errors.New("signature locator requires a signature")
	}

	lines := source.SplitLinesKeepEnds(text)
	start := -1
	for i, raw := range lines {
		if strings.Contains(source.TrimLineEnd(raw), signature) {
			start = i
			break
		}
	}
	if start < 0 {
		return model.Span{}, fmt.Errorf("signature %q: %w", signature, ErrNotFound)
	}

	for i := start + 1; i < len(lines); i++ {
		if source.TrimLineEnd(lines[i]) != "}" {
			continue
		}
		if nextLineContains != "" {
			if i+1 >= len(lines) {
				continue
			}
			if !strings.Contains(source.TrimLineEnd(lines[i+1]), nextLineContains) {
				continue
			}
		}
		return model.Span{StartLine: start + 1, EndLine: i + 1}, nil
	}
	return model.Span{}, fmt.Errorf("no closing brace for signature %q: %w", signature, ErrNotFound)
}
