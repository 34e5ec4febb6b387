// Package patcher rewrites a located function span with replacement text.
// It is purely text to text: the engine owns reading and atomic write-back,
// so a failed patch can never leave a half-written file behind.
package patcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itayg2341/jansson/internal/locator"
	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/source"
)

// Error is a patch failure with enough context to report which file and
// which anchor failed, and why.
type Error struct {
	PatchID string
	File    string
	Reason  model.PatchReason
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch %s on %s: %s: %v", e.PatchID, e.File, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failure(spec model.PatchSpec, reason model.PatchReason, err error) *Error {
	return &Error{PatchID: spec.ID, File: spec.TargetFile, Reason: reason, Err: err}
}

// Apply computes the patched content for one file. The input is returned
// untouched alongside a non-nil *Error when the patch cannot be applied.
// Applying the same spec to already-patched content fails with the
// already-patched reason: the anchor describing the original function no
// longer exists, and the replacement is already present.
func Apply(text string, spec model.PatchSpec) (string, model.Span, *Error) {
	if spec.Replacement == "" {
		return text, model.Span{}, failure(spec, model.ReasonAnchorNotFound,
			errors.New("replacement text is required"))
	}

	span, err := locator.Locate(text, spec.Locator)
	if err != nil {
		switch {
		case errors.Is(err, locator.ErrAmbiguous):
			return text, model.Span{}, failure(spec, model.ReasonAnchorAmbiguous, err)
		case errors.Is(err, locator.ErrNotFound) && alreadyPatched(text, spec.Replacement):
			return text, model.Span{}, failure(spec, model.ReasonAlreadyPatched,
				fmt.Errorf("replacement already present: %w", err))
		case errors.Is(err, locator.ErrNotFound):
			return text, model.Span{}, failure(spec, model.ReasonAnchorNotFound, err)
		default:
			return text, model.Span{}, failure(spec, model.ReasonAnchorNotFound, err)
		}
	}

	var patched string
	switch spec.Locator.Kind {
	case model.LocatorExact:
		// The locator proved the anchor occurs exactly once.
		patched = strings.Replace(text, spec.Locator.Anchor, spec.Replacement, 1)
	default:
		patched = spliceLines(text, span, spec.Replacement)
	}

	// A located span whose rewrite changes nothing means the content is
	// already in its patched form; report that instead of claiming a fresh
	// application.
	if patched == text {
		return text, model.Span{}, failure(spec, model.ReasonAlreadyPatched,
			errors.New("content already in patched form"))
	}
	return patched, span, nil
}

// alreadyPatched reports whether the replacement body is already present,
// distinguishing a previously applied patch from an anchor lost to an
// unrelated edit.
func alreadyPatched(text, replacement string) bool {
	return strings.Contains(text, strings.TrimRight(replacement, "\r\n"))
}

// spliceLines replaces the inclusive line range with the replacement text.
// Every byte outside the range is preserved exactly, including terminators
// and a missing final newline. When the replacement lacks a trailing
// terminator but more lines follow, the terminator of the replaced range's
// last line is carried over so the next line stays separate.
func spliceLines(text string, span model.Span, replacement string) string {
	lines := source.SplitLinesKeepEnds(text)
	start := span.StartLine - 1
	end := span.EndLine - 1
	if start < 0 || end >= len(lines) || start > end {
		return text
	}

	var b strings.Builder
	for _, line := range lines[:start] {
		b.WriteString(line)
	}
	b.WriteString(replacement)
	if end+1 < len(lines) && !strings.HasSuffix(replacement, "\n") {
		last := lines[end]
		if strings.HasSuffix(last, "\r\n") {
			b.WriteString("\r\n")
		} else if strings.HasSuffix(last, "\n") {
			b.WriteString("\n")
		}
	}
	for _, line := range lines[end+1:] {
		b.WriteString(line)
	}
	return b.String()
}
