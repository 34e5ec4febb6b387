// Package verifier re-checks patched files with its own textual probes. The
// probes are authored independently of the patches they confirm, so a patch
// that changed something irrelevant cannot verify itself.
package verifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/source"
)

const maxForbiddenText = 160

type compiledMarker struct {
	marker model.Marker
	regex  *regexp.Regexp
}

// Verify runs one probe against file content. Forbidden patterns are tested
// line by line so the allow list can exempt individual occurrences by
// literal substring containment, which stays valid across reformatting.
func Verify(text string, probe model.Probe) (model.VerificationOutcome, error) {
	present, err := compileMarkers(probe.ExpectedPresent)
	if err != nil {
		return model.VerificationOutcome{}, fmt.Errorf("probe %s: %w", probe.ID, err)
	}
	absent, err := compileMarkers(probe.ExpectedAbsent)
	if err != nil {
		return model.VerificationOutcome{}, fmt.Errorf("probe %s: %w", probe.ID, err)
	}

	content := source.DecodePermissive(text)
	outcome := model.VerificationOutcome{
		ProbeID: probe.ID,
		File:    probe.File,
	}

	for _, m := range present {
		if !matchesContent(m, content) {
			outcome.MissingMarkers = append(outcome.MissingMarkers, m.marker.Pattern)
		}
	}

	lineNo := 0
	for _, raw := range source.SplitLinesKeepEnds(content) {
		lineNo++
		line := source.TrimLineEnd(raw)
		for _, m := range absent {
			if !matchesLine(m, line) {
				continue
			}
			if allowListed(line, probe.AllowList) {
				outcome.AllowedMatches++
				continue
			}
			text := strings.TrimSpace(line)
			if len(text) > maxForbiddenText {
				text = text[:maxForbiddenText] + "..."
			}
			outcome.ForbiddenMatches = append(outcome.ForbiddenMatches, model.ForbiddenMatch{
				Line:    lineNo,
				Pattern: m.marker.Pattern,
				Text:    text,
			})
		}
	}

	outcome.Pass = len(outcome.MissingMarkers) == 0 && len(outcome.ForbiddenMatches) == 0
	return outcome, nil
}

func compileMarkers(markers []model.Marker) ([]compiledMarker, error) {
	out := make([]compiledMarker, 0, len(markers))
	for _, m := range markers {
		if strings.TrimSpace(m.Pattern) == "" {
			return nil, fmt.Errorf("marker with empty pattern")
		}
		item := compiledMarker{marker: m}
		switch m.Kind {
		case model.MarkerRegex:
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile marker %q: %w", m.Pattern, err)
			}
			item.regex = re
		case model.MarkerContains, "":
		default:
			return nil, fmt.Errorf("unsupported marker kind %q", m.Kind)
		}
		out = append(out, item)
	}
	return out, nil
}

func matchesContent(m compiledMarker, content string) bool {
	if m.regex != nil {
		return m.regex.MatchString(content)
	}
	return strings.Contains(content, m.marker.Pattern)
}

func matchesLine(m compiledMarker, line string) bool {
	if m.regex != nil {
		return m.regex.MatchString(line)
	}
	return strings.Contains(line, m.marker.Pattern)
}

func allowListed(line string, allowList []string) bool {
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
