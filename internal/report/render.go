// Package report renders run results as JSON, Markdown, and SARIF. The
// Markdown output is a project story for humans; the JSON and SARIF outputs
// are for machines and code-scanning backends.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itayg2341/jansson/internal/buildinfo"
	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/safefile"
	"github.com/itayg2341/jansson/internal/source"
)

// Story bundles everything the Markdown report draws from. Run is optional:
// a report generated before any run covers structure and build only.
type Story struct {
	Project string
	Stats   source.Stats
	Build   buildinfo.Info
	Run     *model.RunReport
}

func WriteJSON(path string, run model.RunReport) error {
	b, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	b = append(b, '\n')
	if err := safefile.Replace(path, b); err != nil {
		return fmt.Errorf("write run json: %w", err)
	}
	return nil
}

func WriteMarkdown(path string, story Story) error {
	if err := safefile.Replace(path, []byte(RenderMarkdown(story))); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}

func RenderMarkdown(story Story) string {
	var b bytes.Buffer

	project := story.Project
	if project == "" {
		project = "project"
	}
	fmt.Fprintf(&b, "# %s: Source Analysis Report\n\n", project)

	b.WriteString("## Structure\n\n")
	fmt.Fprintf(&b, "- Total files: %d\n", story.Stats.TotalFiles)
	fmt.Fprintf(&b, "- C sources: %d, headers: %d\n", story.Stats.CFiles, story.Stats.Headers)
	fmt.Fprintf(&b, "- Test files: %d, documentation: %d, build files: %d\n",
		story.Stats.TestFiles, story.Stats.DocFiles, story.Stats.BuildFiles)
	fmt.Fprintf(&b, "- Lines of C code: %d across %d functions, %d structs, %d enums, %d macros\n",
		story.Stats.TotalLines, story.Stats.Functions, story.Stats.Structs,
		story.Stats.Enums, story.Stats.Macros)
	if n := len(story.Stats.APIFunctions); n > 0 {
		fmt.Fprintf(&b, "- Public API functions: %d\n", n)
	}
	b.WriteString("\n")

	b.WriteString("## Build System\n\n")
	if len(story.Build.Systems) == 0 {
		b.WriteString("No recognized build configuration found at the project root.\n\n")
	} else {
		fmt.Fprintf(&b, "- Build systems: %s\n", strings.Join(story.Build.Systems, ", "))
		if len(story.Build.Dependencies) > 0 {
			fmt.Fprintf(&b, "- Declared dependencies: %s\n", strings.Join(story.Build.Dependencies, ", "))
		}
		if story.Build.Hardened() {
			b.WriteString("- Hardening: all expected compiler flags present\n")
		} else {
			var missing []string
			for _, flag := range buildinfo.HardeningFlags {
				if !story.Build.FlagPresence[flag] {
					missing = append(missing, flag)
				}
			}
			fmt.Fprintf(&b, "- Hardening: missing %s\n", strings.Join(missing, ", "))
		}
		b.WriteString("\n")
	}

	if story.Run != nil {
		writeRunSections(&b, *story.Run)
	}

	return b.String()
}

func writeRunSections(b *bytes.Buffer, run model.RunReport) {
	b.WriteString("## Findings\n\n")
	if run.FindingCount == 0 {
		b.WriteString("No suspicious patterns detected.\n\n")
	} else {
		byCategory := make(map[model.Category]int)
		for _, fr := range run.Files {
			for _, f := range fr.Findings {
				byCategory[f.Category]++
			}
		}
		fmt.Fprintf(b, "%d finding(s) across %d file(s):\n\n", run.FindingCount, countFilesWithFindings(run))
		for _, c := range model.AllCategories {
			if n := byCategory[c]; n > 0 {
				fmt.Fprintf(b, "- %s: %d\n", c, n)
			}
		}
		b.WriteString("\n")
		for _, fr := range run.Files {
			for _, f := range fr.Findings {
				fmt.Fprintf(b, "- `%s:%d` [%s] %s\n", f.File, f.Line, f.Category, f.MatchedText)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Remediation\n\n")
	if run.AppliedCount == 0 && run.FailedPatches == 0 {
		b.WriteString("No patches were attempted.\n\n")
	} else {
		fmt.Fprintf(b, "%d patch(es) applied, %d failed.\n\n", run.AppliedCount, run.FailedPatches)
		for _, fr := range run.Files {
			for _, pr := range fr.PatchResults {
				if pr.Applied {
					fmt.Fprintf(b, "- `%s` applied to `%s` (lines %d-%d)\n",
						pr.PatchID, pr.File, pr.Span.StartLine, pr.Span.EndLine)
				} else {
					fmt.Fprintf(b, "- `%s` not applied to `%s`: %s\n", pr.PatchID, pr.File, pr.Reason)
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Verification\n\n")
	probes := 0
	failed := 0
	for _, fr := range run.Files {
		for _, v := range fr.Verification {
			probes++
			if !v.Pass {
				failed++
			}
		}
	}
	if probes == 0 {
		b.WriteString("No verification probes were run.\n\n")
	} else {
		fmt.Fprintf(b, "%d of %d probe(s) passed.\n\n", probes-failed, probes)
		for _, fr := range run.Files {
			for _, v := range fr.Verification {
				if v.Pass {
					fmt.Fprintf(b, "- `%s` on `%s`: pass\n", v.ProbeID, v.File)
					continue
				}
				fmt.Fprintf(b, "- `%s` on `%s`: FAIL", v.ProbeID, v.File)
				if v.Error != "" {
					fmt.Fprintf(b, " (error: %s)", v.Error)
				}
				if len(v.MissingMarkers) > 0 {
					fmt.Fprintf(b, " (missing: %s)", strings.Join(v.MissingMarkers, ", "))
				}
				if len(v.ForbiddenMatches) > 0 {
					fmt.Fprintf(b, " (%d forbidden match(es))", len(v.ForbiddenMatches))
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Assessment\n\n")
	b.WriteString(assessment(run))
	b.WriteString("\n")
}

func countFilesWithFindings(run model.RunReport) int {
	n := 0
	for _, fr := range run.Files {
		if len(fr.Findings) > 0 {
			n++
		}
	}
	return n
}

func assessment(run model.RunReport) string {
	switch run.Outcome {
	case model.OutcomeOK:
		if run.AppliedCount > 0 {
			return "All patches applied cleanly and every verification probe passed. The tree is in the expected remediated state."
		}
		return "Every verification probe passed. The tree is already in the expected state; no changes were needed."
	case model.OutcomePatchFailed:
		return "One or more patches could not locate their target. The affected files were left byte-identical; review the anchors against the current source."
	case model.OutcomeWriteFailed:
		return "A patched file could not be written back. The original content is untouched; check filesystem permissions and retry."
	case model.OutcomeVerifyFailed:
		return "Verification failed: at least one expected construct is missing or a forbidden construct is still reachable. Treat the tree as unremediated regardless of patch status."
	default:
		return "The run did not complete normally."
	}
}

// SummaryLine is the one-line wrap-up printed at the end of a run.
func SummaryLine(run model.RunReport) string {
	parts := []string{
		fmt.Sprintf("files=%d", len(run.Files)),
		fmt.Sprintf("findings=%d", run.FindingCount),
		fmt.Sprintf("applied=%d", run.AppliedCount),
	}
	if run.FailedPatches > 0 {
		parts = append(parts, fmt.Sprintf("failed=%d", run.FailedPatches))
	}
	if run.ProbeFailures > 0 {
		parts = append(parts, fmt.Sprintf("probe_failures=%d", run.ProbeFailures))
	}
	return fmt.Sprintf("%s: %s", run.Outcome, strings.Join(parts, " "))
}
