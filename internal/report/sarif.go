package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/version"
)

const toolName = "redress"
const toolURI = "https://github.com/itayg2341/jansson"

// BuildSARIF converts a run report to SARIF 2.1.0 for code-scanning uploads.
// Findings become one result each under a per-category rule; failed probes
// become error-level results under a per-probe rule, so a verification
// failure is visible in the same place the findings are.
func BuildSARIF(run model.RunReport) (*sarif.Report, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("create sarif report: %w", err)
	}

	sr := sarif.NewRunWithInformationURI(toolName, toolURI)
	sr.Tool.Driver.WithVersion(version.Version)

	for _, fr := range run.Files {
		for _, f := range fr.Findings {
			rule := sr.AddRule(string(f.Category)).
				WithDescription(categoryDescription(f.Category)).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: categoryLevel(f.Category),
				})

			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File)).
					WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
			)
			message := f.Detail
			if message == "" {
				message = f.MatchedText
			}
			sr.AddResult(sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(message)).
				WithLevel(categoryLevel(f.Category)).
				WithLocations([]*sarif.Location{location}))
		}

		for _, v := range fr.Verification {
			if v.Pass {
				continue
			}
			ruleID := "probe/" + v.ProbeID
			rule := sr.AddRule(ruleID).
				WithDescription("verification probe " + v.ProbeID).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "error"})

			locations := []*sarif.Location{
				sarif.NewLocation().WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(v.File)),
				),
			}
			for _, fm := range v.ForbiddenMatches {
				locations = append(locations, sarif.NewLocation().WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(v.File)).
						WithRegion(sarif.NewRegion().WithStartLine(fm.Line)),
				))
			}
			sr.AddResult(sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(probeMessage(v))).
				WithLevel("error").
				WithLocations(locations))
		}
	}

	doc.AddRun(sr)
	return doc, nil
}

// WriteSARIF renders the run report as pretty-printed SARIF to w.
func WriteSARIF(w io.Writer, run model.RunReport) error {
	doc, err := BuildSARIF(run)
	if err != nil {
		return err
	}
	if err := doc.PrettyWrite(w); err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}
	return nil
}

func categoryDescription(c model.Category) string {
	switch c {
	case model.CategoryUnsafeCall:
		return "call to an unbounded string function"
	case model.CategoryUncheckedAllocation:
		return "allocation in a file with no matching release"
	case model.CategoryOverflowRisk:
		return "size_t arithmetic that may overflow"
	default:
		return string(c)
	}
}

func categoryLevel(c model.Category) string {
	if c == model.CategoryUnsafeCall {
		return "error"
	}
	return "warning"
}

func probeMessage(v model.VerificationOutcome) string {
	switch {
	case len(v.MissingMarkers) > 0 && len(v.ForbiddenMatches) > 0:
		return fmt.Sprintf("probe %s failed: %d expected marker(s) missing, %d forbidden match(es)",
			v.ProbeID, len(v.MissingMarkers), len(v.ForbiddenMatches))
	case len(v.MissingMarkers) > 0:
		return fmt.Sprintf("probe %s failed: expected marker %q not found", v.ProbeID, v.MissingMarkers[0])
	case len(v.ForbiddenMatches) > 0:
		return fmt.Sprintf("probe %s failed: forbidden pattern %q at line %d",
			v.ProbeID, v.ForbiddenMatches[0].Pattern, v.ForbiddenMatches[0].Line)
	case v.Error != "":
		return fmt.Sprintf("probe %s could not run: %s", v.ProbeID, v.Error)
	default:
		return fmt.Sprintf("probe %s failed", v.ProbeID)
	}
}
