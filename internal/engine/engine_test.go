package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/plan"
	"github.com/itayg2341/jansson/internal/progress"
)

const unsafeSource = `#include <string.h>

void copy_name(char *dest, const char *src) {
    strcpy(dest, src);
}
`

const fixedSource = `#include <string.h>

void copy_name(char *dest, const char *src) {
    strncpy(dest, src, 63);
    dest[63] = '\0';
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func fullPlan() plan.Plan {
	return plan.Plan{
		Patches: []model.PatchSpec{{
			ID:          "copy-name-bounds",
			TargetFile:  "src/name.c",
			Locator:     model.Locator{Kind: model.LocatorExact, Anchor: unsafeSource},
			Replacement: fixedSource,
		}},
		Probes: []model.Probe{{
			ID:              "no-strcpy-in-name",
			File:            "src/name.c",
			ExpectedPresent: []model.Marker{{Pattern: "strncpy"}},
			ExpectedAbsent:  []model.Marker{{Pattern: `\bstrcpy\s*\(`, Kind: model.MarkerRegex}},
		}},
	}
}

func TestRunFullPipeline(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/name.c":  unsafeSource,
		"src/value.c": "int value_size(int n) { return n; }\n",
	})

	report, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(),
		Scan: true, Patch: true, Verify: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != model.OutcomeOK {
		t.Fatalf("outcome = %s, want ok\n%+v", report.Outcome, report)
	}
	if report.Outcome.ExitCode() != 0 {
		t.Fatalf("exit code = %d", report.Outcome.ExitCode())
	}
	if report.FindingCount != 1 || report.AppliedCount != 1 {
		t.Fatalf("counts = findings %d applied %d", report.FindingCount, report.AppliedCount)
	}

	got, err := os.ReadFile(filepath.Join(root, "src", "name.c"))
	if err != nil {
		t.Fatalf("read patched file: %v", err)
	}
	if string(got) != fixedSource {
		t.Fatalf("patched content mismatch:\n%s", got)
	}

	var patched *model.FileReport
	for i := range report.Files {
		if report.Files[i].File == "src/name.c" {
			patched = &report.Files[i]
		}
	}
	if patched == nil {
		t.Fatal("src/name.c missing from report")
	}
	if patched.Status != model.StatusVerified {
		t.Fatalf("status = %s, want verified", patched.Status)
	}
	if len(patched.PatchResults) != 1 || !patched.PatchResults[0].Applied {
		t.Fatalf("patch results = %+v", patched.PatchResults)
	}
	pr := patched.PatchResults[0]
	if pr.BeforeHash == "" || pr.AfterHash == "" || pr.BeforeHash == pr.AfterHash {
		t.Fatalf("hashes = %q -> %q", pr.BeforeHash, pr.AfterHash)
	}
	if len(patched.Verification) != 1 || !patched.Verification[0].Pass {
		t.Fatalf("verification = %+v", patched.Verification)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{"src/name.c": unsafeSource})
	opts := Options{Root: root, Plan: fullPlan(), Scan: true, Patch: true, Verify: true}

	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.AppliedCount != 1 {
		t.Fatalf("first applied = %d", first.AppliedCount)
	}

	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.AppliedCount != 0 {
		t.Fatalf("second applied = %d, want 0", second.AppliedCount)
	}
	if second.Outcome != model.OutcomeOK {
		t.Fatalf("second outcome = %s: already-patched is not a failure", second.Outcome)
	}

	var fr model.FileReport
	for _, f := range second.Files {
		if f.File == "src/name.c" {
			fr = f
		}
	}
	if len(fr.PatchResults) != 1 || fr.PatchResults[0].Reason != model.ReasonAlreadyPatched {
		t.Fatalf("second patch results = %+v", fr.PatchResults)
	}
	if len(fr.Verification) != 1 || !fr.Verification[0].Pass {
		t.Fatalf("second verification = %+v", fr.Verification)
	}
}

func TestRunAnchorMissingLeavesFileUntouched(t *testing.T) {
	drifted := strings.Replace(unsafeSource, "copy_name", "clone_name", 1)
	root := writeTree(t, map[string]string{"src/name.c": drifted})

	report, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(),
		Scan: true, Patch: true, Verify: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(root, "src", "name.c"))
	if string(got) != drifted {
		t.Fatal("file must stay byte-identical when the anchor is missing")
	}

	// Patch failed and the probe still sees strcpy, so verification ranks
	// worst.
	if report.Outcome != model.OutcomeVerifyFailed {
		t.Fatalf("outcome = %s", report.Outcome)
	}
	if report.Outcome.ExitCode() != 3 {
		t.Fatalf("exit code = %d", report.Outcome.ExitCode())
	}
	if report.FailedPatches != 1 || report.ProbeFailures != 1 {
		t.Fatalf("failed = %d probes = %d", report.FailedPatches, report.ProbeFailures)
	}
}

func TestRunMissingTargetFile(t *testing.T) {
	root := writeTree(t, map[string]string{"src/value.c": "int x;\n"})

	report, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(),
		Scan: false, Patch: true, Verify: false,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Files) != 1 || report.Files[0].File != "src/name.c" {
		t.Fatalf("files = %+v", report.Files)
	}
	results := report.Files[0].PatchResults
	if len(results) != 1 || results[0].Reason != model.ReasonTargetMissing {
		t.Fatalf("results = %+v", results)
	}
	if report.Outcome != model.OutcomePatchFailed {
		t.Fatalf("outcome = %s", report.Outcome)
	}
}

func TestRunLexicalOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/zebra.c": "int z;\n",
		"src/alpha.c": "int a;\n",
		"lib/beta.c":  "int b;\n",
	})

	report, err := Run(context.Background(), Options{Root: root, Scan: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var order []string
	for _, fr := range report.Files {
		order = append(order, fr.File)
	}
	if !sort.StringsAreSorted(order) {
		t.Fatalf("files not in lexical order: %v", order)
	}
}

func TestRunScanOnlyDoesNotWrite(t *testing.T) {
	root := writeTree(t, map[string]string{"src/name.c": unsafeSource})

	report, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(), Scan: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FindingCount == 0 {
		t.Fatal("expected findings from scan")
	}
	got, _ := os.ReadFile(filepath.Join(root, "src", "name.c"))
	if string(got) != unsafeSource {
		t.Fatal("scan-only run must not modify files")
	}
}

func TestRunEmitsProgressEvents(t *testing.T) {
	root := writeTree(t, map[string]string{"src/name.c": unsafeSource})

	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	if _, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(),
		Scan: true, Patch: true, Verify: true,
		Sink: sink,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := make(map[progress.EventType]bool)
	for _, e := range events {
		seen[e.Type] = true
	}
	for _, want := range []progress.EventType{
		progress.EventRunStarted,
		progress.EventFileStarted,
		progress.EventFileScanned,
		progress.EventPatchApplied,
		progress.EventFileVerified,
		progress.EventRunFinished,
	} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, events)
		}
	}
}

func TestRunVerifyUnreadableFileFailsProbes(t *testing.T) {
	// No src/name.c on disk. An absent-only probe must not pass just
	// because there is no content to match.
	root := writeTree(t, map[string]string{"src/other.c": "int o;\n"})

	p := plan.Plan{
		Probes: []model.Probe{{
			ID:             "no-strcpy-in-name",
			File:           "src/name.c",
			ExpectedAbsent: []model.Marker{{Pattern: "strcpy("}},
		}},
	}

	report, err := Run(context.Background(), Options{Root: root, Plan: p, Verify: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != model.OutcomeVerifyFailed {
		t.Fatalf("outcome = %s, want verification-failed\n%+v", report.Outcome, report)
	}
	if report.Outcome.ExitCode() != 3 {
		t.Fatalf("exit code = %d, want 3", report.Outcome.ExitCode())
	}
	if report.ProbeFailures != 1 {
		t.Fatalf("probe failures = %d, want 1", report.ProbeFailures)
	}

	var fr model.FileReport
	for _, f := range report.Files {
		if f.File == "src/name.c" {
			fr = f
		}
	}
	if len(fr.Verification) != 1 {
		t.Fatalf("verification = %+v", fr.Verification)
	}
	v := fr.Verification[0]
	if v.Pass {
		t.Fatal("probe on an unreadable file must not pass")
	}
	if v.Error == "" {
		t.Fatalf("outcome should carry the read error: %+v", v)
	}
	if len(fr.Errors) == 0 {
		t.Fatalf("file report should record the read error: %+v", fr)
	}
}

func TestRunPatchReadFailureReason(t *testing.T) {
	// A directory at the target path makes the read fail without ENOENT.
	root := writeTree(t, map[string]string{"src/name.c/unused.txt": "x\n"})

	report, err := Run(context.Background(), Options{
		Root: root, Plan: fullPlan(), Patch: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Files) != 1 {
		t.Fatalf("files = %+v", report.Files)
	}
	results := report.Files[0].PatchResults
	if len(results) != 1 || results[0].Reason != model.ReasonReadFailed {
		t.Fatalf("results = %+v, want reason read-failed", results)
	}
	if report.Outcome != model.OutcomePatchFailed {
		t.Fatalf("outcome = %s", report.Outcome)
	}
}

func TestRunPlanAllowListAppliesToProbes(t *testing.T) {
	vetted := `#include <string.h>

void copy_name(char *dest, const char *src) {
    strcpy(dest, src); /* vetted: dst sized by caller */
}
`
	root := writeTree(t, map[string]string{"src/name.c": vetted})

	p := plan.Plan{
		AllowList: []string{"vetted: dst sized by caller"},
		Probes: []model.Probe{{
			ID:             "no-strcpy-in-name",
			File:           "src/name.c",
			ExpectedAbsent: []model.Marker{{Pattern: "strcpy("}},
		}},
	}

	report, err := Run(context.Background(), Options{Root: root, Plan: p, Verify: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != model.OutcomeOK {
		t.Fatalf("outcome = %s, want ok\n%+v", report.Outcome, report)
	}
	if report.ProbeFailures != 0 {
		t.Fatalf("probe failures = %d", report.ProbeFailures)
	}
}

func TestRunCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"src/name.c": unsafeSource})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Options{Root: root, Scan: true}); err == nil {
		t.Fatal("expected context error")
	}
}
