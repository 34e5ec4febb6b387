// Package engine sequences Scan -> Patch -> Verify over a source tree.
// Files are processed one at a time in lexical path order, and each file's
// pipeline completes before the next file starts, so an interrupted run
// leaves every file either fully handled or untouched. The filesystem is
// the only state shared between runs; nothing persists in process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/patcher"
	"github.com/itayg2341/jansson/internal/plan"
	"github.com/itayg2341/jansson/internal/progress"
	"github.com/itayg2341/jansson/internal/safefile"
	"github.com/itayg2341/jansson/internal/scanner"
	"github.com/itayg2341/jansson/internal/source"
	"github.com/itayg2341/jansson/internal/verifier"
)

// Options configures a run. Stages can be toggled so the scan, patch, and
// verify commands share one driver; a full run enables all three.
type Options struct {
	Root string
	Plan plan.Plan

	Scan   bool
	Patch  bool
	Verify bool

	Sink   progress.Sink
	Logger hclog.Logger
}

// Run executes the pipeline and returns the structured run report. Per-file
// errors are contained: the run continues to the next file and the report's
// outcome reflects the worst result seen. Two concurrent runs against the
// same tree are not supported; callers must serialize.
func Run(ctx context.Context, opts Options) (model.RunReport, error) {
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("resolve root: %w", err)
	}

	files, err := collectFiles(root, opts)
	if err != nil {
		return model.RunReport{}, err
	}

	report := model.RunReport{
		Root:        root,
		GeneratedAt: time.Now().UTC(),
		Outcome:     model.OutcomeOK,
	}
	opts.Sink.Emit(progress.Event{Type: progress.EventRunStarted, Files: len(files)})

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fr := runFile(root, file, opts)
		report.Files = append(report.Files, fr)

		report.FindingCount += len(fr.Findings)
		for _, pr := range fr.PatchResults {
			switch {
			case pr.Applied:
				report.AppliedCount++
			case pr.Reason == model.ReasonAlreadyPatched:
				// Idempotent no-op, not a failure.
			case pr.Reason == model.ReasonWriteFailed:
				report.FailedPatches++
				report.Outcome = report.Outcome.Worse(model.OutcomeWriteFailed)
			default:
				report.FailedPatches++
				report.Outcome = report.Outcome.Worse(model.OutcomePatchFailed)
			}
		}
		for _, v := range fr.Verification {
			if !v.Pass {
				report.ProbeFailures++
				report.Outcome = report.Outcome.Worse(model.OutcomeVerifyFailed)
			}
		}
	}

	opts.Sink.Emit(progress.Event{Type: progress.EventRunFinished, Message: string(report.Outcome)})
	return report, nil
}

// collectFiles merges discovered source files with the plan's targets and
// returns relative slash paths in lexical order.
func collectFiles(root string, opts Options) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(rel string) {
		rel = filepath.ToSlash(rel)
		if _, ok := seen[rel]; ok {
			return
		}
		seen[rel] = struct{}{}
		files = append(files, rel)
	}

	if opts.Scan {
		discovered, err := source.Discover(root, source.DefaultExtensions)
		if err != nil {
			return nil, err
		}
		for _, rel := range discovered {
			add(rel)
		}
	}
	if opts.Patch || opts.Verify {
		for _, rel := range opts.Plan.TargetFiles() {
			add(rel)
		}
	}

	sort.Strings(files)
	return files, nil
}

// runFile drives one file through the state machine
// Unscanned -> Scanned -> PatchAttempted -> Verified. Verification always
// runs, even when every patch failed: the run must surface the true end
// state of the file rather than trust the patcher.
func runFile(root, file string, opts Options) model.FileReport {
	fr := model.FileReport{File: file, Status: model.StatusUnscanned}
	abs := filepath.Join(root, filepath.FromSlash(file))
	log := opts.Logger.With("file", file)

	opts.Sink.Emit(progress.Event{Type: progress.EventFileStarted, File: file, Status: fr.Status})

	text, readErr := source.ReadText(abs)
	missing := errors.Is(readErr, fs.ErrNotExist)

	if opts.Scan {
		if readErr != nil {
			fr.Errors = append(fr.Errors, readErr.Error())
		} else {
			fr.Findings = scanner.ScanAll(file, text, scanner.Options{AllowList: opts.Plan.AllowList})
			fr.Status = model.StatusScanned
			log.Debug("scanned", "findings", len(fr.Findings))
			opts.Sink.Emit(progress.Event{
				Type: progress.EventFileScanned, File: file,
				Status: fr.Status, Findings: len(fr.Findings),
			})
		}
	}

	if opts.Patch {
		if specs := opts.Plan.PatchesFor(file); len(specs) > 0 {
			fr = patchFile(fr, abs, text, specs, missing, readErr, opts, log)
		}
	}

	if opts.Verify {
		if probes := opts.Plan.ProbesFor(file); len(probes) > 0 {
			fr = verifyFile(fr, abs, probes, opts, log)
		} else if fr.Status == model.StatusPatchAttempted {
			// No probe covers the file; the state machine still completes.
			fr.Status = model.StatusVerified
		}
	}

	return fr
}

func patchFile(fr model.FileReport, abs, text string, specs []model.PatchSpec, missing bool, readErr error, opts Options, log hclog.Logger) model.FileReport {
	fr.Status = model.StatusPatchAttempted

	if readErr != nil {
		reason := model.ReasonTargetMissing
		if !missing {
			reason = model.ReasonReadFailed
		}
		for _, spec := range specs {
			fr.PatchResults = append(fr.PatchResults, model.PatchResult{
				PatchID: spec.ID,
				File:    spec.TargetFile,
				Applied: false,
				Reason:  reason,
				Detail:  readErr.Error(),
			})
			opts.Sink.Emit(progress.Event{
				Type: progress.EventPatchSkipped, File: fr.File,
				PatchID: spec.ID, Reason: string(reason),
			})
		}
		fr.Errors = append(fr.Errors, readErr.Error())
		return fr
	}

	// All patches for the file are computed in memory first; the file is
	// rewritten once, and only when at least one patch produced new content.
	current := text
	applied := 0
	var results []model.PatchResult
	for _, spec := range specs {
		before := source.Fingerprint(current)
		next, span, applyErr := patcher.Apply(current, spec)
		result := model.PatchResult{
			PatchID:    spec.ID,
			File:       spec.TargetFile,
			BeforeHash: before,
			AfterHash:  source.Fingerprint(next),
		}
		if applyErr != nil {
			result.Reason = applyErr.Reason
			result.Detail = applyErr.Err.Error()
			log.Warn("patch not applied", "patch", spec.ID, "reason", applyErr.Reason)
			opts.Sink.Emit(progress.Event{
				Type: progress.EventPatchSkipped, File: fr.File,
				PatchID: spec.ID, Reason: string(applyErr.Reason),
			})
		} else {
			result.Applied = true
			result.Span = &span
			applied++
			current = next
			log.Info("patch applied", "patch", spec.ID, "lines", fmt.Sprintf("%d-%d", span.StartLine, span.EndLine))
			opts.Sink.Emit(progress.Event{Type: progress.EventPatchApplied, File: fr.File, PatchID: spec.ID})
		}
		results = append(results, result)
	}

	if applied > 0 {
		if err := safefile.Replace(abs, []byte(current)); err != nil {
			// The original file is untouched; downgrade every applied
			// result so the report reflects what is actually on disk.
			for i := range results {
				if results[i].Applied {
					results[i].Applied = false
					results[i].Reason = model.ReasonWriteFailed
					results[i].Detail = err.Error()
					results[i].Span = nil
				}
			}
			fr.Errors = append(fr.Errors, fmt.Sprintf("write back: %v", err))
			log.Error("write back failed", "error", err)
		}
	}

	fr.PatchResults = append(fr.PatchResults, results...)
	return fr
}

func verifyFile(fr model.FileReport, abs string, probes []model.Probe, opts Options, log hclog.Logger) model.FileReport {
	// Verification re-reads from disk on purpose: it must observe what a
	// later build would see, not the patcher's in-memory buffer.
	text, err := source.ReadText(abs)
	if err != nil {
		// An unreadable file cannot be verified; every probe fails so the
		// unknown state reaches the run outcome instead of reading as clean.
		fr.Errors = append(fr.Errors, err.Error())
		log.Error("verification read failed", "error", err)
		for _, probe := range probes {
			fr.Verification = append(fr.Verification, model.VerificationOutcome{
				ProbeID: probe.ID, File: probe.File, Error: err.Error(),
			})
		}
		fr.Status = model.StatusVerified
		opts.Sink.Emit(progress.Event{
			Type: progress.EventFileVerified, File: fr.File,
			Status: fr.Status, ProbePass: false,
		})
		return fr
	}

	pass := true
	for _, probe := range probes {
		// Plan-wide allow list entries apply to every probe.
		probe.AllowList = append(probe.AllowList, opts.Plan.AllowList...)
		outcome, verr := verifier.Verify(text, probe)
		if verr != nil {
			fr.Errors = append(fr.Errors, verr.Error())
			outcome = model.VerificationOutcome{
				ProbeID: probe.ID, File: probe.File, Error: verr.Error(),
			}
		}
		if !outcome.Pass {
			pass = false
			log.Warn("probe failed", "probe", probe.ID,
				"missing", len(outcome.MissingMarkers), "forbidden", len(outcome.ForbiddenMatches))
		}
		fr.Verification = append(fr.Verification, outcome)
	}
	fr.Status = model.StatusVerified
	opts.Sink.Emit(progress.Event{
		Type: progress.EventFileVerified, File: fr.File,
		Status: fr.Status, ProbePass: pass,
	})
	return fr
}
