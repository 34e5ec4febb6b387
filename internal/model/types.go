package model

import "time"

type Category string

const (
	CategoryUnsafeCall          Category = "unsafe-call"
	CategoryUncheckedAllocation Category = "unchecked-allocation"
	CategoryOverflowRisk        Category = "overflow-risk"
)

var AllCategories = []Category{
	CategoryUnsafeCall,
	CategoryUncheckedAllocation,
	CategoryOverflowRisk,
}

// Finding is a single detected instance of a suspicious textual pattern.
type Finding struct {
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Category    Category `json:"category"`
	MatchedText string   `json:"matched_text"`
	Detail      string   `json:"detail,omitempty"`
}

// Span is an inclusive 1-based line range inside a file.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

type LocatorKind string

const (
	// LocatorExact matches the complete current text of a function verbatim.
	LocatorExact LocatorKind = "exact"
	// LocatorSignature matches a signature line, then scans forward for a
	// closing brace at column zero.
	LocatorSignature LocatorKind = "signature"
)

// Locator describes how to find one contiguous function span in a file.
// Exactly one strategy is populated.
type Locator struct {
	Kind LocatorKind `yaml:"kind" json:"kind"`

	// Anchor is the verbatim expected text for the exact strategy.
	Anchor string `yaml:"anchor,omitempty" json:"anchor,omitempty"`

	// Signature is the substring identifying the opening line for the
	// signature strategy.
	Signature string `yaml:"signature,omitempty" json:"signature,omitempty"`
	// NextLineContains optionally gates the closing brace: the line after the
	// brace must contain this substring. Disambiguates braces that close
	// nested blocks.
	NextLineContains string `yaml:"next_line_contains,omitempty" json:"next_line_contains,omitempty"`
}

// PatchSpec describes one intended source transformation.
type PatchSpec struct {
	ID          string  `yaml:"id" json:"id"`
	TargetFile  string  `yaml:"file" json:"file"`
	Locator     Locator `yaml:"locator" json:"locator"`
	Replacement string  `yaml:"replacement" json:"replacement"`
	Note        string  `yaml:"note,omitempty" json:"note,omitempty"`
}

type PatchReason string

const (
	ReasonApplied         PatchReason = ""
	ReasonAnchorNotFound  PatchReason = "anchor-not-found"
	ReasonAnchorAmbiguous PatchReason = "anchor-ambiguous"
	ReasonAlreadyPatched  PatchReason = "already-patched"
	ReasonTargetMissing   PatchReason = "target-missing"
	ReasonReadFailed      PatchReason = "read-failed"
	ReasonWriteFailed     PatchReason = "write-failed"
)

// PatchResult records the outcome of one patch attempt. A patch that cannot
// find its anchor reports a reason and leaves the file untouched.
type PatchResult struct {
	PatchID string      `json:"patch_id"`
	File    string      `json:"file"`
	Applied bool        `json:"applied"`
	Reason  PatchReason `json:"reason,omitempty"`
	Detail  string      `json:"detail,omitempty"`
	Span    *Span       `json:"span,omitempty"`

	// Content fingerprints before and after the attempt. Equal fingerprints
	// on an applied patch indicate a bug; differing fingerprints on a
	// non-applied patch indicate outside interference.
	BeforeHash string `json:"before_hash,omitempty"`
	AfterHash  string `json:"after_hash,omitempty"`
}

type MarkerKind string

const (
	MarkerContains MarkerKind = "contains"
	MarkerRegex    MarkerKind = "regex"
)

// Marker is a single textual probe pattern. An empty kind means contains.
type Marker struct {
	Pattern string     `yaml:"pattern" json:"pattern"`
	Kind    MarkerKind `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Probe is an independent verification check for one file. It is authored
// separately from the patch that produced the fix so verification cannot
// rubber-stamp the patcher's own assumptions.
type Probe struct {
	ID              string   `yaml:"id" json:"id"`
	File            string   `yaml:"file" json:"file"`
	ExpectedPresent []Marker `yaml:"expected_present,omitempty" json:"expected_present,omitempty"`
	ExpectedAbsent  []Marker `yaml:"expected_absent,omitempty" json:"expected_absent,omitempty"`
	// AllowList entries exempt a forbidden match when the offending line
	// contains the entry as a literal substring.
	AllowList []string `yaml:"allow_list,omitempty" json:"allow_list,omitempty"`
}

// ForbiddenMatch is one occurrence of an expected-absent pattern that was not
// covered by the allow list.
type ForbiddenMatch struct {
	Line    int    `json:"line"`
	Pattern string `json:"pattern"`
	Text    string `json:"text"`
}

// VerificationOutcome is the result of running one probe against a file.
// A probe that could not run at all (unreadable file, bad marker) records
// Error and never passes: an unverifiable file is not a verified file.
type VerificationOutcome struct {
	ProbeID          string           `json:"probe_id"`
	File             string           `json:"file"`
	Pass             bool             `json:"pass"`
	MissingMarkers   []string         `json:"missing_markers,omitempty"`
	ForbiddenMatches []ForbiddenMatch `json:"forbidden_matches,omitempty"`
	AllowedMatches   int              `json:"allowed_matches,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// FileStatus tracks the per-file, per-run state machine.
type FileStatus string

const (
	StatusUnscanned      FileStatus = "unscanned"
	StatusScanned        FileStatus = "scanned"
	StatusPatchAttempted FileStatus = "patch_attempted"
	StatusVerified       FileStatus = "verified"
)

// FileReport is the end state of one file after a run.
type FileReport struct {
	File         string                `json:"file"`
	Status       FileStatus            `json:"status"`
	Findings     []Finding             `json:"findings,omitempty"`
	PatchResults []PatchResult         `json:"patch_results,omitempty"`
	Verification []VerificationOutcome `json:"verification,omitempty"`
	Errors       []string              `json:"errors,omitempty"`
}

type RunOutcome string

const (
	OutcomeOK           RunOutcome = "ok"
	OutcomePatchFailed  RunOutcome = "patch-failed"
	OutcomeWriteFailed  RunOutcome = "write-failed"
	OutcomeVerifyFailed RunOutcome = "verification-failed"
)

// ExitCode maps an outcome to the process exit status. Verification failure
// ranks worst: a patch may have been applied yet left the dangerous construct
// reachable.
func (o RunOutcome) ExitCode() int {
	switch o {
	case OutcomeOK:
		return 0
	case OutcomePatchFailed, OutcomeWriteFailed:
		return 2
	case OutcomeVerifyFailed:
		return 3
	default:
		return 1
	}
}

// Worse returns the more severe of two outcomes.
func (o RunOutcome) Worse(other RunOutcome) RunOutcome {
	if rankOutcome(other) > rankOutcome(o) {
		return other
	}
	return o
}

func rankOutcome(o RunOutcome) int {
	switch o {
	case OutcomePatchFailed:
		return 1
	case OutcomeWriteFailed:
		return 2
	case OutcomeVerifyFailed:
		return 3
	default:
		return 0
	}
}

// RunReport is the structured result of a full Scan -> Patch -> Verify run.
type RunReport struct {
	Root        string       `json:"root"`
	GeneratedAt time.Time    `json:"generated_at"`
	Files       []FileReport `json:"files"`
	Outcome     RunOutcome   `json:"outcome"`

	FindingCount  int `json:"finding_count"`
	AppliedCount  int `json:"applied_count"`
	FailedPatches int `json:"failed_patches"`
	ProbeFailures int `json:"probe_failures"`
}
