package progress

import (
	"time"

	"github.com/itayg2341/jansson/internal/model"
)

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunFinished  EventType = "run_finished"
	EventFileStarted  EventType = "file_started"
	EventFileScanned  EventType = "file_scanned"
	EventPatchApplied EventType = "patch_applied"
	EventPatchSkipped EventType = "patch_skipped"
	EventFileVerified EventType = "file_verified"
	EventFileError    EventType = "file_error"
)

// Event is one pipeline progress notification. File events carry the file's
// current position in the per-file state machine.
type Event struct {
	Type    EventType        `json:"type"`
	At      time.Time        `json:"at"`
	File    string           `json:"file,omitempty"`
	Status  model.FileStatus `json:"status,omitempty"`
	PatchID string           `json:"patch_id,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Message string           `json:"message,omitempty"`

	Findings  int  `json:"findings,omitempty"`
	ProbePass bool `json:"probe_pass,omitempty"`
	Files     int  `json:"files,omitempty"`
}
