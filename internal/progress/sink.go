package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

// ChannelSink forwards events to a channel, dropping on backpressure so an
// absent or slow UI cannot stall the pipeline.
type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
	}
}

// PlainSink prints one status line per event, the non-TTY default.
type PlainSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	line := formatPlain(e)
	if line == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, line)
}

func formatPlain(e Event) string {
	ts := e.At.Format("15:04:05")
	switch e.Type {
	case EventRunStarted:
		return fmt.Sprintf("[%s] run started files=%d", ts, e.Files)
	case EventRunFinished:
		line := fmt.Sprintf("[%s] run finished status=%s", ts, e.Message)
		return line
	case EventFileStarted:
		return fmt.Sprintf("[%s] %s", ts, e.File)
	case EventFileScanned:
		return fmt.Sprintf("[%s] %s scanned findings=%d", ts, e.File, e.Findings)
	case EventPatchApplied:
		return fmt.Sprintf("[%s] %s patch %s applied", ts, e.File, e.PatchID)
	case EventPatchSkipped:
		return fmt.Sprintf("[%s] %s patch %s not applied: %s", ts, e.File, e.PatchID, e.Reason)
	case EventFileVerified:
		status := "pass"
		if !e.ProbePass {
			status = "FAIL"
		}
		return fmt.Sprintf("[%s] %s verified %s", ts, e.File, status)
	case EventFileError:
		msg := strings.TrimSpace(e.Message)
		return fmt.Sprintf("[%s] %s error: %s", ts, e.File, msg)
	default:
		return ""
	}
}
