package patchtui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itayg2341/jansson/internal/engine"
	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/progress"
)

// Run executes the engine with a live dashboard attached. The engine runs in
// its own goroutine feeding a buffered event channel; the UI drains it and
// exits when the run finishes or the user quits. The run itself is never
// interrupted by the UI closing early.
func Run(ctx context.Context, opts engine.Options) (model.RunReport, error) {
	events := make(chan progress.Event, 256)
	opts.Sink = progress.NewChannelSink(events)

	type runResult struct {
		report model.RunReport
		err    error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		report, err := engine.Run(ctx, opts)
		close(events)
		resultCh <- runResult{report, err}
	}()

	// The sink drops events on backpressure, so an early UI exit cannot
	// stall the engine goroutine.
	p := tea.NewProgram(newModel(events))
	if _, err := p.Run(); err != nil {
		res := <-resultCh
		if res.err != nil {
			return res.report, res.err
		}
		return res.report, fmt.Errorf("run progress ui: %w", err)
	}

	res := <-resultCh
	return res.report, res.err
}
