package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"dtorpass/internal/driver"
	"dtorpass/internal/ui"
	"dtorpass/internal/unit"
)

type runOutcome struct {
	result *driver.Result
	err    error
}

// runDriverWithUI runs the driver in the background and renders its
// progress on stderr until every routine has finished.
func runDriverWithUI(ctx context.Context, u *unit.Unit, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, u, optsCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	names := make([]string, len(u.Routines))
	for i, r := range u.Routines {
		names[i] = r.Name()
	}
	model := ui.NewProgressModel(u.Name, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the UI may quit early; keep draining so the driver never blocks
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
