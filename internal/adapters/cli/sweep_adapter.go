package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/efiling/internal/ports/primary"
)

// SweepAdapter runs the polling sweeps on demand and prints their results.
type SweepAdapter struct {
	orchestrator primary.Orchestrator
	lifecycle    primary.LifecycleService
	out          io.Writer
}

// NewSweepAdapter creates a new SweepAdapter.
func NewSweepAdapter(orchestrator primary.Orchestrator, lifecycle primary.LifecycleService, out io.Writer) *SweepAdapter {
	return &SweepAdapter{
		orchestrator: orchestrator,
		lifecycle:    lifecycle,
		out:          out,
	}
}

// Run executes the named sweep once.
func (a *SweepAdapter) Run(ctx context.Context, name string) error {
	switch name {
	case primary.SweepProcessFiles:
		return a.report(a.orchestrator.ProcessFiles(ctx))
	case primary.SweepSubmitToFes:
		return a.report(a.orchestrator.SubmitToFes(ctx))
	case primary.SweepDelayed:
		return a.Delayed(ctx)
	default:
		return fmt.Errorf("unknown sweep %q", name)
	}
}

// report prints a sweep summary. Per-submission failures are returned after
// the summary so the caller still exits non-zero.
func (a *SweepAdapter) report(result *primary.SweepResult, err error) error {
	if result == nil {
		return err
	}

	mark := color.New(color.FgGreen).Sprint("✓")
	if result.Failed > 0 || err != nil {
		mark = color.New(color.FgYellow).Sprint("!")
	}
	fmt.Fprintf(a.out, "%s Sweep %s: examined %d, advanced %d, failed %d\n",
		mark, result.Sweep, result.Examined, result.Advanced, result.Failed)
	return err
}

// Delayed reports submissions stuck in processing.
func (a *SweepAdapter) Delayed(ctx context.Context) error {
	report, err := a.lifecycle.HandleDelayedSubmissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to handle delayed submissions: %w", err)
	}

	if len(report.Delayed) == 0 {
		fmt.Fprintln(a.out, "✓ No delayed submissions")
		return nil
	}

	fmt.Fprintf(a.out, "%s %d delayed submissions (%d notifications sent)\n",
		color.New(color.FgYellow).Sprint("!"), len(report.Delayed), report.Notifications)
	for _, id := range report.Delayed {
		fmt.Fprintf(a.out, "  %s\n", id)
	}
	return nil
}
