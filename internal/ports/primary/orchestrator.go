package primary

import "context"

// Orchestrator defines the primary port for the polling sweeps. Each sweep
// selects by current status, so re-running after a crash or timeout is safe.
type Orchestrator interface {
	// ProcessFiles dispatches the files of SUBMITTED submissions for conversion.
	ProcessFiles(ctx context.Context) (*SweepResult, error)

	// SubmitToFes loads READY_FOR_FES submissions into the FES staging schema.
	SubmitToFes(ctx context.Context) (*SweepResult, error)
}

// SweepResult summarises one sweep run. The error returned next to it joins
// the per-submission failures.
type SweepResult struct {
	Sweep    string
	Examined int
	Advanced int
	Failed   int
}

// Sweep names.
const (
	SweepProcessFiles = "process-files"
	SweepSubmitToFes  = "submit-to-fes"
	SweepDelayed      = "delayed-submissions"
)
