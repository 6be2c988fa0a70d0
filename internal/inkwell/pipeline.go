package inkwell

import "context"

// Pipeline step names, in execution order.
const (
	StepValidateSource   = "ValidateSource"
	StepResolvePaths     = "ResolvePaths"
	StepResolveIgnore    = "ResolveIgnorePolicy"
	StepPrepareWorkspace = "PrepareWorkspace"
	StepAcquireLock      = "AcquireLock"
	StepResolveReference = "ResolveReferenceSnapshot"
	StepStage            = "Stage"
	StepCommit           = "Commit"
	StepRepointCurrent   = "RepointCurrent"
)

// step is one state of the backup state machine. It returns the enriched run
// on success. On failure the returned run is ignored.
type step struct {
	name string
	run  func(ctx context.Context, run BackupRun) (BackupRun, error)
}

// runSteps executes steps in order and stops at the first failure or
// cancellation. It returns the last successfully produced run, so callers can
// still release anything a completed step acquired.
func runSteps(ctx context.Context, run BackupRun, steps []step, logger Logger) (BackupRun, error) {
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return run, &StepError{Step: st.name, Err: err}
		}

		logger.Debug("step started", "step", st.name)
		next, err := st.run(ctx, run)
		if err != nil {
			return run, &StepError{Step: st.name, Err: err}
		}
		run = next
	}
	return run, nil
}
