package pipeline

import "fmt"

// Stage names attached to fatal pipeline errors for diagnosis.
const (
	StageValidate    = "validate"
	StageFetchSource = "fetch_source"
	StageParse       = "parse"
	StageFilter      = "filter"
	StageEnrich      = "enrich"
	StageFinalize    = "finalize"
)

// PipelineError wraps the first unrecovered stage error of a run, carrying
// the stage identity and feed id.
type PipelineError struct {
	Stage  string
	FeedID string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s (feed %s): %v", e.Stage, e.FeedID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func stageErr(stage, feedID string, err error) *PipelineError {
	return &PipelineError{Stage: stage, FeedID: feedID, Err: err}
}
