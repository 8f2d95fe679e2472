package domain

import (
	"fmt"
	"time"
)

// StageID names one of the five pipeline stages.
type StageID string

const (
	StageQuery      StageID = "query_understanding"
	StageSearch     StageID = "search"
	StageRanking    StageID = "ranking"
	StageExtraction StageID = "extraction"
	StageDelivery   StageID = "delivery"
)

// StageOrder is the fixed execution order of the pipeline.
var StageOrder = []StageID{StageQuery, StageSearch, StageRanking, StageExtraction, StageDelivery}

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
)

// PipelineStage tracks the execution state of one stage. A stage array is
// owned by exactly one execution and never shared.
type PipelineStage struct {
	ID        StageID     `json:"id"`
	Status    StageStatus `json:"status"`
	Progress  int         `json:"progress"` // 0..100, monotonic while running
	StartTime time.Time   `json:"start_time,omitzero"`
	EndTime   time.Time   `json:"end_time,omitzero"`
	Error     string      `json:"error,omitempty"`
}

// NewPipelineStages returns a fresh pending stage array for one execution.
func NewPipelineStages() []PipelineStage {
	out := make([]PipelineStage, 0, len(StageOrder))
	for _, id := range StageOrder {
		out = append(out, PipelineStage{ID: id, Status: StagePending})
	}
	return out
}

// Start transitions the stage to running. Only pending stages may start.
func (s *PipelineStage) Start(now time.Time) error {
	if s.Status != StagePending {
		return fmt.Errorf("stage %s: cannot start from %s", s.ID, s.Status)
	}
	s.Status = StageRunning
	s.StartTime = now
	return nil
}

// SetProgress raises the displayed progress; regressions are ignored so the
// value stays monotonic while the stage runs.
func (s *PipelineStage) SetProgress(progress int) {
	if s.Status != StageRunning {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > s.Progress {
		s.Progress = progress
	}
}

// Complete transitions the stage to completed.
func (s *PipelineStage) Complete(now time.Time) error {
	if s.Status != StageRunning {
		return fmt.Errorf("stage %s: cannot complete from %s", s.ID, s.Status)
	}
	s.Status = StageCompleted
	s.Progress = 100
	s.EndTime = now
	return nil
}

// Fail marks a running stage as errored. Failing halts further transitions;
// the orchestrator converts this into an error-shaped result.
func (s *PipelineStage) Fail(now time.Time, err error) {
	if s.Status != StageRunning {
		return
	}
	s.Status = StageError
	s.EndTime = now
	if err != nil {
		s.Error = err.Error()
	}
}
