package models

import "time"

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Progress is the per-run progress state read by callers while a run is
// in flight. Mutated only by the orchestrator as chunks resolve.
type Progress struct {
	RunID                     string    `json:"run_id"`
	Status                    RunStatus `json:"status"`
	ChunksTotal               int       `json:"chunks_total"`
	ChunksCompleted           int       `json:"chunks_completed"`
	StartedAt                 time.Time `json:"started_at"`
	AvgChunkSeconds           float64   `json:"avg_chunk_seconds"`
	EstimatedSecondsRemaining float64   `json:"estimated_seconds_remaining"`
}

// Progress event types broadcast over the WebSocket hub.
const (
	EventRunStarted   = "run_started"
	EventChunkDone    = "chunk_done"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
	EventRunCancelled = "run_cancelled"
)

// ProgressEvent is pushed to WebSocket clients when run state changes.
type ProgressEvent struct {
	Type      string    `json:"type"`
	Progress  Progress  `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}
