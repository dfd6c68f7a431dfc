package models

import (
	"time"
)

// Session lifecycle statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Stage is one discrete phase of the pipeline. Extraction happens before the
// engine is invoked, so the first stage the engine owns is the input safety
// check.
type Stage string

const (
	StageCreated             Stage = "created"
	StageSafetyCheckingInput Stage = "safety_checking_input"
	StagePlanning            Stage = "planning"
	StageGenerating          Stage = "generating"
	StageSafetyCheckingOut   Stage = "safety_checking_output"
	StageRendering           Stage = "rendering"
	StageCompleted           Stage = "completed"
)

// Stage attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeRetried = "retried"
	OutcomeFailed  = "failed"
)

// StageRecord is one attempt of one pipeline stage. Records are append-only;
// a retried stage produces one record per attempt.
type StageRecord struct {
	Stage     Stage      `bson:"stage" json:"stage"`
	Attempt   int        `bson:"attempt" json:"attempt"`
	Outcome   string     `bson:"outcome" json:"outcome"`
	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	Error     string     `bson:"error,omitempty" json:"error,omitempty"`
}

// Session is the engine-owned state of one document-to-podcast run.
type Session struct {
	SessionID string `bson:"session_id" json:"session_id"` // uuid v4
	Status    string `bson:"status" json:"status"`
	Stage     Stage  `bson:"stage" json:"stage"`

	Stages []StageRecord `bson:"stages" json:"stages"`

	// Set only on a failed or cancelled run.
	FailureCode string `bson:"failure_code,omitempty" json:"failure_code,omitempty"`
	FailedStage Stage  `bson:"failed_stage,omitempty" json:"failed_stage,omitempty"`

	// TrackRef points at the uploaded audio track once the run completed.
	TrackRef string `bson:"track_ref,omitempty" json:"track_ref,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}
