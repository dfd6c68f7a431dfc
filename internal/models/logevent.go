package models

import "time"

// LogEvent is one append-only entry in a session's event log.
type LogEvent struct {
	SessionID string    `bson:"session_id" json:"session_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Level     string    `bson:"level" json:"level"` // info|warning|error
	Stage     Stage     `bson:"stage" json:"stage"`
	Message   string    `bson:"message" json:"message"`
}
