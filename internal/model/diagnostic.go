package model

import "time"

// DiagnosticLevel is the severity of a diagnostic entry.
type DiagnosticLevel string

const (
	LevelInfo    DiagnosticLevel = "info"
	LevelWarning DiagnosticLevel = "warning"
	LevelError   DiagnosticLevel = "error"
)

// Diagnostic is one entry in the in-memory trail.
type Diagnostic struct {
	ID        string          `json:"id"`
	Stage     string          `json:"stage"`
	Message   string          `json:"message"`
	Level     DiagnosticLevel `json:"level"`
	Timestamp time.Time       `json:"timestamp"`
}
