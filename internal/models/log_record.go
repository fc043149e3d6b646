package models

import "time"

// LogLevel is the severity of a LogRecord (§3).
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// LogRecord is one structured entry published onto the Log Bus (§3).
type LogRecord struct {
	ID        uint64                 `json:"id"`
	Timestamp time.Time              `json:"timestampUtc"`
	Level     LogLevel               `json:"level"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
