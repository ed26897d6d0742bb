package models

import (
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LevelFor is the level a run's closing log line is written at.
func LevelFor(status RunStatus) LogLevel {
	switch status {
	case RunStatusFailed:
		return LogLevelError
	case RunStatusStopped:
		return LogLevelWarn
	default:
		return LogLevelInfo
	}
}

// ScrapeLog is one persisted log line. RunKey ties it to the run's UUID
// so lines can be matched to mirrored runs; it is nil for lines logged
// outside a run.
type ScrapeLog struct {
	ID        int64      `json:"id" db:"id"`
	RunID     *int64     `json:"run_id" db:"run_id"`
	RunKey    *uuid.UUID `json:"run_key,omitempty" db:"run_key"`
	SiteID    string     `json:"site_id" db:"site_id"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	Level     LogLevel   `json:"level" db:"level"`
	Message   string     `json:"message" db:"message"`
}
