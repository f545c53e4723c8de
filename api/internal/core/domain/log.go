package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogRecord is one entry of the agent's own structured log, as served by
// /api/logs and the live stream.
type LogRecord struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}
