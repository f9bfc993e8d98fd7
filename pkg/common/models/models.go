package models

import (
	"time"

	"github.com/google/uuid"
)

// Push channel models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // insight, refresh
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

func NewEvent(eventType, source string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Viewer notifications
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotification(title, message string, severity Severity) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
	}
}
