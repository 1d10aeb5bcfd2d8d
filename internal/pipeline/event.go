package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a build lifecycle event.
type EventType string

const (
	EventBuildStarted    EventType = "build_started"
	EventManifestEmitted EventType = "manifest_emitted"
	EventBuildCompleted  EventType = "build_completed"
	EventBuildFailed     EventType = "build_failed"
)

// Event is the payload published for build lifecycle changes.
type Event struct {
	Type      EventType `json:"type"`
	BuildID   uuid.UUID `json:"build_id"`
	Path      string    `json:"path,omitempty"`
	Artifacts int       `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
