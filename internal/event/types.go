// Package event defines the live event wire format and the typed event
// union the client reconciles against. Every server-side state change is
// pushed as one Envelope; Decode turns an envelope into exactly one
// concrete Event variant.
package event

import (
	"encoding/json"
	"time"

	"github.com/emergent-labs/livedev/internal/project"
)

// Type identifiers for well-known event types.
const (
	TypeProjectCreated   = "project_created"
	TypeProjectState     = "project_state"
	TypeProgressUpdate   = "progress_update"
	TypeLogAdded         = "log_added"
	TypeErrorAdded       = "error_added"
	TypeProjectCompleted = "project_completed"
	TypeFileCreated      = "file_created"
	TypeFileModified     = "file_modified"
)

// Envelope is the raw wire message: a discriminant, the project it
// targets, and a type-dependent payload.
type Envelope struct {
	EventType string          `json:"event_type"`
	ProjectID string          `json:"project_id,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event is the closed union of decoded live events. The marker method
// keeps the set sealed so a reducer switch can be checked for
// exhaustiveness; servers and clients that meet an unrecognized
// event_type get an Unknown, never an error.
type Event interface {
	// Type returns the wire discriminant.
	Type() string
	// Project returns the targeted project id ("" for Unknown events
	// that carry none).
	Project() string

	isEvent()
}

// ProjectCreated announces a newly created project and carries its full
// initial state.
type ProjectCreated struct {
	ProjectObj project.Project
}

// ProjectState carries a full project snapshot, sent on subscriber
// attach and whenever the server wants to repair client drift.
type ProjectState struct {
	ProjectObj project.Project
}

// ProgressUpdate moves a project's progress percentage and current step.
type ProgressUpdate struct {
	ID       string
	Progress int
	Step     string
}

// LogAdded appends one log line to a project.
type LogAdded struct {
	ID  string
	Log string
}

// ErrorAdded appends one error line to a project.
type ErrorAdded struct {
	ID  string
	Err string
}

// ProjectCompleted marks a project finished. Applying it forces
// status=completed and progress=100 regardless of payload contents.
type ProjectCompleted struct {
	ID string
}

// FileCreated records one created file path.
type FileCreated struct {
	ID   string
	Path string
}

// FileModified records one modified file path.
type FileModified struct {
	ID   string
	Path string
}

// Unknown preserves events of unrecognized type. Reducers treat it as a
// no-op; the event log still records it.
type Unknown struct {
	EventType string
	ID        string
	Data      json.RawMessage
}

func (e ProjectCreated) Type() string   { return TypeProjectCreated }
func (e ProjectState) Type() string     { return TypeProjectState }
func (e ProgressUpdate) Type() string   { return TypeProgressUpdate }
func (e LogAdded) Type() string         { return TypeLogAdded }
func (e ErrorAdded) Type() string       { return TypeErrorAdded }
func (e ProjectCompleted) Type() string { return TypeProjectCompleted }
func (e FileCreated) Type() string      { return TypeFileCreated }
func (e FileModified) Type() string     { return TypeFileModified }
func (e Unknown) Type() string          { return e.EventType }

func (e ProjectCreated) Project() string   { return e.ProjectObj.ID }
func (e ProjectState) Project() string     { return e.ProjectObj.ID }
func (e ProgressUpdate) Project() string   { return e.ID }
func (e LogAdded) Project() string         { return e.ID }
func (e ErrorAdded) Project() string       { return e.ID }
func (e ProjectCompleted) Project() string { return e.ID }
func (e FileCreated) Project() string      { return e.ID }
func (e FileModified) Project() string     { return e.ID }
func (e Unknown) Project() string          { return e.ID }

func (ProjectCreated) isEvent()   {}
func (ProjectState) isEvent()     {}
func (ProgressUpdate) isEvent()   {}
func (LogAdded) isEvent()         {}
func (ErrorAdded) isEvent()       {}
func (ProjectCompleted) isEvent() {}
func (FileCreated) isEvent()      {}
func (FileModified) isEvent()     {}
func (Unknown) isEvent()          {}
