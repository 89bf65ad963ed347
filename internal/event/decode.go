package event

import (
	"encoding/json"
	"time"

	perrors "github.com/emergent-labs/livedev/internal/errors"
	"github.com/emergent-labs/livedev/internal/project"
)

// Wire payload shapes. Progress is float64 here because the wire may
// carry fractional percentages; the typed event truncates to int.
type progressPayload struct {
	Progress float64 `json:"progress"`
	Step     string  `json:"step"`
}

type logPayload struct {
	Log string `json:"log"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type filePayload struct {
	FilePath string `json:"file_path"`
}

// wireProject tolerates the looser project encoding seen on the wire
// (float progress, missing lists).
type wireProject struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Progress      float64   `json:"progress"`
	CurrentStep   string    `json:"current_step"`
	CreatedFiles  []string  `json:"created_files"`
	ModifiedFiles []string  `json:"modified_files"`
	Errors        []string  `json:"errors"`
	Logs          []string  `json:"logs"`
	Timestamp     time.Time `json:"timestamp"`
}

func (w wireProject) toProject() project.Project {
	return project.Project{
		ID:            w.ID,
		Name:          w.Name,
		Status:        w.Status,
		Progress:      int(w.Progress),
		CurrentStep:   w.CurrentStep,
		CreatedFiles:  w.CreatedFiles,
		ModifiedFiles: w.ModifiedFiles,
		Errors:        w.Errors,
		Logs:          w.Logs,
		Timestamp:     w.Timestamp,
	}
}

// Decode parses one raw wire message into a typed event. A failure here
// means the message is dropped: it never reaches the store or the event
// log, and it never terminates the connection.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, perrors.New(perrors.KindDecode, "event.decode", err)
	}
	if env.EventType == "" {
		return nil, perrors.Newf(perrors.KindDecode, "event.decode", "message has no event_type")
	}

	switch env.EventType {
	case TypeProjectCreated, TypeProjectState:
		var wp wireProject
		if err := json.Unmarshal(env.Data, &wp); err != nil {
			return nil, perrors.New(perrors.KindDecode, "event.decode", err)
		}
		if wp.ID == "" {
			// Some producers put the id only on the envelope.
			wp.ID = env.ProjectID
		}
		if wp.ID == "" {
			return nil, perrors.Newf(perrors.KindDecode, "event.decode", "%s event carries no project id", env.EventType)
		}
		if env.EventType == TypeProjectCreated {
			return ProjectCreated{ProjectObj: wp.toProject()}, nil
		}
		return ProjectState{ProjectObj: wp.toProject()}, nil

	case TypeProgressUpdate:
		var p progressPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, perrors.New(perrors.KindDecode, "event.decode", err)
		}
		return ProgressUpdate{ID: env.ProjectID, Progress: int(p.Progress), Step: p.Step}, nil

	case TypeLogAdded:
		var p logPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, perrors.New(perrors.KindDecode, "event.decode", err)
		}
		return LogAdded{ID: env.ProjectID, Log: p.Log}, nil

	case TypeErrorAdded:
		var p errorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, perrors.New(perrors.KindDecode, "event.decode", err)
		}
		return ErrorAdded{ID: env.ProjectID, Err: p.Error}, nil

	case TypeProjectCompleted:
		return ProjectCompleted{ID: env.ProjectID}, nil

	case TypeFileCreated, TypeFileModified:
		var p filePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, perrors.New(perrors.KindDecode, "event.decode", err)
		}
		if env.EventType == TypeFileCreated {
			return FileCreated{ID: env.ProjectID, Path: p.FilePath}, nil
		}
		return FileModified{ID: env.ProjectID, Path: p.FilePath}, nil

	default:
		return Unknown{EventType: env.EventType, ID: env.ProjectID, Data: env.Data}, nil
	}
}

// Marshal encodes a typed event back into its wire envelope. The server
// broadcast path uses this so both ends share one codec.
func Marshal(e Event) ([]byte, error) {
	env := Envelope{
		EventType: e.Type(),
		ProjectID: e.Project(),
		Timestamp: time.Now().UTC(),
	}

	var payload any
	switch ev := e.(type) {
	case ProjectCreated:
		payload = ev.ProjectObj
	case ProjectState:
		payload = ev.ProjectObj
	case ProgressUpdate:
		payload = progressPayload{Progress: float64(ev.Progress), Step: ev.Step}
	case LogAdded:
		payload = logPayload{Log: ev.Log}
	case ErrorAdded:
		payload = errorPayload{Error: ev.Err}
	case ProjectCompleted:
		payload = struct{}{}
	case FileCreated:
		payload = filePayload{FilePath: ev.Path}
	case FileModified:
		payload = filePayload{FilePath: ev.Path}
	case Unknown:
		env.Data = ev.Data
		return json.Marshal(env)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.Data = data
	return json.Marshal(env)
}
