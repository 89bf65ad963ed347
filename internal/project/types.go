// Package project defines the Project entity tracked by the live
// development system: a server-side scaffold/build task with progress,
// logs and file change lists.
package project

import "time"

// Well-known project statuses. The set is open: a client must tolerate
// and display statuses it does not recognize.
const (
	StatusInitializing = "initializing"
	StatusBuilding     = "building"
	StatusRunning      = "running"
	StatusCompleted    = "completed"
	StatusError        = "error"
)

// Known project types accepted by the creation endpoint. The client does
// not validate against this set; the server decides.
const (
	TypeReactApp   = "react_app"
	TypeVueApp     = "vue_app"
	TypeAngularApp = "angular_app"
	TypeNodeAPI    = "node_api"
)

// Project is one in-progress or completed scaffolded software project.
// The id is assigned by the server and immutable. All list fields are
// append-only over the project's lifetime.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress"`
	CurrentStep   string    `json:"current_step"`
	CreatedFiles  []string  `json:"created_files"`
	ModifiedFiles []string  `json:"modified_files"`
	Errors        []string  `json:"errors"`
	Logs          []string  `json:"logs"`
	Timestamp     time.Time `json:"timestamp"`
}

// Clone returns a deep copy. Callers mutating a store snapshot entry must
// clone it first so older snapshots stay intact.
func (p *Project) Clone() *Project {
	c := *p
	c.CreatedFiles = append([]string(nil), p.CreatedFiles...)
	c.ModifiedFiles = append([]string(nil), p.ModifiedFiles...)
	c.Errors = append([]string(nil), p.Errors...)
	c.Logs = append([]string(nil), p.Logs...)
	return &c
}

// CreateInput is the body of POST /api/projects/create.
type CreateInput struct {
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
}

// CreateResponse is the body returned by POST /api/projects/create.
type CreateResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}
