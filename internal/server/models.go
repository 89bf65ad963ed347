package server

// CreateProjectRequest is the body of POST /api/projects/create.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
}

// CreateProjectResponse acknowledges a creation request. It carries the
// assigned id only; the full project state arrives on the live stream.
type CreateProjectResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

// StatusCheckRequest is the body of POST /api/status.
type StatusCheckRequest struct {
	ClientName string `json:"client_name"`
}

// MessageRequest is the body of the per-project log and error routes.
type MessageRequest struct {
	Message string `json:"message"`
}

// RootResponse is the GET /api/ banner.
type RootResponse struct {
	Message string `json:"message"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
