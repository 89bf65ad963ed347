package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/emergent-labs/livedev/internal/errors"
	"github.com/emergent-labs/livedev/internal/project"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// API wraps the backend's request/response surface: the startup project
// listing and the project creation endpoint.
type API struct {
	baseURL    string
	httpClient HTTPClient
	logger     zerolog.Logger
}

// NewAPI creates an API client for the given backend base URL.
func NewAPI(baseURL string, logger zerolog.Logger) *API {
	return &API{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (a *API) SetHTTPClient(hc HTTPClient) {
	a.httpClient = hc
}

// ListProjects fetches all known projects. Used once at startup to seed
// the store.
func (a *API) ListProjects(ctx context.Context) ([]project.Project, error) {
	resp, err := a.do(ctx, http.MethodGet, "/api/projects", nil)
	if err != nil {
		return nil, err
	}

	var projects []project.Project
	if err := decodeResponse(resp, &projects); err != nil {
		return nil, perrors.New(perrors.KindDecode, "api.list_projects", err)
	}
	return projects, nil
}

// CreateProject requests creation of a new project. The response is
// informational only: the project materializes in the store when the
// corresponding event arrives on the stream, not here.
func (a *API) CreateProject(ctx context.Context, input project.CreateInput) (*project.CreateResponse, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, perrors.New(perrors.KindRequest, "api.create_project", err)
	}

	resp, err := a.do(ctx, http.MethodPost, "/api/projects/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var created project.CreateResponse
	if err := decodeResponse(resp, &created); err != nil {
		return nil, perrors.New(perrors.KindDecode, "api.create_project", err)
	}
	return &created, nil
}

func (a *API) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, perrors.New(perrors.KindRequest, "api.request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, perrors.New(perrors.KindTransport, "api.request", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, perrors.Newf(perrors.KindRequest, "api.request",
			"%s %s: status %d: %s", method, path, resp.StatusCode, respBody)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
