package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-labs/livedev/internal/health"
	"github.com/emergent-labs/livedev/internal/manager"
	"github.com/emergent-labs/livedev/internal/metrics"
	"github.com/emergent-labs/livedev/internal/project"
	"github.com/emergent-labs/livedev/internal/store"
)

// testApp builds a full app over a throwaway sqlite file. withSim
// controls whether project creation kicks a scripted build.
func testApp(t *testing.T, withSim bool) (*fiber.App, *manager.Manager) {
	t.Helper()
	logger := zerolog.Nop()

	st, err := store.New(filepath.Join(t.TempDir(), "livedev.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	collector := metrics.New()
	mgr := manager.New(st, collector, logger)

	var sim *manager.Simulator
	if withSim {
		sim = manager.NewSimulator(mgr, time.Millisecond, logger)
	}

	checker := health.NewChecker(logger)
	srv := New(context.Background(), Config{ListenAddr: ":0"}, mgr, sim, st, checker, collector, logger)
	return srv.App(), mgr
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestServer_RootBanner(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/api/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body RootResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Live Development System Ready", body.Message)
}

func TestServer_Probes(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequestIDHeader(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/api/", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StatusChecks(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "POST", "/api/status", `{"client_name":"dashboard"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created store.StatusCheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "dashboard", created.ClientName)

	resp = doJSON(t, app, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var checks []store.StatusCheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&checks))
	require.Len(t, checks, 1)
	assert.Equal(t, created.ID, checks[0].ID)
}

func TestServer_StatusCheck_MissingClientName(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "POST", "/api/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "missing_client_name", problem.Type)
}

func TestServer_CreateProject(t *testing.T) {
	app, mgr := testApp(t, false)

	resp := doJSON(t, app, "POST", "/api/projects/create", `{"name":"Demo","project_type":"react_app"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CreateProjectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.ProjectID)
	assert.Equal(t, "created", body.Status)

	p, ok := mgr.GetProject(body.ProjectID)
	require.True(t, ok)
	assert.Equal(t, "Demo", p.Name)
	assert.Equal(t, project.StatusInitializing, p.Status)
}

func TestServer_CreateProject_MissingName(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "POST", "/api/projects/create", `{"project_type":"react_app"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "missing_name", problem.Type)
}

func TestServer_CreateProject_RunsSimulation(t *testing.T) {
	app, mgr := testApp(t, true)

	resp := doJSON(t, app, "POST", "/api/projects/create", `{"name":"Demo","project_type":"node_api"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CreateProjectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := mgr.GetProject(body.ProjectID); ok && p.Status == project.StatusCompleted {
			assert.Equal(t, 100, p.Progress)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("simulation did not complete in time")
}

func TestServer_ListProjects(t *testing.T) {
	app, mgr := testApp(t, false)

	resp := doJSON(t, app, "GET", "/api/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var projects []project.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	assert.Empty(t, projects)

	_, err := mgr.CreateProject("One", project.TypeReactApp)
	require.NoError(t, err)

	resp = doJSON(t, app, "GET", "/api/projects", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "One", projects[0].Name)
}

func TestServer_GetProject_NotFound(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/api/projects/ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "project_not_found", problem.Type)
}

func TestServer_AddProjectLog(t *testing.T) {
	app, mgr := testApp(t, false)
	p, err := mgr.CreateProject("Demo", project.TypeReactApp)
	require.NoError(t, err)

	resp := doJSON(t, app, "POST", "/api/projects/"+p.ID+"/logs", `{"message":"manual note"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "log_added", body["status"])

	got, _ := mgr.GetProject(p.ID)
	require.Len(t, got.Logs, 1)
	assert.Contains(t, got.Logs[0], "manual note")
}

func TestServer_AddProjectError_FlipsStatus(t *testing.T) {
	app, mgr := testApp(t, false)
	p, err := mgr.CreateProject("Demo", project.TypeReactApp)
	require.NoError(t, err)

	resp := doJSON(t, app, "POST", "/api/projects/"+p.ID+"/errors", `{"message":"build exploded"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error_added", body["status"])

	got, _ := mgr.GetProject(p.ID)
	assert.Equal(t, project.StatusError, got.Status)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "build exploded")
}

func TestServer_AddProjectLog_UnknownProject(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "POST", "/api/projects/ghost/logs", `{"message":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AddProjectLog_MissingMessage(t *testing.T) {
	app, mgr := testApp(t, false)
	p, err := mgr.CreateProject("Demo", project.TypeReactApp)
	require.NoError(t, err)

	resp := doJSON(t, app, "POST", "/api/projects/"+p.ID+"/logs", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_LiveSocket_RequiresUpgrade(t *testing.T) {
	app, _ := testApp(t, false)

	resp := doJSON(t, app, "GET", "/api/ws/live", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestHeartbeatFrame(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	frame := heartbeatFrame(at)
	assert.True(t, strings.HasPrefix(frame, "event: heartbeat\n"))
	assert.Contains(t, frame, "2025-06-01T12:30:00Z")
	assert.True(t, strings.HasSuffix(frame, "\n\n"))
}
