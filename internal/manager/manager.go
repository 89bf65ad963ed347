// Package manager owns the server-side project state: an in-memory map
// of active projects, a broadcast hub fanning live events out to
// attached stream subscribers, and SQLite persistence behind both.
package manager

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/event"
	"github.com/emergent-labs/livedev/internal/metrics"
	"github.com/emergent-labs/livedev/internal/project"
	"github.com/emergent-labs/livedev/internal/store"
)

// maxProjectLogs bounds the per-project log list, matching the original
// system's retention.
const maxProjectLogs = 100

// subscriberBuffer is the per-subscriber frame queue. A subscriber that
// falls this far behind starts losing frames rather than blocking the
// broadcast path.
const subscriberBuffer = 64

// ignoredPathFragments filters file watcher noise.
var ignoredPathFragments = []string{".git", "__pycache__", "node_modules", ".env"}

// Manager tracks active projects and broadcasts every mutation as a
// live event.
type Manager struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
	order    []string
	subs     map[chan []byte]struct{}

	store   *store.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a manager. store and m may be nil in tests.
func New(st *store.Store, m *metrics.Metrics, logger zerolog.Logger) *Manager {
	return &Manager{
		projects: make(map[string]*project.Project),
		subs:     make(map[chan []byte]struct{}),
		store:    st,
		metrics:  m,
		logger:   logger.With().Str("component", "manager").Logger(),
	}
}

// LoadFromStore seeds the active project map from the database, so a
// restarted server still serves previously created projects.
func (m *Manager) LoadFromStore() error {
	if m.store == nil {
		return nil
	}
	projects, err := m.store.ListProjects()
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	m.mu.Lock()
	for _, p := range projects {
		if _, exists := m.projects[p.ID]; exists {
			continue
		}
		m.projects[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	count := len(m.projects)
	m.mu.Unlock()

	m.setActiveGauge()
	m.logger.Info().Int("projects", count).Msg("projects loaded from store")
	return nil
}

// CreateProject registers a new project, persists it and announces it
// on the stream.
func (m *Manager) CreateProject(name, projectType string) (*project.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	p := &project.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Status:      project.StatusInitializing,
		Progress:    0,
		CurrentStep: "Starting project...",
		Timestamp:   time.Now().UTC(),
	}

	m.mu.Lock()
	m.projects[p.ID] = p
	m.order = append(m.order, p.ID)
	m.mu.Unlock()

	m.setActiveGauge()
	m.persist(p)
	m.broadcast(event.ProjectCreated{ProjectObj: *p.Clone()})

	m.logger.Info().
		Str("project_id", p.ID).
		Str("name", name).
		Str("type", projectType).
		Msg("project created")
	return p.Clone(), nil
}

// UpdateProgress moves a project's progress and current step. Unknown
// ids are ignored.
func (m *Manager) UpdateProgress(id string, progress int, step string) {
	m.mutate(id, func(p *project.Project) event.Event {
		p.Progress = progress
		p.CurrentStep = step
		return event.ProgressUpdate{ID: id, Progress: progress, Step: step}
	})
}

// AddLog appends a timestamped log line to a project.
func (m *Manager) AddLog(id, message string) {
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), message)
	m.mutate(id, func(p *project.Project) event.Event {
		p.Logs = append(p.Logs, entry)
		if len(p.Logs) > maxProjectLogs {
			p.Logs = p.Logs[len(p.Logs)-maxProjectLogs:]
		}
		return event.LogAdded{ID: id, Log: entry}
	})
}

// AddError appends a timestamped error line and flips the project into
// the error status.
func (m *Manager) AddError(id, message string) {
	entry := fmt.Sprintf("[%s] ERROR: %s", time.Now().UTC().Format("15:04:05"), message)
	m.mutate(id, func(p *project.Project) event.Event {
		p.Errors = append(p.Errors, entry)
		p.Status = project.StatusError
		return event.ErrorAdded{ID: id, Err: entry}
	})
}

// CompleteProject marks a project finished.
func (m *Manager) CompleteProject(id string) {
	m.mutate(id, func(p *project.Project) event.Event {
		p.Status = project.StatusCompleted
		p.Progress = 100
		p.CurrentStep = "Project completed"
		return event.ProjectCompleted{ID: id}
	})
}

// AddCreatedFile records a created file path on a project. Paths
// already recorded are skipped.
func (m *Manager) AddCreatedFile(id, path string) {
	m.mutate(id, func(p *project.Project) event.Event {
		if contains(p.CreatedFiles, path) {
			return nil
		}
		p.CreatedFiles = append(p.CreatedFiles, path)
		return event.FileCreated{ID: id, Path: path}
	})
}

// AddModifiedFile records a modified file path on a project. Paths
// already recorded are skipped.
func (m *Manager) AddModifiedFile(id, path string) {
	m.mutate(id, func(p *project.Project) event.Event {
		if contains(p.ModifiedFiles, path) {
			return nil
		}
		p.ModifiedFiles = append(p.ModifiedFiles, path)
		return event.FileModified{ID: id, Path: path}
	})
}

// HandleFileEvent attributes one filesystem event to every active
// project, as the original watcher does. Paths under ignored fragments
// are dropped.
func (m *Manager) HandleFileEvent(eventType, path string) {
	for _, fragment := range ignoredPathFragments {
		if strings.Contains(path, fragment) {
			return
		}
	}

	for _, id := range m.projectIDs() {
		switch eventType {
		case event.TypeFileCreated:
			m.AddCreatedFile(id, path)
		case event.TypeFileModified:
			m.AddModifiedFile(id, path)
		}
	}
}

// GetProject returns a copy of one project.
func (m *Manager) GetProject(id string) (*project.Project, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ListProjects returns copies of all projects in creation order.
func (m *Manager) ListProjects() []*project.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*project.Project, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.projects[id].Clone())
	}
	return out
}

// Attach registers a stream subscriber and replays the full state of
// every active project into it, so a late joiner starts consistent.
func (m *Manager) Attach() chan []byte {
	m.mu.Lock()
	replay := make([]*project.Project, 0, len(m.order))
	for _, id := range m.order {
		replay = append(replay, m.projects[id].Clone())
	}
	// The channel must hold the whole replay: the subscriber's reader
	// only starts consuming after Attach returns.
	ch := make(chan []byte, len(replay)+subscriberBuffer)
	m.subs[ch] = struct{}{}
	subCount := len(m.subs)
	m.mu.Unlock()

	for _, p := range replay {
		if raw, err := event.Marshal(event.ProjectState{ProjectObj: *p}); err == nil {
			ch <- raw
		}
	}

	if m.metrics != nil {
		m.metrics.WSConnections.Set(float64(subCount))
	}
	m.logger.Debug().Int("subscribers", subCount).Msg("subscriber attached")
	return ch
}

// Detach removes a stream subscriber.
func (m *Manager) Detach(ch chan []byte) {
	m.mu.Lock()
	_, ok := m.subs[ch]
	delete(m.subs, ch)
	subCount := len(m.subs)
	m.mu.Unlock()

	if ok && m.metrics != nil {
		m.metrics.WSConnections.Set(float64(subCount))
	}
}

// SubscriberCount returns the number of attached subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// mutate applies fn to the named project under lock, then persists and
// broadcasts the event fn returned. A nil event means nothing changed.
// Unknown ids are a silent no-op.
func (m *Manager) mutate(id string, fn func(*project.Project) event.Event) {
	m.mu.Lock()
	p, ok := m.projects[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Debug().Str("project_id", id).Msg("mutation for unknown project dropped")
		return
	}
	ev := fn(p)
	p.Timestamp = time.Now().UTC()
	snapshot := p.Clone()
	m.mu.Unlock()

	if ev == nil {
		return
	}
	m.persist(snapshot)
	m.broadcast(ev)
}

// broadcast encodes one event and fans it out. Subscribers with full
// queues lose the frame; a subscriber that needs consistent state back
// must reconnect, which replays full project_state on attach.
func (m *Manager) broadcast(ev event.Event) {
	raw, err := event.Marshal(ev)
	if err != nil {
		m.logger.Error().Err(err).Str("event_type", ev.Type()).Msg("failed to encode event")
		return
	}

	m.mu.RLock()
	subs := make([]chan []byte, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- raw:
		default:
			m.logger.Warn().Str("event_type", ev.Type()).Msg("slow subscriber, frame dropped")
		}
	}

	if m.metrics != nil {
		m.metrics.RecordBroadcast(ev.Type())
	}
}

func (m *Manager) persist(p *project.Project) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertProject(p); err != nil {
		m.logger.Error().Err(err).Str("project_id", p.ID).Msg("failed to persist project")
		if m.metrics != nil {
			m.metrics.RecordError("manager", "persist_failure")
		}
	}
}

func (m *Manager) projectIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) setActiveGauge() {
	if m.metrics == nil {
		return
	}
	m.mu.RLock()
	n := len(m.projects)
	m.mu.RUnlock()
	m.metrics.ActiveProjects.Set(float64(n))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
