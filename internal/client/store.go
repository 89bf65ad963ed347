package client

import (
	"sync"

	"github.com/emergent-labs/livedev/internal/event"
	"github.com/emergent-labs/livedev/internal/project"
)

// Store is the client-side authoritative projection of all known
// projects, mutated exclusively by event application.
//
// The backing slice is replaced wholesale on every change and touched
// entries are deep-copied first, so a snapshot handed to a consumer is
// never mutated afterwards: reference-identity change detection observes
// every update.
//
// Projects are kept in arrival order. project_created appends without an
// existence check, so a server-side id collision yields a duplicate
// entry rather than a merge.
type Store struct {
	mu       sync.RWMutex
	projects []*project.Project
	version  uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Apply reconciles one event into the store and reports whether
// anything changed. Unknown event types are no-ops, and targeted events
// for project ids not in the store are silently dropped.
func (s *Store) Apply(ev event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case event.ProjectCreated:
		p := e.ProjectObj
		s.append(p.Clone())
		return true

	case event.ProjectState:
		p := e.ProjectObj
		if i := s.indexOf(p.ID); i >= 0 {
			s.replace(i, p.Clone())
		} else {
			s.append(p.Clone())
		}
		return true

	case event.ProgressUpdate:
		return s.update(e.ID, func(p *project.Project) {
			p.Progress = e.Progress
			p.CurrentStep = e.Step
		})

	case event.LogAdded:
		return s.update(e.ID, func(p *project.Project) {
			p.Logs = append(p.Logs, e.Log)
		})

	case event.ErrorAdded:
		return s.update(e.ID, func(p *project.Project) {
			p.Errors = append(p.Errors, e.Err)
		})

	case event.ProjectCompleted:
		return s.update(e.ID, func(p *project.Project) {
			p.Status = project.StatusCompleted
			p.Progress = 100
		})

	case event.FileCreated:
		return s.update(e.ID, func(p *project.Project) {
			p.CreatedFiles = append(p.CreatedFiles, e.Path)
		})

	case event.FileModified:
		return s.update(e.ID, func(p *project.Project) {
			p.ModifiedFiles = append(p.ModifiedFiles, e.Path)
		})

	case event.Unknown:
		return false
	}
	return false
}

// Snapshot returns the current projects in arrival order. The returned
// slice and its entries must not be mutated by the caller; they are
// shared with prior snapshots.
func (s *Store) Snapshot() []*project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects
}

// Get returns the first project with the given id.
func (s *Store) Get(id string) (*project.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.projects[i], true
	}
	return nil, false
}

// Len returns the number of store entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Version increments on every applied change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// update clones the targeted entry, applies fn to the clone and swaps in
// a new snapshot. Returns false when the id is absent (soft-fail, not an
// error).
func (s *Store) update(id string, fn func(*project.Project)) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	p := s.projects[i].Clone()
	fn(p)
	s.replace(i, p)
	return true
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) append(p *project.Project) {
	next := make([]*project.Project, len(s.projects), len(s.projects)+1)
	copy(next, s.projects)
	s.projects = append(next, p)
	s.version++
}

func (s *Store) replace(i int, p *project.Project) {
	next := make([]*project.Project, len(s.projects))
	copy(next, s.projects)
	next[i] = p
	s.projects = next
	s.version++
}
