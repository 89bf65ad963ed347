// Package client implements the live development client session: a
// persistent connection to the backend's event stream, a reducer-driven
// projection of project state, an arrival-ordered event log, and the
// project creation flow.
//
// One Session is constructed per consumer and owns all of its state;
// there is no ambient package-level connection or store.
package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/config"
	perrors "github.com/emergent-labs/livedev/internal/errors"
	"github.com/emergent-labs/livedev/internal/event"
	"github.com/emergent-labs/livedev/internal/project"
	"github.com/emergent-labs/livedev/internal/retry"
)

var errCreationInProgress = perrors.Newf(perrors.KindRequest, "session.create",
	"a creation request is already in flight")

// Options configures a Session.
type Options struct {
	// BackendURL is the HTTP base URL of the backend; the stream URL is
	// derived from it.
	BackendURL string

	// ReconnectInterval is the fixed delay between reconnect attempts.
	// Defaults to 3s.
	ReconnectInterval time.Duration

	// EventLogCap bounds the event log. Defaults to DefaultEventLogCap.
	EventLogCap int
}

// Session ties the connection manager, store, event log and API client
// together. All store and log mutation happens on the connection's
// single read-loop goroutine, in transport delivery order.
type Session struct {
	api    *API
	store  *Store
	log    *EventLog
	conn   *Conn
	logger zerolog.Logger

	creating atomic.Bool
}

// NewSession builds a session for the given backend. It does not
// connect; call Connect (and usually Seed first).
func NewSession(opts Options, logger zerolog.Logger) (*Session, error) {
	streamURL, err := config.StreamURL(opts.BackendURL)
	if err != nil {
		return nil, err
	}

	s := &Session{
		api:    NewAPI(opts.BackendURL, logger),
		store:  NewStore(),
		log:    NewEventLog(opts.EventLogCap),
		logger: logger.With().Str("component", "session").Logger(),
	}
	s.conn = NewConn(streamURL, opts.ReconnectInterval, s.handleMessage, logger)
	return s, nil
}

// Seed fetches the current project list once and applies each project
// as a full-state event. Transient transport errors are retried with
// backoff so a backend still starting up does not kill the session.
func (s *Session) Seed(ctx context.Context) error {
	var projects []project.Project
	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		var err error
		projects, err = s.api.ListProjects(ctx)
		return err
	})
	if err != nil {
		return err
	}

	for i := range projects {
		s.store.Apply(event.ProjectState{ProjectObj: projects[i]})
	}
	s.logger.Info().Int("projects", len(projects)).Msg("store seeded")
	return nil
}

// Connect opens the live event stream.
func (s *Session) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// CreateProject issues the creation request and hands all resulting
// state changes to the event pipeline: the response is logged, never
// applied to the store. On failure the in-progress flag is cleared and
// no retry is attempted.
func (s *Session) CreateProject(ctx context.Context, name, projectType string) (*project.CreateResponse, error) {
	if !s.creating.CompareAndSwap(false, true) {
		return nil, errCreationInProgress
	}
	defer s.creating.Store(false)

	resp, err := s.api.CreateProject(ctx, project.CreateInput{Name: name, ProjectType: projectType})
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("project creation failed")
		return nil, err
	}

	s.logger.Info().
		Str("name", name).
		Str("project_id", resp.ProjectID).
		Msg("project creation requested; awaiting stream event")
	return resp, nil
}

// handleMessage is the single entry point for inbound stream frames:
// decode, then apply to the store and append to the event log. A decode
// failure drops the message and nothing else; the stream stays up.
func (s *Session) handleMessage(raw []byte) {
	ev, err := event.Decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dropping malformed stream message")
		return
	}

	applied := s.store.Apply(ev)
	entry := s.log.Record(ev)

	s.logger.Debug().
		Str("event_type", ev.Type()).
		Str("project_id", ev.Project()).
		Bool("applied", applied).
		Int64("seq", entry.Seq).
		Msg("event processed")
}

// Store returns the session's project store.
func (s *Session) Store() *Store { return s.store }

// Log returns the session's event log.
func (s *Session) Log() *EventLog { return s.log }

// Status returns the connection status.
func (s *Session) Status() Status { return s.conn.Status() }

// Close tears the session down, closing the connection exactly once.
func (s *Session) Close() error {
	return s.conn.Close()
}
