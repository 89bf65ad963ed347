package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emergent-labs/livedev/internal/project"
)

// UpsertProject writes a project's full state. Called on every mutation
// the manager applies, mirroring the original system's write points.
func (s *Store) UpsertProject(p *project.Project) error {
	createdFiles, _ := json.Marshal(p.CreatedFiles)
	modifiedFiles, _ := json.Marshal(p.ModifiedFiles)
	errs, _ := json.Marshal(p.Errors)
	logs, _ := json.Marshal(p.Logs)

	query := `
	INSERT INTO projects (id, name, status, progress, current_step, created_files, modified_files, errors, logs, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		status = excluded.status,
		progress = excluded.progress,
		current_step = excluded.current_step,
		created_files = excluded.created_files,
		modified_files = excluded.modified_files,
		errors = excluded.errors,
		logs = excluded.logs,
		updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query,
		p.ID, p.Name, p.Status, p.Progress, p.CurrentStep,
		string(createdFiles), string(modifiedFiles), string(errs), string(logs),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.ID, err)
	}
	return nil
}

// GetProject loads one project by id.
func (s *Store) GetProject(id string) (*project.Project, error) {
	row := s.db.QueryRow(`
	SELECT id, name, status, progress, current_step, created_files, modified_files, errors, logs, updated_at
	FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListProjects loads all projects ordered by last update, oldest first.
func (s *Store) ListProjects() ([]*project.Project, error) {
	rows, err := s.db.Query(`
	SELECT id, name, status, progress, current_step, created_files, modified_files, errors, logs, updated_at
	FROM projects ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var p project.Project
	var createdFiles, modifiedFiles, errs, logs string
	var updatedAt int64

	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Progress, &p.CurrentStep,
		&createdFiles, &modifiedFiles, &errs, &logs, &updatedAt)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(createdFiles), &p.CreatedFiles)
	json.Unmarshal([]byte(modifiedFiles), &p.ModifiedFiles)
	json.Unmarshal([]byte(errs), &p.Errors)
	json.Unmarshal([]byte(logs), &p.Logs)
	p.Timestamp = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
