package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusCheck is one client-reported liveness ping, kept for the
// operator dashboard.
type StatusCheck struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// AddStatusCheck records a status check and returns it with its
// assigned id and timestamp.
func (s *Store) AddStatusCheck(clientName string) (*StatusCheck, error) {
	check := &StatusCheck{
		ID:         uuid.New().String(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO status_checks (id, client_name, created_at) VALUES (?, ?, ?)`,
		check.ID, check.ClientName, check.Timestamp.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting status check: %w", err)
	}
	return check, nil
}

// ListStatusChecks returns up to limit status checks, newest first.
func (s *Store) ListStatusChecks(limit int) ([]*StatusCheck, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(
		`SELECT id, client_name, created_at FROM status_checks ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing status checks: %w", err)
	}
	defer rows.Close()

	var checks []*StatusCheck
	for rows.Next() {
		var check StatusCheck
		var createdAt int64
		if err := rows.Scan(&check.ID, &check.ClientName, &createdAt); err != nil {
			return nil, err
		}
		check.Timestamp = time.UnixMilli(createdAt).UTC()
		checks = append(checks, &check)
	}
	return checks, rows.Err()
}
