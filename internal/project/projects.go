package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// DefaultName is the project used when none is given.
const DefaultName = "default"

// Project is a named timeline document.
type Project struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureProject returns the project with the given name, creating an empty
// one if needed.
func (s *Store) EnsureProject(ctx context.Context, name string) (Project, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO projects (name, timeline_json, created_at, updated_at)
		VALUES (?, '', ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, now, now)
	if err != nil {
		return Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	return s.ProjectByName(ctx, name)
}

// ProjectByName looks a project up by name.
func (s *Store) ProjectByName(ctx context.Context, name string) (Project, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects WHERE name = ?
	`, name)
	var p Project
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Project{}, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// ListProjects returns project names, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveTimeline stores the timeline document of a project.
func (s *Store) SaveTimeline(ctx context.Context, projectID int64, snap timeline.Snapshot, playhead time.Duration) error {
	data, err := timeline.Marshal(snap, playhead)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE projects SET timeline_json = ?, updated_at = ? WHERE id = ?
	`, string(data), time.Now().UTC().Format(time.RFC3339), projectID)
	if err != nil {
		return fmt.Errorf("save timeline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	return nil
}

// LoadTimeline reads a project's timeline. A project that was never saved
// loads as an empty timeline.
func (s *Store) LoadTimeline(ctx context.Context, projectID int64) (timeline.Snapshot, time.Duration, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, `SELECT timeline_json FROM projects WHERE id = ?`, projectID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return timeline.Snapshot{}, 0, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return timeline.Snapshot{}, 0, err
	}
	if data == "" {
		return timeline.New().Snapshot(), 0, nil
	}
	snap, playhead, err := timeline.Unmarshal([]byte(data))
	if err != nil {
		return timeline.Snapshot{}, 0, fmt.Errorf("decode timeline of project %d: %w", projectID, err)
	}
	return snap, playhead, nil
}
