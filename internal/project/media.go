package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// Asset is one imported media file.
type Asset struct {
	ID        int
	Path      string
	Filename  string
	Duration  time.Duration
	Width     int
	Height    int
	FPS       float64
	HasAudio  bool
	CreatedAt time.Time
}

// Metadata is the copy a clip keeps of its asset.
func (a Asset) Metadata() timeline.Metadata {
	return timeline.Metadata{
		Filename: a.Filename,
		Path:     a.Path,
		Duration: a.Duration,
		Width:    a.Width,
		Height:   a.Height,
		FPS:      a.FPS,
		HasAudio: a.HasAudio,
	}
}

// Prober reads media metadata. *ffmpeg.Executor implements it.
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Import probes a file and records it in the media library. Importing the
// same path again refreshes its metadata and keeps its id.
func (s *Store) Import(ctx context.Context, prober Prober, path string) (Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Asset{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := prober.ProbeVideo(ctx, abs)
	if err != nil {
		return Asset{}, fmt.Errorf("probe %s: %w", abs, err)
	}
	if info.Duration <= 0 {
		return Asset{}, fmt.Errorf("probe %s: no duration", abs)
	}

	a := Asset{
		Path:      abs,
		Filename:  filepath.Base(abs),
		Duration:  info.Duration,
		Width:     info.Width,
		Height:    info.Height,
		FPS:       info.FPS,
		HasAudio:  info.HasAudio,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.UpsertMedia(ctx, &a); err != nil {
		return Asset{}, err
	}

	s.logger.Info().
		Int("media_id", a.ID).
		Str("path", a.Path).
		Dur("duration", a.Duration).
		Int("width", a.Width).
		Int("height", a.Height).
		Msg("media imported")
	return a, nil
}

// UpsertMedia inserts an asset or updates the one with the same path, and
// sets a.ID.
func (s *Store) UpsertMedia(ctx context.Context, a *Asset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	row := s.conn.QueryRowContext(ctx, `
		INSERT INTO media (path, filename, duration_us, width, height, fps, has_audio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			duration_us = excluded.duration_us,
			width = excluded.width,
			height = excluded.height,
			fps = excluded.fps,
			has_audio = excluded.has_audio
		RETURNING id
	`, a.Path, a.Filename, a.Duration.Microseconds(), a.Width, a.Height, a.FPS, boolToInt(a.HasAudio), a.CreatedAt.Format(time.RFC3339))
	if err := row.Scan(&a.ID); err != nil {
		return fmt.Errorf("save media %s: %w", a.Path, err)
	}
	return nil
}

const mediaColumns = `id, path, filename, duration_us, width, height, fps, has_audio, created_at`

// Lookup returns the asset with the given id.
func (s *Store) Lookup(ctx context.Context, id int) (Asset, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return a, err
}

// ListMedia returns every asset, oldest first.
func (s *Store) ListMedia(ctx context.Context) ([]Asset, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// DeleteMedia removes an asset. Clips keep their copied metadata.
func (s *Store) DeleteMedia(ctx context.Context, id int) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (Asset, error) {
	var a Asset
	var durationUS int64
	var hasAudio int
	var createdAt string
	if err := row.Scan(&a.ID, &a.Path, &a.Filename, &durationUS, &a.Width, &a.Height, &a.FPS, &hasAudio, &createdAt); err != nil {
		return Asset{}, err
	}
	a.Duration = time.Duration(durationUS) * time.Microsecond
	a.HasAudio = hasAudio == 1
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}
