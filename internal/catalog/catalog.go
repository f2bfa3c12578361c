package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/forPelevin/clipforge/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Catalog is the SQLite clip library. The pipeline only writes to it; reads
// serve the HTTP layer.
type Catalog struct {
	conn *sql.DB
	log  logrus.FieldLogger
	now  func() time.Time
}

func Open(path string, log logrus.FieldLogger) (*Catalog, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	c := &Catalog{conn: conn, log: log.WithField("component", "catalog"), now: time.Now}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	if err := c.markInterrupted(); err != nil {
		c.log.WithError(err).Warn("mark interrupted jobs failed")
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.conn.Close()
}

func (c *Catalog) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || c.applied(name) {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := c.conn.Exec(string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := c.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		c.log.WithField("migration", name).Info("applied migration")
	}
	return nil
}

func (c *Catalog) applied(name string) bool {
	var one int
	if err := c.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&one); err != nil {
		return false
	}
	err := c.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&one)
	return err == nil
}

// markInterrupted fails jobs a previous process left running.
func (c *Catalog) markInterrupted() error {
	_, err := c.conn.Exec(`UPDATE jobs SET status = ?, error = 'interrupted by restart', error_kind = ?
		WHERE status NOT IN (?, ?)`,
		types.StateFailed, types.KindInternal, types.StateCompleted, types.StateFailed)
	return err
}

// SaveJob upserts the job row.
func (c *Catalog) SaveJob(ctx context.Context, j types.JobStatus) error {
	_, err := c.conn.ExecContext(ctx, `
		INSERT INTO jobs (id, video_url, formats, status, progress, message, note, error, error_kind, clip_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			message = excluded.message,
			note = excluded.note,
			error = excluded.error,
			error_kind = excluded.error_kind,
			clip_count = excluded.clip_count,
			updated_at = excluded.updated_at
	`, j.ID, j.URL, strings.Join(j.Formats, ","), j.State, j.Progress, j.Message, j.Note, j.Error, j.ErrorKind,
		len(j.Outputs), j.CreatedAt.UTC().Format(timeLayout), j.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// SaveClip records one finished asset. Saving the same path twice is a no-op.
func (c *Catalog) SaveClip(ctx context.Context, jobID string, src types.SourceVideo, a types.OutputAsset) error {
	_, err := c.conn.ExecContext(ctx, `
		INSERT INTO clips (job_id, video_url, video_title, filename, path, thumbnail, format, title, reason,
			engagement_score, start_sec, end_sec, duration_sec, width, height, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING
	`, jobID, src.URL, src.Title, a.Filename, a.Path, a.ThumbnailPath, a.Format, a.Title, a.Reason,
		a.Score, a.SourceStart.Seconds(), a.SourceEnd.Seconds(), a.DurationSec, a.Width, a.Height, a.FileSize,
		c.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save clip %s: %w", a.Filename, err)
	}
	return nil
}
