package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

type Clip struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"job_id"`
	VideoURL    string    `json:"video_url"`
	VideoTitle  string    `json:"video_title"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Thumbnail   string    `json:"thumbnail"`
	Format      string    `json:"format"`
	Title       string    `json:"title"`
	Reason      string    `json:"reason"`
	Score       float64   `json:"engagement_score"`
	StartSec    float64   `json:"start_sec"`
	EndSec      float64   `json:"end_sec"`
	DurationSec float64   `json:"duration"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FileSize    int64     `json:"file_size"`
	Views       int64     `json:"views"`
	Downloads   int64     `json:"downloads"`
	CreatedAt   time.Time `json:"created_at"`
}

// Asset converts the row back into the value compilation and editing take.
func (c Clip) Asset() types.OutputAsset {
	return types.OutputAsset{
		Path:          c.Path,
		Filename:      c.Filename,
		ThumbnailPath: c.Thumbnail,
		Format:        c.Format,
		Duration:      time.Duration(c.DurationSec * float64(time.Second)),
		DurationSec:   c.DurationSec,
		Width:         c.Width,
		Height:        c.Height,
		FileSize:      c.FileSize,
		Score:         c.Score,
		Title:         c.Title,
		Reason:        c.Reason,
		SourceStart:   time.Duration(c.StartSec * float64(time.Second)),
		SourceEnd:     time.Duration(c.EndSec * float64(time.Second)),
	}
}

type ListOptions struct {
	// Search matches title, reason and source title.
	Search string
	Format string
	JobID  string
	// Sort is one of newest, oldest, score, views, duration.
	Sort  string
	Limit int
}

var sortClauses = map[string]string{
	"":         "created_at DESC, id DESC",
	"newest":   "created_at DESC, id DESC",
	"oldest":   "created_at ASC, id ASC",
	"score":    "engagement_score DESC, id DESC",
	"views":    "views DESC, id DESC",
	"duration": "duration_sec DESC, id DESC",
}

const clipColumns = `id, job_id, video_url, video_title, filename, path, thumbnail, format, title, reason,
	engagement_score, start_sec, end_sec, duration_sec, width, height, file_size, views, downloads, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanClip(s scanner) (Clip, error) {
	var (
		c         Clip
		createdAt string
	)
	err := s.Scan(&c.ID, &c.JobID, &c.VideoURL, &c.VideoTitle, &c.Filename, &c.Path, &c.Thumbnail, &c.Format,
		&c.Title, &c.Reason, &c.Score, &c.StartSec, &c.EndSec, &c.DurationSec, &c.Width, &c.Height,
		&c.FileSize, &c.Views, &c.Downloads, &createdAt)
	if err != nil {
		return Clip{}, err
	}
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return c, nil
}

func (c *Catalog) GetClip(ctx context.Context, id int64) (Clip, error) {
	row := c.conn.QueryRowContext(ctx, "SELECT "+clipColumns+" FROM clips WHERE id = ?", id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Clip{}, fmt.Errorf("clip %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return Clip{}, fmt.Errorf("get clip %d: %w", id, err)
	}
	return clip, nil
}

func (c *Catalog) ListClips(ctx context.Context, o ListOptions) ([]Clip, error) {
	order, ok := sortClauses[strings.ToLower(o.Sort)]
	if !ok {
		return nil, types.Invalid("sort", "unknown sort %q", o.Sort)
	}
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(o.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(title LIKE ? OR reason LIKE ? OR video_title LIKE ?)")
		args = append(args, like, like, like)
	}
	if o.Format != "" {
		where = append(where, "format = ?")
		args = append(args, o.Format)
	}
	if o.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, o.JobID)
	}
	q := "SELECT " + clipColumns + " FROM clips"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + order
	if o.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, o.Limit)
	}

	rows, err := c.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()
	clips := []Clip{}
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// Counter names a per-clip usage counter.
type Counter string

const (
	CounterViews     Counter = "views"
	CounterDownloads Counter = "downloads"
)

func (c *Catalog) Increment(ctx context.Context, id int64, counter Counter) error {
	if counter != CounterViews && counter != CounterDownloads {
		return types.Invalid("counter", "unknown counter %q", counter)
	}
	res, err := c.conn.ExecContext(ctx, fmt.Sprintf("UPDATE clips SET %[1]s = %[1]s + 1 WHERE id = ?", counter), id)
	if err != nil {
		return fmt.Errorf("increment %s: %w", counter, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("clip %d: %w", id, types.ErrNotFound)
	}
	return nil
}
