package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/forPelevin/clipforge/internal/domain/highlights"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

type Source interface {
	Fetch(ctx context.Context, input, dir string) (string, error)
	Inspect(ctx context.Context, path, input, cacheDir string) (types.SourceVideo, error)
}

type Selector interface {
	Select(ctx context.Context, src types.SourceVideo, cfg highlights.Config) []types.Candidate
}

type ClipRenderer interface {
	Render(ctx context.Context, src types.SourceVideo, c types.Candidate, p types.FormatProfile, edits *types.EditSpec, out string) (types.OutputAsset, error)
}

type Deps struct {
	Source    Source
	Selector  Selector
	Renderer  ClipRenderer
	Sinks     []ports.AssetSink
	Publisher ports.Publisher
	Log       logrus.FieldLogger
}

type Options struct {
	Profiles  map[string]types.FormatProfile
	Selection highlights.Config
	// OutputDir holds one run dir per job.
	OutputDir   string
	DownloadDir string
	// WorkDir holds per-job scratch files (audio, captions), removed when
	// the job ends.
	WorkDir string
	// Workers caps concurrent renders across all jobs.
	Workers int
}

// Manager runs submitted jobs. Renders of every job share one semaphore.
type Manager struct {
	deps Deps
	opts Options
	log  logrus.FieldLogger
	sem  *semaphore.Weighted
	now  func() time.Time

	mu    sync.RWMutex
	jobs  map[string]*job
	order []string
	wg    sync.WaitGroup
}

func New(d Deps, o Options) *Manager {
	if o.Workers <= 0 {
		o.Workers = 3
	}
	if o.OutputDir == "" {
		o.OutputDir = "out"
	}
	if o.DownloadDir == "" {
		o.DownloadDir = filepath.Join(".cache", "downloads")
	}
	if o.WorkDir == "" {
		o.WorkDir = filepath.Join(".cache", "runs")
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		deps: d,
		opts: o,
		log:  log.WithField("component", "jobs"),
		sem:  semaphore.NewWeighted(int64(o.Workers)),
		now:  time.Now,
		jobs: map[string]*job{},
	}
}

// Submit validates the request, queues the job and returns its id. The job
// keeps running after ctx is done.
func (m *Manager) Submit(ctx context.Context, input string, formats []string) (string, error) {
	j, err := m.register(input, formats)
	if err != nil {
		return "", err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(context.WithoutCancel(ctx), j)
	}()
	return j.id(), nil
}

// Process runs a job to its terminal state on the caller's goroutine.
func (m *Manager) Process(ctx context.Context, input string, formats []string) (types.JobStatus, error) {
	j, err := m.register(input, formats)
	if err != nil {
		return types.JobStatus{}, err
	}
	m.run(ctx, j)
	return j.snapshot(), nil
}

func (m *Manager) Poll(id string) (types.JobStatus, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return types.JobStatus{}, fmt.Errorf("job %s: %w", id, types.ErrNotFound)
	}
	return j.snapshot(), nil
}

// List returns every job, newest first.
func (m *Manager) List() []types.JobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.JobStatus, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.jobs[m.order[i]].snapshot())
	}
	return out
}

// Wait blocks until the job is terminal or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (types.JobStatus, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return types.JobStatus{}, fmt.Errorf("job %s: %w", id, types.ErrNotFound)
	}
	select {
	case <-j.fin:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Shutdown waits for submitted jobs to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Profile resolves a format name.
func (m *Manager) Profile(name string) (types.FormatProfile, error) {
	p, ok := m.opts.Profiles[name]
	if !ok {
		return types.FormatProfile{}, types.Invalid("format", "unknown format %q", name)
	}
	return p, nil
}

func (m *Manager) register(input string, formats []string) (*job, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, types.Invalid("url", "must not be empty")
	}
	formats, err := m.resolveFormats(formats)
	if err != nil {
		return nil, err
	}
	j := newJob(uuid.NewString(), input, formats, m.now)
	m.mu.Lock()
	m.jobs[j.id()] = j
	m.order = append(m.order, j.id())
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"job_id": j.id(), "input": input, "formats": formats}).Info("job queued")
	return j, nil
}

// resolveFormats defaults to every profile and drops duplicates.
func (m *Manager) resolveFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		for name := range m.opts.Profiles {
			formats = append(formats, name)
		}
		sort.Strings(formats)
	}
	seen := make(map[string]bool, len(formats))
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, err := m.Profile(f); err != nil {
			return nil, types.Invalid("formats", "unknown format %q", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, types.Invalid("formats", "no formats configured")
	}
	return out, nil
}

type task struct {
	n         int
	candidate types.Candidate
	profile   types.FormatProfile
}

type result struct {
	asset types.OutputAsset
	err   error
}

func (m *Manager) run(ctx context.Context, j *job) {
	defer close(j.fin)
	log := m.log.WithField("job_id", j.id())
	work := filepath.Join(m.opts.WorkDir, j.id())
	defer os.RemoveAll(work)

	j.enter(types.StateDownloading, progressDownloading, "Downloading video...")
	path, err := m.deps.Source.Fetch(ctx, j.input, m.opts.DownloadDir)
	if err != nil {
		m.finishFailed(ctx, log, j, err)
		return
	}

	j.enter(types.StateProbing, progressProbing, "Analyzing video...")
	src, err := m.deps.Source.Inspect(ctx, path, j.input, work)
	if err != nil {
		m.finishFailed(ctx, log, j, err)
		return
	}
	log = log.WithField("source", src.Title)

	j.enter(types.StateSelecting, progressSelecting, "Finding highlights...")
	cands := m.deps.Selector.Select(ctx, src, m.opts.Selection)
	if len(cands) == 0 {
		log.Warn("no clips found")
		m.finishCompleted(ctx, log, j, src, nil, noteNoClips)
		return
	}

	outDir := RunDir(m.opts.OutputDir, src.Title, m.now())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		m.finishFailed(ctx, log, j, fmt.Errorf("create output dir: %w", err))
		return
	}

	formats := j.snapshot().Formats
	tasks := make([]task, 0, len(cands)*len(formats))
	for i, c := range cands {
		for _, f := range formats {
			p, _ := m.Profile(f)
			tasks = append(tasks, task{n: i + 1, candidate: c, profile: p})
		}
	}
	j.startRenders(len(tasks))
	log.WithFields(logrus.Fields{"candidates": len(cands), "renders": len(tasks), "out": outDir}).Info("rendering")

	slug := usecase.Slug(src.Title)
	results := make([]result, len(tasks))
	var g errgroup.Group
	for k, t := range tasks {
		g.Go(func() error {
			defer j.renderDone()
			if err := m.sem.Acquire(ctx, 1); err != nil {
				results[k].err = err
				return nil
			}
			defer m.sem.Release(1)
			j.activity(fmt.Sprintf("Creating clip %d/%d: %s (%s)...", t.n, len(cands), t.candidate.Title, t.profile.Name))
			out := filepath.Join(outDir, usecase.ClipFilename(slug, t.n, t.profile.Name))
			asset, err := m.deps.Renderer.Render(ctx, src, t.candidate, t.profile, nil, out)
			results[k] = result{asset: asset, err: err}
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{"clip": t.candidate.ID(), "format": t.profile.Name}).Warn("render failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	// Tasks are built in chronological order, so collecting by index
	// restores it regardless of completion order.
	var (
		outputs  []types.OutputAsset
		firstErr error
		failed   int
	)
	for _, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		outputs = append(outputs, r.asset)
	}
	if len(outputs) == 0 {
		m.finishFailed(ctx, log, j, fmt.Errorf("all %d renders failed: %w", len(tasks), firstErr))
		return
	}
	note := ""
	if failed > 0 {
		note = fmt.Sprintf("%d of %d renders failed", failed, len(tasks))
	}
	m.finishCompleted(ctx, log, j, src, outputs, note)
}

func (m *Manager) finishCompleted(ctx context.Context, log logrus.FieldLogger, j *job, src types.SourceVideo, outputs []types.OutputAsset, note string) {
	if outputs == nil {
		outputs = []types.OutputAsset{}
	}
	for _, a := range outputs {
		m.publish(ctx, log, j.id(), a)
		for _, s := range m.deps.Sinks {
			if err := s.SaveClip(ctx, j.id(), src, a); err != nil {
				log.WithError(err).WithField("clip", a.Filename).Warn("save clip failed")
			}
		}
	}
	j.complete(outputs, note)
	m.saveJob(ctx, log, j)
	log.WithFields(logrus.Fields{"clips": len(outputs), "note": note}).Info("job completed")
}

func (m *Manager) finishFailed(ctx context.Context, log logrus.FieldLogger, j *job, err error) {
	j.fail(err)
	m.saveJob(ctx, log, j)
	log.WithError(err).WithField("kind", types.KindOf(err)).Error("job failed")
}

func (m *Manager) publish(ctx context.Context, log logrus.FieldLogger, jobID string, a types.OutputAsset) {
	if m.deps.Publisher == nil {
		return
	}
	key, err := m.deps.Publisher.Publish(ctx, jobID, a)
	if err != nil {
		log.WithError(err).WithField("clip", a.Filename).Warn("publish failed")
		return
	}
	log.WithFields(logrus.Fields{"clip": a.Filename, "key": key}).Debug("published")
}

func (m *Manager) saveJob(ctx context.Context, log logrus.FieldLogger, j *job) {
	snap := j.snapshot()
	for _, s := range m.deps.Sinks {
		if err := s.SaveJob(ctx, snap); err != nil {
			log.WithError(err).Warn("save job failed")
		}
	}
}
