package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Progress checkpoints per state. Rendering moves from renderStart to
// renderEnd as renders complete or fail.
const (
	progressDownloading = 10
	progressProbing     = 30
	progressSelecting   = 40
	renderStart         = 50
	renderEnd           = 95
	progressDone        = 100
)

const noteNoClips = "no clips found"

// job is the lock-guarded aggregate for one submission. Workers only touch it
// through its methods.
type job struct {
	mu     sync.Mutex
	status types.JobStatus
	input  string
	total  int
	done   int
	now    func() time.Time
	fin    chan struct{}
}

func newJob(id, input string, formats []string, now func() time.Time) *job {
	t := now().UTC()
	return &job{
		input: input,
		now:   now,
		fin:   make(chan struct{}),
		status: types.JobStatus{
			ID:        id,
			URL:       input,
			Formats:   formats,
			State:     types.StateQueued,
			Message:   "Queued",
			Outputs:   []types.OutputAsset{},
			CreatedAt: t,
			UpdatedAt: t,
		},
	}
}

func (j *job) id() string { return j.status.ID }

func (j *job) enter(state types.JobState, progress int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.State = state
	j.status.Progress = progress
	j.status.Message = msg
	j.status.UpdatedAt = j.now().UTC()
}

func (j *job) startRenders(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.total, j.done = total, 0
	j.status.State = types.StateRendering
	j.status.Progress = renderStart
	j.status.Message = fmt.Sprintf("Rendering %d clips...", total)
	j.status.UpdatedAt = j.now().UTC()
}

func (j *job) activity(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Message = msg
	j.status.UpdatedAt = j.now().UTC()
}

// renderDone counts one completed or failed render.
func (j *job) renderDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done++
	if j.total > 0 {
		j.status.Progress = renderStart + (renderEnd-renderStart)*j.done/j.total
	}
	j.status.UpdatedAt = j.now().UTC()
}

func (j *job) complete(outputs []types.OutputAsset, note string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.State = types.StateCompleted
	j.status.Progress = progressDone
	j.status.Outputs = outputs
	j.status.Note = note
	j.status.Message = fmt.Sprintf("Completed: %d clips", len(outputs))
	j.status.UpdatedAt = j.now().UTC()
}

func (j *job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.State = types.StateFailed
	j.status.Progress = progressDone
	j.status.Error = err.Error()
	j.status.ErrorKind = types.KindOf(err)
	j.status.Message = "Failed"
	j.status.UpdatedAt = j.now().UTC()
}

func (j *job) snapshot() types.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Formats = append([]string(nil), j.status.Formats...)
	s.Outputs = append([]types.OutputAsset{}, j.status.Outputs...)
	return s
}
