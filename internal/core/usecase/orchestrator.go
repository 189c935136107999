package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
	"github.com/sketchcheck/sketchcheck-client/internal/core/ports"
)

// ErrSuperseded is returned to a submit call whose cycle was
// invalidated by a reset or a newer submission before it could
// complete. The superseded cycle applies no state.
var ErrSuperseded = errors.New("upload cycle superseded")

// UploadMetrics receives upload-cycle observations. Implementations
// must be safe for concurrent use.
type UploadMetrics interface {
	CycleStarted()
	CycleFinished(status string, duration time.Duration)
	ObserveScore(score float64)
}

// UploadOrchestrator drives one upload-to-result cycle through the
// explicit state machine Idle -> Uploading -> Pending -> Completed,
// with Failed edges out of Uploading and Pending. Completed and Failed
// return to Idle only via Reset. Exactly one cycle is live at a time:
// every async continuation is guarded by a generation counter so a
// slow stale response can never resurrect a discarded task.
type UploadOrchestrator struct {
	uploads   ports.UploadGateway
	projector *ResultProjector
	history   *HistoryStore
	metrics   UploadMetrics
	logger    *slog.Logger
	settle    time.Duration
	newID     func() string
	now       func() time.Time

	mu         sync.Mutex
	generation uint64
	task       domain.UploadTask
	result     *domain.ProjectedResult
	lastErr    error
}

// DefaultSettleDelay matches the backend's analysis settling window
// for the ack-then-fetch upload variant.
const DefaultSettleDelay = 3 * time.Second

func NewUploadOrchestrator(
	uploads ports.UploadGateway,
	projector *ResultProjector,
	history *HistoryStore,
	metrics UploadMetrics,
	logger *slog.Logger,
	settleDelay time.Duration,
) *UploadOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	return &UploadOrchestrator{
		uploads:   uploads,
		projector: projector,
		history:   history,
		metrics:   metrics,
		logger:    logger,
		settle:    settleDelay,
		newID:     uuid.NewString,
		now:       time.Now,
		task:      domain.UploadTask{Status: domain.TaskIdle},
	}
}

// Submit validates the sketch, runs it through the upload collaborator
// and, on success, projects the analysis, appends a history entry and
// retains the result for presentation. Validation failures are
// synchronous and leave the state machine untouched. A Submit issued
// while a prior cycle is outstanding supersedes it.
func (o *UploadOrchestrator) Submit(ctx context.Context, sketch domain.Sketch) (*domain.ProjectedResult, error) {
	if err := domain.ValidateSketch(sketch); err != nil {
		o.logger.Warn("sketch_rejected", "file", sketch.FileName, "size", sketch.Size, "mime", sketch.MimeType)
		return nil, err
	}

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.task = domain.UploadTask{
		ID:        o.newID(),
		FileName:  sketch.FileName,
		Status:    domain.TaskUploading,
		StartedAt: o.now(),
	}
	o.result = nil
	o.lastErr = nil
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.CycleStarted()
	}
	started := o.now()
	result, err := o.run(ctx, gen, sketch)
	if o.metrics != nil {
		o.metrics.CycleFinished(cycleStatus(err), o.now().Sub(started))
		if err == nil && result != nil {
			o.metrics.ObserveScore(result.Score)
		}
	}
	return result, err
}

func (o *UploadOrchestrator) run(ctx context.Context, gen uint64, sketch domain.Sketch) (*domain.ProjectedResult, error) {
	receipt, err := o.uploads.Upload(ctx, sketch)
	if err != nil {
		return nil, o.fail(gen, domain.ErrUploadFailed, "upload sketch", err)
	}
	if !o.advance(gen, domain.TaskPending) {
		return nil, ErrSuperseded
	}

	raw, err := o.awaitResult(ctx, gen, receipt)
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil, err
		}
		return nil, o.fail(gen, domain.ErrScoreRetrieval, "await analysis result", err)
	}

	projected := o.projector.Project(raw)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return nil, ErrSuperseded
	}
	entryID := receipt.TaskID
	if entryID == "" {
		entryID = o.task.ID
	}
	// The history append happens before the task flips to Completed so
	// no observer ever sees a result without its history entry.
	o.history.Append(domain.HistoryEntry{
		ID:         entryID,
		FileName:   o.task.FileName,
		UploadedAt: o.now(),
		Score:      projected.Score,
		ImageRef:   projected.ImageRef,
		Confirmed:  false,
	})
	o.task.Status = domain.TaskCompleted
	o.result = &projected
	o.mu.Unlock()

	o.logger.Info("upload_completed",
		"task_id", entryID,
		"file", sketch.FileName,
		"score", projected.Score,
		"rating", string(projected.Rating),
	)
	return &projected, nil
}

// awaitResult resolves the raw analysis behind one interface for both
// collaborator shapes: an inline analysis returns immediately, a bare
// acknowledgement waits out the settling delay and fetches the score.
func (o *UploadOrchestrator) awaitResult(ctx context.Context, gen uint64, receipt *domain.UploadReceipt) (*domain.RawAnalysis, error) {
	if receipt.Analysis != nil {
		return receipt.Analysis, nil
	}

	timer := time.NewTimer(o.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	if o.stale(gen) {
		return nil, ErrSuperseded
	}

	return o.uploads.FetchScore(ctx, receipt.TaskID)
}

// Reset returns the machine to Idle and clears the retained result and
// error. Valid from any non-Idle state; calling it from Idle is a
// no-op. Any outstanding continuation of the current cycle is
// invalidated.
func (o *UploadOrchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.task.Status == domain.TaskIdle {
		return
	}
	o.generation++
	o.task = domain.UploadTask{Status: domain.TaskIdle}
	o.result = nil
	o.lastErr = nil
}

// Task returns a copy of the active upload task.
func (o *UploadOrchestrator) Task() domain.UploadTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.task
}

// Result returns the retained projection of the last completed cycle,
// or nil.
func (o *UploadOrchestrator) Result() *domain.ProjectedResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Err returns the retained failure of the last cycle, or nil. The
// error kind distinguishes ErrUploadFailed from ErrScoreRetrieval.
func (o *UploadOrchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *UploadOrchestrator) advance(gen uint64, status domain.TaskStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return false
	}
	o.task.Status = status
	return true
}

func (o *UploadOrchestrator) stale(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen != o.generation
}

func (o *UploadOrchestrator) fail(gen uint64, kind error, operation string, cause error) error {
	wrapped := domain.WrapError(kind, operation, cause)
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return ErrSuperseded
	}
	o.task.Status = domain.TaskFailed
	o.lastErr = wrapped
	o.logger.Error("upload_cycle_failed", "task_id", o.task.ID, "error", wrapped)
	return wrapped
}

func cycleStatus(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case domain.IsKind(err, domain.ErrUploadFailed):
		return "upload_failed"
	case domain.IsKind(err, domain.ErrScoreRetrieval):
		return "score_failed"
	default:
		return "error"
	}
}
