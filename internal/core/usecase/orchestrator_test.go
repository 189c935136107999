package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

type fakeUploadGateway struct {
	mu         sync.Mutex
	receipt    *domain.UploadReceipt
	uploadErr  error
	analysis   *domain.RawAnalysis
	fetchErr   error
	uploads    int
	fetches    int
	uploadHook func()
	lastSketch domain.Sketch
	lastTaskID string
}

func (f *fakeUploadGateway) Upload(_ context.Context, sketch domain.Sketch) (*domain.UploadReceipt, error) {
	f.mu.Lock()
	f.uploads++
	f.lastSketch = sketch
	hook := f.uploadHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.receipt, nil
}

func (f *fakeUploadGateway) FetchScore(_ context.Context, taskID string) (*domain.RawAnalysis, error) {
	f.mu.Lock()
	f.fetches++
	f.lastTaskID = taskID
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.analysis, nil
}

type recordedCycle struct {
	status string
	score  float64
}

type fakeMetrics struct {
	mu       sync.Mutex
	started  int
	finished []recordedCycle
	scores   []float64
}

func (f *fakeMetrics) CycleStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeMetrics) CycleFinished(status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, recordedCycle{status: status})
}

func (f *fakeMetrics) ObserveScore(score float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
}

func pngSketch(name string, size int64) domain.Sketch {
	return domain.Sketch{
		FileName: name,
		MimeType: "image/png",
		Size:     size,
		Data:     strings.NewReader("png-bytes"),
	}
}

func newTestOrchestrator(gateway *fakeUploadGateway, metrics UploadMetrics) (*UploadOrchestrator, *HistoryStore) {
	history := NewHistoryStore()
	orch := NewUploadOrchestrator(gateway, NewResultProjector(), history, metrics, nil, time.Millisecond)
	return orch, history
}

func TestSubmitInlineAnalysisCompletes(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt: &domain.UploadReceipt{
			TaskID: "task-9",
			Analysis: &domain.RawAnalysis{
				Score: 82,
				Violations: []domain.Violation{
					{Rule: domain.RuleTargetSize, IDs: []int{3}},
					{Rule: domain.RuleTargetSize, IDs: []int{4}},
					{Rule: domain.RuleSpacing, IDs: []int{1, 2}},
				},
				DebugImageURL: "https://cdn.example/debug.png",
			},
		},
	}
	metrics := &fakeMetrics{}
	orch, history := newTestOrchestrator(gateway, metrics)

	result, err := orch.Submit(context.Background(), pngSketch("wireframe.png", 2<<20))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 82 || result.Rating != domain.RatingGood {
		t.Fatalf("result = %+v", result)
	}
	if got := []int{result.Issues[0].Count, result.Issues[1].Count, result.Issues[2].Count}; got[0] != 2 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("issue counts = %v, want [2 1 0]", got)
	}
	if orch.Task().Status != domain.TaskCompleted {
		t.Fatalf("status = %v, want Completed", orch.Task().Status)
	}
	if gateway.fetches != 0 {
		t.Fatalf("inline analysis must not trigger a score fetch")
	}

	entries := history.Entries()
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].ID != "task-9" || entries[0].FileName != "wireframe.png" || entries[0].Score != 82 {
		t.Fatalf("history entry = %+v", entries[0])
	}
	if entries[0].Confirmed {
		t.Fatalf("optimistic entry must not be marked confirmed")
	}

	if metrics.started != 1 || len(metrics.finished) != 1 || metrics.finished[0].status != "completed" {
		t.Fatalf("metrics = %+v", metrics)
	}
	if len(metrics.scores) != 1 || metrics.scores[0] != 82 {
		t.Fatalf("scores = %v", metrics.scores)
	}
}

func TestSubmitAckThenFetch(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt:  &domain.UploadReceipt{TaskID: "task-5"},
		analysis: &domain.RawAnalysis{Score: 55},
	}
	orch, _ := newTestOrchestrator(gateway, nil)

	result, err := orch.Submit(context.Background(), pngSketch("form.png", 1024))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gateway.fetches != 1 || gateway.lastTaskID != "task-5" {
		t.Fatalf("fetches = %d task = %q", gateway.fetches, gateway.lastTaskID)
	}
	if result.Rating != domain.RatingNeedsImprovement {
		t.Fatalf("rating = %q", result.Rating)
	}
}

func TestSubmitRejectsOversizedSketch(t *testing.T) {
	gateway := &fakeUploadGateway{}
	orch, history := newTestOrchestrator(gateway, nil)

	_, err := orch.Submit(context.Background(), pngSketch("huge.png", 15<<20))
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if orch.Task().Status != domain.TaskIdle {
		t.Fatalf("validation failure must leave the machine idle")
	}
	if gateway.uploads != 0 {
		t.Fatalf("rejected sketch must not reach the gateway")
	}
	if history.Len() != 0 {
		t.Fatalf("rejected sketch must not create history")
	}
}

func TestSubmitRejectsUnsupportedType(t *testing.T) {
	orch, _ := newTestOrchestrator(&fakeUploadGateway{}, nil)

	sketch := domain.Sketch{FileName: "doc.pdf", MimeType: "application/pdf", Size: 1024, Data: strings.NewReader("x")}
	_, err := orch.Submit(context.Background(), sketch)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if orch.Task().Status != domain.TaskIdle {
		t.Fatalf("validation failure must leave the machine idle")
	}
}

func TestSubmitUploadFailure(t *testing.T) {
	cause := errors.New("connection refused")
	gateway := &fakeUploadGateway{uploadErr: cause}
	metrics := &fakeMetrics{}
	orch, history := newTestOrchestrator(gateway, metrics)

	_, err := orch.Submit(context.Background(), pngSketch("a.png", 100))
	if !domain.IsKind(err, domain.ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if orch.Task().Status != domain.TaskFailed {
		t.Fatalf("status = %v, want Failed", orch.Task().Status)
	}
	if orch.Err() == nil {
		t.Fatalf("failure must be retained")
	}
	if history.Len() != 0 {
		t.Fatalf("failed cycle must not create history")
	}
	if metrics.finished[0].status != "upload_failed" {
		t.Fatalf("metric status = %q", metrics.finished[0].status)
	}
}

func TestSubmitScoreRetrievalFailure(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt:  &domain.UploadReceipt{TaskID: "task-1"},
		fetchErr: errors.New("score not ready"),
	}
	metrics := &fakeMetrics{}
	orch, history := newTestOrchestrator(gateway, metrics)

	_, err := orch.Submit(context.Background(), pngSketch("a.png", 100))
	if !domain.IsKind(err, domain.ErrScoreRetrieval) {
		t.Fatalf("err = %v, want ErrScoreRetrieval", err)
	}
	if orch.Task().Status != domain.TaskFailed {
		t.Fatalf("status = %v, want Failed", orch.Task().Status)
	}
	if history.Len() != 0 {
		t.Fatalf("failed cycle must not create history")
	}
	if metrics.finished[0].status != "score_failed" {
		t.Fatalf("metric status = %q", metrics.finished[0].status)
	}
}

func TestResetFromIdleIsNoOp(t *testing.T) {
	orch, _ := newTestOrchestrator(&fakeUploadGateway{}, nil)

	before := orch.Task()
	orch.Reset()
	if orch.Task() != before {
		t.Fatalf("reset from idle changed state")
	}
}

func TestResetClearsResultAndError(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt: &domain.UploadReceipt{Analysis: &domain.RawAnalysis{Score: 90}},
	}
	orch, _ := newTestOrchestrator(gateway, nil)

	if _, err := orch.Submit(context.Background(), pngSketch("a.png", 100)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orch.Reset()
	if orch.Task().Status != domain.TaskIdle {
		t.Fatalf("status = %v, want Idle", orch.Task().Status)
	}
	if orch.Result() != nil || orch.Err() != nil {
		t.Fatalf("reset must clear result and error")
	}
}

func TestResetDuringCycleSupersedesIt(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt: &domain.UploadReceipt{Analysis: &domain.RawAnalysis{Score: 90}},
	}
	orch, history := newTestOrchestrator(gateway, nil)
	gateway.uploadHook = orch.Reset

	_, err := orch.Submit(context.Background(), pngSketch("a.png", 100))
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if orch.Task().Status != domain.TaskIdle {
		t.Fatalf("status = %v, want Idle after reset", orch.Task().Status)
	}
	if history.Len() != 0 {
		t.Fatalf("superseded cycle must not create history")
	}
}

func TestNewerSubmitSupersedesOutstandingCycle(t *testing.T) {
	gateway := &fakeUploadGateway{
		receipt: &domain.UploadReceipt{Analysis: &domain.RawAnalysis{Score: 61}},
	}
	orch, history := newTestOrchestrator(gateway, nil)

	var second sync.WaitGroup
	var firstUpload atomic.Bool
	firstUpload.Store(true)
	gateway.uploadHook = func() {
		// sync.Once would deadlock here: Do blocks concurrent callers, so
		// the second Submit's upload would block on the Once held by the
		// first upload, which in turn waits for the second Submit.
		if firstUpload.CompareAndSwap(true, false) {
			second.Add(1)
			go func() {
				defer second.Done()
				if _, err := orch.Submit(context.Background(), pngSketch("b.png", 100)); err != nil {
					t.Errorf("second Submit: %v", err)
				}
			}()
			second.Wait()
		}
	}

	_, err := orch.Submit(context.Background(), pngSketch("a.png", 100))
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first submit err = %v, want ErrSuperseded", err)
	}
	if orch.Task().Status != domain.TaskCompleted {
		t.Fatalf("status = %v, want Completed from the newer cycle", orch.Task().Status)
	}
	if history.Len() != 1 {
		t.Fatalf("history entries = %d, want exactly the newer cycle's", history.Len())
	}
	if history.Entries()[0].FileName != "b.png" {
		t.Fatalf("history entry = %+v", history.Entries()[0])
	}
}

func TestAwaitResultHonorsContextCancellation(t *testing.T) {
	gateway := &fakeUploadGateway{receipt: &domain.UploadReceipt{TaskID: "task-1"}}
	history := NewHistoryStore()
	orch := NewUploadOrchestrator(gateway, NewResultProjector(), history, nil, nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	gateway.uploadHook = cancel

	_, err := orch.Submit(ctx, pngSketch("a.png", 100))
	if !domain.IsKind(err, domain.ErrScoreRetrieval) {
		t.Fatalf("err = %v, want ErrScoreRetrieval", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if gateway.fetches != 0 {
		t.Fatalf("cancelled wait must not fetch")
	}
}
