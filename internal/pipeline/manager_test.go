package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/entity"
	"github.com/oezeakachi/chartintake/internal/extract"
)

type fakeExtractor struct {
	res   entity.ExtractionResult
	err   error
	needs bool
}

func (f *fakeExtractor) Extract(ctx context.Context, _ []byte, progress chan<- extract.Progress) (entity.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.ExtractionResult{}, err
	}
	if progress != nil {
		for i := 1; i <= f.res.TotalPages; i++ {
			progress <- extract.Progress{Page: i, Total: f.res.TotalPages}
		}
	}
	return f.res, f.err
}

func (f *fakeExtractor) NeedsOCR([]byte, int) (bool, error) { return f.needs, nil }

func chartResult() entity.ExtractionResult {
	return entity.ExtractionResult{
		Text: `Patient Name: Jordan Rivera
MRN: A-204981

CURRENT MEDICATIONS:
- Metformin 500mg twice daily`,
		TotalPages:     2,
		MeanConfidence: 100,
		Warnings:       []string{"page 2 confidence 40 below threshold 60"},
	}
}

func newTestManager(t *testing.T, ext extract.TextExtractor, opts ...Option) *Manager {
	t.Helper()
	cfg := common.LoadConfig()
	return NewManager(cfg, ext, nil, opts...)
}

func TestRun_HappyPathEndsInReview(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{res: chartResult()})

	id, err := m.Submit("chart.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rev, err := m.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rev.JobID != id {
		t.Errorf("review job id = %s, want %s", rev.JobID, id)
	}
	if len(rev.Items) == 0 {
		t.Fatal("review has no items")
	}

	job, ok := m.Job(id)
	if !ok {
		t.Fatal("job not found after run")
	}
	if job.Status != constants.JobStatusReview {
		t.Errorf("status = %s, want REVIEW", job.Status)
	}
	if job.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", job.PageCount)
	}
	if len(job.Warnings) != 1 {
		t.Errorf("Warnings = %v, want the low-confidence warning carried over", job.Warnings)
	}
	if job.Medical == nil || len(job.Medical.Medications) != 1 {
		t.Error("extracted medications missing from job")
	}
}

func TestRun_UnknownJob(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{})
	_, err := m.Run(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRun_ExtractorFailureMovesToFailed(t *testing.T) {
	boom := fmt.Errorf("%w: bad header", common.ErrDocumentParse)
	m := newTestManager(t, &fakeExtractor{err: boom})

	id, _ := m.Submit("broken.pdf", []byte("junk"))
	_, err := m.Run(context.Background(), id)
	if !errors.Is(err, common.ErrDocumentParse) {
		t.Fatalf("err = %v, want ErrDocumentParse", err)
	}

	job, _ := m.Job(id)
	if job.Status != constants.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", job.Status)
	}
	if len(job.Errors) == 0 {
		t.Error("failure not recorded on job")
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set on terminal job")
	}
}

func TestRun_CancelledContextMovesToCancelled(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{res: chartResult()})

	id, _ := m.Submit("chart.pdf", []byte("pdf"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Run(ctx, id)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	job, _ := m.Job(id)
	if job.Status != constants.JobStatusCancelled {
		t.Errorf("status = %s, want CANCELLED (not FAILED)", job.Status)
	}
}

func TestCancel_BeforeStart(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{res: chartResult()})

	id, _ := m.Submit("chart.pdf", []byte("pdf"))
	if !m.Cancel(id) {
		t.Fatal("Cancel = false, want true")
	}
	job, _ := m.Job(id)
	if job.Status != constants.JobStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", job.Status)
	}

	// A cancelled job accepts no further work.
	_, err := m.Run(context.Background(), id)
	if !errors.Is(err, common.ErrJobTerminal) {
		t.Errorf("Run after cancel: err = %v, want ErrJobTerminal", err)
	}
	if m.Cancel(id) {
		t.Error("second Cancel = true, want false")
	}
}

func TestComplete_FinalizesReviewedJob(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{res: chartResult()})

	id, _ := m.Submit("chart.pdf", []byte("pdf"))
	if _, err := m.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Complete(id); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	job, _ := m.Job(id)
	if job.Status != constants.JobStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
}

func TestComplete_RejectsNonReviewJob(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{})
	id, _ := m.Submit("chart.pdf", []byte("pdf"))

	err := m.Complete(id)
	if !errors.Is(err, common.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmit_EmptyPayload(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{})
	_, err := m.Submit("empty.pdf", nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubscribe_ProgressIsMonotone(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{res: chartResult()})
	events := m.Subscribe(128)

	id, _ := m.Submit("chart.pdf", []byte("pdf"))
	if _, err := m.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Complete(id); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	last := -1
	sawReview, sawCompleted := false, false
	for {
		select {
		case ev := <-events:
			if ev.Progress < last {
				t.Errorf("progress regressed: %d after %d", ev.Progress, last)
			}
			last = ev.Progress
			if ev.Status == constants.JobStatusReview {
				sawReview = true
			}
			if ev.Status == constants.JobStatusCompleted {
				sawCompleted = true
			}
		default:
			if !sawReview || !sawCompleted {
				t.Errorf("missing lifecycle events (review=%t completed=%t)", sawReview, sawCompleted)
			}
			if last != 100 {
				t.Errorf("final progress = %d, want 100", last)
			}
			return
		}
	}
}

func TestRun_DropsSourceTextWhenNotRetained(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Entity.RetainSourceText = false
	m := NewManager(cfg, &fakeExtractor{res: chartResult()}, nil)

	id, _ := m.Submit("chart.pdf", []byte("pdf"))
	if _, err := m.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job, _ := m.Job(id)
	if job.Text != "" {
		t.Error("source text retained despite RETAIN_SOURCE_TEXT=false")
	}
	if job.Medical == nil {
		t.Error("extracted entities must survive text drop")
	}
}

func TestNeedsOCR_DelegatesToExtractor(t *testing.T) {
	m := newTestManager(t, &fakeExtractor{needs: true})
	needs, err := m.NeedsOCR([]byte("pdf"))
	if err != nil {
		t.Fatalf("NeedsOCR: %v", err)
	}
	if !needs {
		t.Error("NeedsOCR = false, want true")
	}
}
