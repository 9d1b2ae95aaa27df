// Package pipeline owns the import-job state machine and sequences the
// phases of one intake run: page extraction, entity extraction, duplicate
// detection and review assembly. It is the only component the host
// application talks to directly; all job mutation funnels through its
// transition function.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/dedupe"
	"github.com/oezeakachi/chartintake/internal/entity"
	"github.com/oezeakachi/chartintake/internal/extract"
	"github.com/oezeakachi/chartintake/internal/medical"
	"github.com/oezeakachi/chartintake/internal/repository"
	"github.com/oezeakachi/chartintake/internal/review"
)

// Event is published to subscribers on every status or progress change so a
// host UI can react without polling.
type Event struct {
	JobID    uuid.UUID
	Status   constants.JobStatus
	Progress int
	Message  string
}

// Manager sequences import jobs. The configuration it holds is read-only to
// every downstream component once a job starts.
type Manager struct {
	cfg       *common.Config
	logger    *slog.Logger
	extractor extract.TextExtractor
	medical   *medical.Extractor
	detector  *dedupe.Detector
	builder   *review.Builder
	records   repository.RecordStore // optional; without it the duplicate pass is skipped
	staging   repository.JobStore    // optional

	mu       sync.Mutex
	jobs     map[uuid.UUID]*entity.ImportJob
	payloads map[uuid.UUID][]byte
	cancels  map[uuid.UUID]context.CancelFunc
	subs     []chan Event
}

// Option configures optional collaborators.
type Option func(*Manager)

// WithRecordStore enables the duplicate pass against the patient record
// store.
func WithRecordStore(rs repository.RecordStore) Option {
	return func(m *Manager) { m.records = rs }
}

// WithJobStore enables staging persistence of finished jobs.
func WithJobStore(js repository.JobStore) Option {
	return func(m *Manager) { m.staging = js }
}

func NewManager(cfg *common.Config, extractor extract.TextExtractor, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		extractor: extractor,
		medical:   medical.NewExtractor(logger),
		detector:  dedupe.NewDetector(logger),
		builder:   review.NewBuilder(cfg.Entity.Threshold, logger),
		jobs:      make(map[uuid.UUID]*entity.ImportJob),
		payloads:  make(map[uuid.UUID][]byte),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Subscribe returns a channel of job events. Events are dispatched
// non-blocking: a subscriber that falls behind misses events rather than
// stalling the pipeline.
func (m *Manager) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Submit registers a new pending job for the payload.
func (m *Manager) Submit(sourceName string, payload []byte) (uuid.UUID, error) {
	if len(payload) == 0 {
		return uuid.Nil, fmt.Errorf("%w: empty payload", common.ErrInvalidInput)
	}
	job := &entity.ImportJob{
		ID:         uuid.New(),
		SourceName: sourceName,
		SourceSize: int64(len(payload)),
		Status:     constants.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.payloads[job.ID] = payload
	m.mu.Unlock()

	m.logger.Info("pipeline.job.submitted", "job_id", job.ID, "source", sourceName, "bytes", len(payload))
	return job.ID, nil
}

// Job returns a snapshot copy of the job.
func (m *Manager) Job(id uuid.UUID) (entity.ImportJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return entity.ImportJob{}, false
	}
	return *job, true
}

// NeedsOCR runs the cheap pre-check over the first configured sample of
// pages without committing to full processing.
func (m *Manager) NeedsOCR(payload []byte) (bool, error) {
	return m.extractor.NeedsOCR(payload, m.cfg.OCR.SampleSize)
}

// Run executes a submitted job through review assembly. On return the job
// sits in REVIEW (awaiting Complete), or in a terminal FAILED/CANCELLED
// state if err is non-nil.
func (m *Manager) Run(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	payload := m.payloads[id]
	ctx, cancel := context.WithCancel(common.WithJobID(ctx, id))
	if err := m.transitionLocked(job, constants.JobStatusProcessing, "processing started"); err != nil {
		m.mu.Unlock()
		cancel()
		return nil, err
	}
	m.cancels[id] = cancel
	m.setProgressLocked(job, 5, "document loaded")
	m.mu.Unlock()
	defer cancel()

	// Page extraction: progress events arrive on a channel so reporting
	// can never block the sequential page loop.
	progressCh := make(chan extract.Progress, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range progressCh {
			m.pageProgress(id, p)
		}
	}()
	res, err := m.extractor.Extract(ctx, payload, progressCh)
	close(progressCh)
	<-drained
	if err != nil {
		return nil, m.terminate(id, err)
	}

	m.mu.Lock()
	job.PageCount = res.TotalPages
	job.UsedOCR = res.UsedOCR
	job.Text = res.Text
	job.Errors = append(job.Errors, res.Errors...)
	job.Warnings = append(job.Warnings, res.Warnings...)
	if res.UsedOCR && res.MeanConfidence.Normalized() < entity.EntityConfidence(m.cfg.Entity.Threshold) {
		job.Warnings = append(job.Warnings, fmt.Sprintf(
			"overall recognition confidence %.2f below the %.2f review threshold; expect weak extraction",
			float64(res.MeanConfidence.Normalized()), m.cfg.Entity.Threshold))
	}
	m.setProgressLocked(job, 50, "pages aggregated")
	if err := m.transitionLocked(job, constants.JobStatusExtracting, "entity extraction started"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, m.terminate(id, err)
	}

	med := m.medical.Extract(res.Text)
	m.mu.Lock()
	job.Medical = med
	m.setProgressLocked(job, 70, "entities extracted")
	m.mu.Unlock()

	dups := m.detectDuplicates(ctx, id, med)
	m.mu.Lock()
	m.setProgressLocked(job, 80, "duplicate scan finished")
	if err := m.transitionLocked(job, constants.JobStatusReview, "review preparation"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, m.terminate(id, err)
	}

	rev := m.builder.Build(id, med, dups)

	m.mu.Lock()
	if !m.cfg.Entity.RetainSourceText {
		job.Text = ""
	}
	m.setProgressLocked(job, 95, "review ready")
	snapshot := *job
	m.mu.Unlock()

	m.persist(ctx, &snapshot)
	return &rev, nil
}

// Complete finalizes a reviewed job. The host calls this after committing
// (or discarding) the review.
func (m *Manager) Complete(id uuid.UUID) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err := m.transitionLocked(job, constants.JobStatusCompleted, "completed"); err != nil {
		m.mu.Unlock()
		return err
	}
	m.setProgressLocked(job, 100, "completed")
	snapshot := *job
	m.mu.Unlock()

	m.persist(context.Background(), &snapshot)
	m.cleanup(id)
	return nil
}

// Cancel requests cancellation of a running job. A pending job is cancelled
// immediately; a running one transitions once the page loop observes the
// signal.
func (m *Manager) Cancel(id uuid.UUID) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		m.mu.Unlock()
		return false
	}
	if cancel, running := m.cancels[id]; running {
		m.mu.Unlock()
		cancel()
		return true
	}
	// Not running yet: cancel in place.
	_ = m.transitionLocked(job, constants.JobStatusCancelled, "cancelled before start")
	m.mu.Unlock()
	m.cleanup(id)
	return true
}

// terminate moves a job into FAILED or CANCELLED depending on the cause and
// returns the error the caller should surface.
func (m *Manager) terminate(id uuid.UUID, cause error) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return cause
	}
	if errors.Is(cause, context.Canceled) {
		_ = m.transitionLocked(job, constants.JobStatusCancelled, "cancelled")
	} else {
		job.Errors = append(job.Errors, cause.Error())
		_ = m.transitionLocked(job, constants.JobStatusFailed, cause.Error())
	}
	snapshot := *job
	m.mu.Unlock()

	m.persist(context.Background(), &snapshot)
	m.cleanup(id)
	return cause
}

func (m *Manager) detectDuplicates(ctx context.Context, id uuid.UUID, med *entity.ExtractedMedicalData) []entity.DuplicateCandidate {
	if m.records == nil {
		return nil
	}
	patientID := ""
	if med.Header != nil {
		patientID = med.Header.Identifier
	}
	if patientID == "" {
		m.logger.Warn("pipeline.dedupe.skipped", "job_id", id, "reason", "no patient identifier in header")
		return nil
	}
	kinds := []constants.EntityType{
		constants.EntityCondition,
		constants.EntityMedication,
		constants.EntityLabResult,
		constants.EntityProcedure,
		constants.EntityAllergy,
	}
	var existing []entity.ExistingRecord
	for _, kind := range kinds {
		recs, err := m.records.ExistingRecords(ctx, patientID, kind)
		if err != nil {
			// Advisory pass: a record-store failure downgrades to a warning.
			m.mu.Lock()
			if job, ok := m.jobs[id]; ok {
				job.Warnings = append(job.Warnings, fmt.Sprintf("duplicate scan unavailable for %s: %v", kind, err))
			}
			m.mu.Unlock()
			continue
		}
		existing = append(existing, recs...)
	}
	return m.detector.Detect(med.All(), existing)
}

// pageProgress maps page-loop progress into the 10..30 band.
func (m *Manager) pageProgress(id uuid.UUID, p extract.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || p.Total <= 0 {
		return
	}
	m.setProgressLocked(job, 10+(20*p.Page)/p.Total, p.Message)
}

// transitionLocked validates and applies a status change and notifies
// subscribers. Callers hold m.mu.
func (m *Manager) transitionLocked(job *entity.ImportJob, to constants.JobStatus, msg string) error {
	if !constants.CanTransition(job.Status, to) {
		if job.Status.Terminal() {
			return fmt.Errorf("%w: %s", common.ErrJobTerminal, job.Status)
		}
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, job.Status, to)
	}
	from := job.Status
	job.Status = to
	if to.Terminal() {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	m.logger.Info("pipeline.job.transition", "job_id", job.ID, "from", string(from), "to", string(to))
	m.notifyLocked(Event{JobID: job.ID, Status: to, Progress: job.Progress, Message: msg})
	return nil
}

// setProgressLocked clamps progress to be monotonically non-decreasing.
func (m *Manager) setProgressLocked(job *entity.ImportJob, pct int, msg string) {
	if pct > 100 {
		pct = 100
	}
	if pct <= job.Progress {
		return
	}
	job.Progress = pct
	m.notifyLocked(Event{JobID: job.ID, Status: job.Status, Progress: pct, Message: msg})
}

func (m *Manager) notifyLocked(ev Event) {
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Manager) persist(ctx context.Context, job *entity.ImportJob) {
	if m.staging == nil {
		return
	}
	if err := m.staging.SaveJob(ctx, job); err != nil {
		m.logger.Error("pipeline.staging.save_failed", "job_id", job.ID, "error", err)
	}
}

func (m *Manager) cleanup(id uuid.UUID) {
	m.mu.Lock()
	delete(m.payloads, id)
	delete(m.cancels, id)
	m.mu.Unlock()
}
