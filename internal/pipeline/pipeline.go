package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"triageapi/internal/audit"
	"triageapi/internal/extractor"
	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// Job is one unit of background extraction work. The raw bytes travel with
// the job so workers never re-read from object storage.
type Job struct {
	DocumentID  string
	PatientID   string
	Data        []byte
	ContentType string
	Role        model.UserRole
}

// ErrClosed is returned by Enqueue after Close has been called.
var ErrClosed = errors.New("pipeline is closed")

// Pipeline runs document extraction on a fixed pool of workers.
//
// Enqueue is fire-and-forget from the intake path's perspective: once a job
// is accepted there is no cancellation, workers run on a background context
// and always drive the document to a terminal state. Close drains the queue
// before returning, so accepted jobs survive a graceful shutdown.
type Pipeline struct {
	docs    repository.DocumentRepository
	extract extractor.Extractor
	auditor audit.Recorder

	jobs      chan Job
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	out       io.Writer
	processed *prometheus.CounterVec
}

// New creates a Pipeline and registers its metrics with reg.
func New(docs repository.DocumentRepository, ext extractor.Extractor, auditor audit.Recorder, workers, queueSize int, reg prometheus.Registerer) (*Pipeline, error) {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	processed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Total number of documents driven to a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(processed); err != nil {
		return nil, err
	}

	p := &Pipeline{
		docs:      docs,
		extract:   ext,
		auditor:   auditor,
		jobs:      make(chan Job, queueSize),
		out:       os.Stdout,
		processed: processed,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

// Enqueue hands a job to the worker pool. It blocks only while the queue is
// full and returns ErrClosed once the pipeline has shut down.
func (p *Pipeline) Enqueue(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.jobs <- job
	return nil
}

// Close stops accepting jobs and waits for queued work to finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(job)
	}
}

// process drives one document from its in-flight state to a terminal one.
// A client that stops polling does not stop this work.
func (p *Pipeline) process(job Job) {
	ctx := context.Background()

	if _, err := p.docs.MarkProcessing(ctx, job.DocumentID); err != nil {
		// The flip to PROCESSING is informational for pollers; extraction
		// still owns the terminal write, so keep going.
		p.logEvent("mark_processing_failed", job, err.Error())
	}

	result, err := p.safeExtract(ctx, job)
	if err != nil {
		p.fail(ctx, job, failureReason(err))
		return
	}

	wrote, err := p.docs.MarkExtracted(ctx, job.DocumentID, result.Text, result.Structured)
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("failed to persist extraction result: %v", err))
		return
	}
	if !wrote {
		// Row was already terminal. Terminal states are final, so neither
		// a status write nor an audit entry happens here.
		p.logEvent("terminal_state_preserved", job, "")
		return
	}

	p.processed.WithLabelValues("extracted").Inc()
	p.auditor.Record(ctx, model.ActionDocumentProcessed, job.Role, job.PatientID, map[string]any{
		"documentId": job.DocumentID,
	})
}

// safeExtract shields the pipeline from a panicking extractor implementation:
// a panic becomes an ordinary extraction failure.
func (p *Pipeline) safeExtract(ctx context.Context, job Job) (result *model.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &extractor.ExtractionError{Reason: fmt.Sprintf("extraction panicked: %v", r)}
		}
	}()
	return p.extract.Extract(ctx, job.Data, job.ContentType)
}

func (p *Pipeline) fail(ctx context.Context, job Job, reason string) {
	wrote, err := p.docs.MarkFailed(ctx, job.DocumentID, reason)
	if err != nil {
		p.logEvent("mark_failed_failed", job, err.Error())
		return
	}
	if !wrote {
		p.logEvent("terminal_state_preserved", job, "")
		return
	}

	p.processed.WithLabelValues("failed").Inc()
	p.auditor.Record(ctx, model.ActionDocumentFailed, job.Role, job.PatientID, map[string]any{
		"documentId": job.DocumentID,
		"error":      reason,
	})
}

func failureReason(err error) string {
	var exErr *extractor.ExtractionError
	if errors.As(err, &exErr) {
		return exErr.Reason
	}
	return err.Error()
}

func (p *Pipeline) logEvent(event string, job Job, errMsg string) {
	line := map[string]any{
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"level":       "error",
		"component":   "pipeline",
		"event":       event,
		"document_id": job.DocumentID,
	}
	if errMsg != "" {
		line["error"] = errMsg
	} else {
		line["level"] = "warn"
	}
	_ = json.NewEncoder(p.out).Encode(line)
}
