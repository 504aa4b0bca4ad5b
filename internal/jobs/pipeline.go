package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/service"
	"github.com/cloo-solutions/docintel/internal/telemetry"
)

// DefaultMaxStoredChars bounds the extracted text sent back for later Q&A.
const DefaultMaxStoredChars = 100000

// Extractor renders a document as text.
type Extractor interface {
	Extract(ctx context.Context, source, mimeType string) (string, error)
}

// Summarizer produces a patient-facing summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Reporter delivers a job status to the system of record.
type Reporter interface {
	Report(ctx context.Context, documentID string, report domain.StatusReport) error
}

// Outcome describes how a job ended.
type Outcome struct {
	State     State
	Summary   string
	Err       error // extraction or summarization failure
	ReportErr error // delivery failure of the final status report
}

// Pipeline runs extract, summarize and report for one job at a time.
// It holds no per-job state and may run many jobs concurrently.
type Pipeline struct {
	extractor      Extractor
	summarizer     Summarizer
	reporter       Reporter
	maxStoredChars int
}

// NewPipeline creates a new Pipeline instance
func NewPipeline(extractor Extractor, summarizer Summarizer, reporter Reporter, maxStoredChars int) *Pipeline {
	if maxStoredChars <= 0 {
		maxStoredChars = DefaultMaxStoredChars
	}
	return &Pipeline{
		extractor:      extractor,
		summarizer:     summarizer,
		reporter:       reporter,
		maxStoredChars: maxStoredChars,
	}
}

// Run processes job to COMPLETED or FAILED and reports the result once.
// Reporting failures are logged and never retried.
func (p *Pipeline) Run(ctx context.Context, job domain.Job) (outcome Outcome) {
	ctx, span := telemetry.StartSpan(ctx, "job.process", telemetry.SpanAttributes{
		DocumentID: job.DocumentID,
		Operation:  "process_document",
	})
	defer span.End()

	reported := false
	defer func() {
		if r := recover(); r != nil {
			err := domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "job panicked", fmt.Errorf("%v", r))
			log.Printf("job %s: %v", job.DocumentID, err)
			span.SetError(err)
			if reported {
				// at most one status report per job
				outcome.ReportErr = err
				return
			}
			p.fail(ctx, job, err, &outcome, &reported)
		}
	}()

	state := p.advance(ctx, job, StateSubmitted, nil)

	text, err := p.extract(ctx, job)
	if state = p.advance(ctx, job, state, err); state == StateFailed {
		span.SetError(err)
		p.fail(ctx, job, err, &outcome, &reported)
		return outcome
	}

	summary, err := p.summarize(ctx, text)
	if state = p.advance(ctx, job, state, err); state == StateFailed {
		span.SetError(err)
		p.fail(ctx, job, err, &outcome, &reported)
		return outcome
	}

	outcome = Outcome{State: state, Summary: summary}
	report := domain.CompletedReport(summary, service.TruncateText(text, p.maxStoredChars))
	reported = true
	if err := p.reporter.Report(ctx, job.DocumentID, report); err != nil {
		outcome.ReportErr = err
		log.Printf("job %s: completed but status report failed: %v", job.DocumentID, err)
		telemetry.CaptureError(ctx, err)
	}
	return outcome
}

func (p *Pipeline) advance(ctx context.Context, job domain.Job, from State, stepErr error) State {
	to := Transition(from, stepErr)
	if stepErr != nil {
		log.Printf("job %s: %s -> %s: %v", job.DocumentID, from, to, stepErr)
	} else {
		log.Printf("job %s: %s -> %s", job.DocumentID, from, to)
	}
	telemetry.AddBreadcrumb(ctx, "job", fmt.Sprintf("%s %s -> %s", job.DocumentID, from, to))
	return to
}

func (p *Pipeline) extract(ctx context.Context, job domain.Job) (string, error) {
	text, err := p.extractor.Extract(ctx, job.Source, job.MimeType)
	if err != nil {
		if domain.CodeOf(err) == "" {
			err = domain.ExtractionFailure("text extraction failed", err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrNoTextExtracted
	}
	return text, nil
}

func (p *Pipeline) summarize(ctx context.Context, text string) (string, error) {
	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		if domain.CodeOf(err) == "" {
			err = domain.GenerationFailure("summarization failed", err)
		}
		return "", err
	}
	return summary, nil
}

// fail records a FAILED outcome in out and sends the failure report.
func (p *Pipeline) fail(ctx context.Context, job domain.Job, err error, out *Outcome, reported *bool) {
	telemetry.CaptureError(ctx, err)

	*out = Outcome{State: StateFailed, Err: err}
	*reported = true
	if reportErr := p.reporter.Report(ctx, job.DocumentID, domain.FailedReport(err)); reportErr != nil {
		out.ReportErr = reportErr
		log.Printf("job %s: failure report not delivered: %v", job.DocumentID, reportErr)
	}
}
