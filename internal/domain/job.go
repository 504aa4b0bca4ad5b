package domain

import (
	"fmt"
	"strings"
)

// JobStatus is the terminal status reported to the system of record
type JobStatus string

const (
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is one document submitted for asynchronous processing
type Job struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"file_path"` // local path, http(s) URL or s3:// object
	MimeType   string `json:"mime_type"`
}

// StatusReport is the payload of a status callback. A completed report
// carries Summary and ExtractedText; a failed report carries Error.
type StatusReport struct {
	Status        JobStatus `json:"status"`
	Summary       string    `json:"summary,omitempty"`
	ExtractedText string    `json:"extractedText,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// CompletedReport builds the success payload.
func CompletedReport(summary, extractedText string) StatusReport {
	return StatusReport{
		Status:        JobStatusCompleted,
		Summary:       summary,
		ExtractedText: extractedText,
	}
}

// FailedReport builds the failure payload.
func FailedReport(err error) StatusReport {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StatusReport{
		Status: JobStatusFailed,
		Error:  msg,
	}
}

// ValidateJob validates a Job instance
func ValidateJob(j Job) error {
	if strings.TrimSpace(j.DocumentID) == "" {
		return ValidationError("document_id is required")
	}
	if strings.TrimSpace(j.Source) == "" {
		return ValidationError(fmt.Sprintf("job %s: file_path is required", j.DocumentID))
	}
	if strings.TrimSpace(j.MimeType) == "" {
		return ValidationError(fmt.Sprintf("job %s: mime_type is required", j.DocumentID))
	}
	return nil
}
