package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	wrapped := ExtractionFailure("could not read pdf", errors.New("eof"))
	assert.Equal(t, "[EXTRACTION_FAILED] could not read pdf: eof", wrapped.Error())
}

func TestHasCode(t *testing.T) {
	cause := ExtractionFailure("fetch failed", errors.New("timeout"))
	wrapped := fmt.Errorf("job doc-1: %w", cause)

	assert.True(t, HasCode(wrapped, ErrCodeExtraction))
	assert.False(t, HasCode(wrapped, ErrCodeGeneration))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeExtraction))
	assert.False(t, HasCode(nil, ErrCodeExtraction))
}

func TestHasCode_NestedDomainErrors(t *testing.T) {
	inner := NewDomainErrorWithCause(ErrCodeNotConfigured, "object storage", nil)
	outer := ExtractionFailure("cannot open source", inner)

	assert.True(t, HasCode(outer, ErrCodeExtraction))
	assert.True(t, HasCode(outer, ErrCodeNotConfigured))
	assert.Equal(t, ErrCodeExtraction, CodeOf(outer))
}

func TestSentinelErrorsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("extract: %w", ErrNoTextExtracted)
	assert.True(t, errors.Is(err, ErrNoTextExtracted))
	assert.True(t, HasCode(err, ErrCodeExtraction))
}

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr string
	}{
		{"valid", Job{DocumentID: "d1", Source: "/tmp/a.pdf", MimeType: "application/pdf"}, ""},
		{"missing document id", Job{Source: "/tmp/a.pdf", MimeType: "application/pdf"}, "document_id is required"},
		{"missing source", Job{DocumentID: "d1", MimeType: "application/pdf"}, "file_path is required"},
		{"missing mime type", Job{DocumentID: "d1", Source: "/tmp/a.pdf"}, "mime_type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJob(tt.job)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, HasCode(err, ErrCodeValidation))
		})
	}
}

func TestStatusReports(t *testing.T) {
	done := CompletedReport("all good", "full text")
	assert.Equal(t, JobStatusCompleted, done.Status)
	assert.Equal(t, "all good", done.Summary)
	assert.Equal(t, "full text", done.ExtractedText)
	assert.Empty(t, done.Error)

	failed := FailedReport(errors.New("boom"))
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.Empty(t, failed.Summary)

	assert.Equal(t, "unknown error", FailedReport(nil).Error)
}

func TestKnowledgeRecord(t *testing.T) {
	r := KnowledgeRecord{ID: "1", Question: "What is asthma?", Answer: "A chronic airway condition."}
	assert.Equal(t, "Question: What is asthma?\nAnswer: A chronic airway condition.", r.Text())
	assert.NoError(t, ValidateKnowledgeRecord(r))

	assert.Error(t, ValidateKnowledgeRecord(KnowledgeRecord{Question: "q", Answer: "a"}))
	assert.Error(t, ValidateKnowledgeRecord(KnowledgeRecord{ID: "1", Answer: "a"}))
	assert.Error(t, ValidateKnowledgeRecord(KnowledgeRecord{ID: "1", Question: "q"}))
}
