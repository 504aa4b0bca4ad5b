package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeExtraction    = "EXTRACTION_FAILED"
	ErrCodeEmbedding     = "EMBEDDING_FAILED"
	ErrCodeGeneration    = "GENERATION_FAILED"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeReporting     = "REPORTING_FAILED"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
)

// Pipeline errors
var (
	ErrNoTextExtracted          = NewDomainError(ErrCodeExtraction, "no text extracted from document")
	ErrUnsupportedMediaType     = NewDomainError(ErrCodeExtraction, "unsupported media type")
	ErrDimensionMismatch        = NewDomainError(ErrCodeEmbedding, "embedding dimensionality mismatch")
	ErrEmptyGeneration          = NewDomainError(ErrCodeGeneration, "generation returned an empty response")
	ErrAINotConfigured          = ConfigurationFailure("AI provider not configured: GEMINI_API_KEY or OPENAI_API_KEY required")
	ErrObjectStoreNotConfigured = ConfigurationFailure("object storage not configured: S3_ENDPOINT required")
)

// ExtractionFailure wraps a text extraction error.
func ExtractionFailure(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, message, err)
}

// EmbeddingFailure wraps an embedding error.
func EmbeddingFailure(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, message, err)
}

// GenerationFailure wraps a text generation error.
func GenerationFailure(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, message, err)
}

// ConfigurationFailure reports a capability that cannot run with the current configuration.
func ConfigurationFailure(message string) *DomainError {
	return NewDomainError(ErrCodeNotConfigured, message)
}

// ReportingFailure wraps a status callback error.
func ReportingFailure(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeReporting, message, err)
}

// ValidationError reports invalid caller input.
func ValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// HasCode reports whether any DomainError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
