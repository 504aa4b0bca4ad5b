package domain

import (
	"fmt"
	"strings"
)

// KnowledgeRecord is one entry of the curated question/answer dataset.
type KnowledgeRecord struct {
	ID       string `json:"id" yaml:"id"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Text returns the text that is embedded and retrieved for the record.
func (r KnowledgeRecord) Text() string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", r.Question, r.Answer)
}

// ValidateKnowledgeRecord validates a KnowledgeRecord instance
func ValidateKnowledgeRecord(r KnowledgeRecord) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("knowledge record ID is required")
	}
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("knowledge record %s: question is required", r.ID)
	}
	if strings.TrimSpace(r.Answer) == "" {
		return fmt.Errorf("knowledge record %s: answer is required", r.ID)
	}
	return nil
}
