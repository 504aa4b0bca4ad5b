package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docintel/internal/domain"
)

func TestReport_Completed(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/patient-documents/doc-42/status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/", time.Second)
	err := client.Report(context.Background(), "doc-42", domain.CompletedReport("All values normal.", "Glucose 90 mg/dL"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"status":        "COMPLETED",
		"summary":       "All values normal.",
		"extractedText": "Glucose 90 mg/dL",
	}, got)
}

func TestReport_Failed(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewClient(server.URL, 0).Report(context.Background(), "doc-1", domain.FailedReport(errors.New("no text extracted")))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"status": "FAILED", "error": "no text extracted"}, got)
}

func TestReport_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "document not found", http.StatusNotFound)
	}))
	defer server.Close()

	err := NewClient(server.URL, time.Second).Report(context.Background(), "doc-1", domain.CompletedReport("s", "t"))
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeReporting))
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "document not found")
}

func TestReport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	err := NewClient(baseURL, time.Second).Report(context.Background(), "doc-1", domain.CompletedReport("s", "t"))
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeReporting))
}

func TestReport_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	err := NewClient(server.URL, 50*time.Millisecond).Report(context.Background(), "doc-1", domain.CompletedReport("s", "t"))
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeReporting))
}

func TestReport_SingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL, time.Second).Report(context.Background(), "doc-1", domain.CompletedReport("s", "t"))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestReport_EscapesDocumentID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patient-documents/a%2Fb/status", r.URL.EscapedPath())
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL, time.Second).Report(context.Background(), "a/b", domain.CompletedReport("s", "t")))
}
