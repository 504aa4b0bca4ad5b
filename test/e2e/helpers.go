//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/docintel/internal/cli/daemon"
	"github.com/cloo-solutions/docintel/internal/config"
	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/testutil"
)

const (
	documentBucket = "patient-documents"
	serviceToken   = "e2e-service-token"
	jobSubject     = "docintel.jobs.submit"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	RustFSC      *testutil.RustFSContainer
	NATSURL      string
	App          *daemon.App
	ServerURL    string
	ServerCloser func()
	Reports      chan Report
	BinaryDir    string
	HTTPClient   *http.Client
}

// Report is one status callback received from the daemon
type Report struct {
	DocumentID string
	domain.StatusReport
}

// SetupE2EEnv starts object storage, NATS, a callback receiver and the daemon
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	natsSrv := testutil.NewNATSServer(t)

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		RustFSC:    s3C,
		NATSURL:    natsSrv.ClientURL(),
		Reports:    make(chan Report, 16),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	backend := httptest.NewServer(http.HandlerFunc(env.receiveReport))
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		Environment:       "test",
		ServiceToken:      serviceToken,
		AIProvider:        config.ProviderGemini,
		EmbedBatchSize:    100,
		BackendURL:        backend.URL,
		CallbackTimeout:   5 * time.Second,
		KnowledgeBasePath: writeKnowledgeBase(t),
		ChunkSize:         200,
		ChunkOverlap:      20,
		TopK:              2,
		MaxDocumentChars:  30000,
		MaxStoredChars:    100000,
		DeclineThreshold:  0.25,
		S3Endpoint:        s3C.Endpoint(),
		S3AccessKey:       testutil.RustFSAccessKey,
		S3SecretKey:       testutil.RustFSSecretKey,
		S3Bucket:          documentBucket,
		S3Region:          testutil.RustFSRegion,
		NATSURL:           natsSrv.ClientURL(),
		NATSJobSubject:    jobSubject,
	}

	app, err := daemon.NewApp(ctx, cfg, fakeAI())
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	if err := app.StartIntake(); err != nil {
		t.Fatalf("failed to start intake: %v", err)
	}
	env.App = app

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	env.ServerURL, env.ServerCloser = startServer(t, app.Router, port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.App != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.App.Shutdown(ctx)
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	// Clean up binaries
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

func (e *E2ETestEnv) receiveReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/patient-documents/"), "/status")

	var report domain.StatusReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e.Reports <- Report{DocumentID: id, StatusReport: report}
	w.WriteHeader(http.StatusNoContent)
}

// WaitReport waits for the status callback of documentID
func (e *E2ETestEnv) WaitReport(documentID string) Report {
	e.T.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case r := <-e.Reports:
			if r.DocumentID == documentID {
				return r
			}
			e.T.Logf("ignoring report for %s", r.DocumentID)
		case <-deadline:
			e.T.Fatalf("no status report for %s", documentID)
		}
	}
}

// SeedDocument uploads a document to the patient document bucket
func (e *E2ETestEnv) SeedDocument(key string, body []byte, contentType string) string {
	e.RustFSC.SeedObject(e.Ctx, e.T, documentBucket, key, body, contentType)
	return fmt.Sprintf("s3://%s/%s", documentBucket, key)
}

// BuildBinaries builds the docintel CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docintel-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docintel"), "./cmd/docintel")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docintel: %v\n%s", err, out)
	}
}

// RunDocintel runs the docintel CLI command
func (e *E2ETestEnv) RunDocintel(args ...string) (string, error) {
	return e.RunDocintelWithInput("", args...)
}

// RunDocintelWithInput runs the docintel CLI command with stdin input
func (e *E2ETestEnv) RunDocintelWithInput(input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docintel"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DOCINTEL_SERVICE_TOKEN=%s", serviceToken),
		fmt.Sprintf("DOCINTEL_API_URL=%s", e.ServerURL),
		fmt.Sprintf("HOME=%s", e.BinaryDir),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", e.BinaryDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return &apiResp, nil
}

// startServer serves handler on port until the returned closer runs
func startServer(t *testing.T, handler http.Handler, port int) (string, func()) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func writeKnowledgeBase(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "medquad.json")
	data := `[
  {"id": "0000001", "question": "What is anemia?", "answer": "Anemia is a lack of healthy red blood cells. Low iron is a common cause."},
  {"id": "0000002", "question": "What is high blood pressure?", "answer": "High blood pressure is blood pressure that stays above 130/80."},
  {"id": "0000003", "question": "What is diabetes?", "answer": "Diabetes is a disease in which blood glucose is too high."}
]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("failed to write knowledge base: %v", err)
	}
	return path
}

var vocabulary = []string{"anemia", "iron", "blood", "pressure", "diabetes", "glucose", "hemoglobin", "ferritin", "cholesterol"}

// termEmbedder embeds text as vocabulary term counts
type termEmbedder struct{}

func (termEmbedder) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(vocabulary))
		for j, term := range vocabulary {
			v[j] = float32(strings.Count(lower, term))
		}
		out[i] = v
	}
	return out, nil
}

// echoGenerator returns the first line of the user turn after its label
type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if report, ok := strings.CutPrefix(prompt.User, "Report:\n"); ok {
		first, _, _ := strings.Cut(report, "\n")
		return "Summary: " + first, nil
	}
	if strings.Contains(prompt.System, "OUT OF SCOPE") {
		return "I can only answer questions covered by the available medical information.", nil
	}
	return "Answer grounded in the retrieved context.", nil
}

func fakeAI() *daemon.AI {
	return &daemon.AI{Name: "e2e", Embedder: termEmbedder{}, Summary: echoGenerator{}, Chat: echoGenerator{}}
}
