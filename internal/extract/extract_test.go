package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/storage"
)

type MockObjectGetter struct {
	mock.Mock
}

func (m *MockObjectGetter) GetObject(ctx context.Context, bucket, key string, maxBytes int64) (*storage.Object, error) {
	args := m.Called(ctx, bucket, key, maxBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

const reportHTML = `<!DOCTYPE html>
<html>
<head><title>Lab results</title><style>body { color: red; }</style></head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Lab results</h1>
  <p>Hemoglobin: <strong>10.2 g/dL</strong> (low)</p>
  <script>trackVisit();</script>
  <footer>Clinic portal</footer>
</body>
</html>`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract_LocalPlainText(t *testing.T) {
	path := writeTemp(t, "report.txt", "\xef\xbb\xbf  Cholesterol 240 mg/dL\n")

	text, err := NewService().Extract(context.Background(), path, "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Cholesterol 240 mg/dL", text)
}

func TestExtract_FileURL(t *testing.T) {
	path := writeTemp(t, "notes.md", "# Visit notes\nBP 140/90")

	text, err := NewService().Extract(context.Background(), "file://"+path, "text/markdown")
	require.NoError(t, err)
	assert.Contains(t, text, "BP 140/90")
}

func TestExtract_PDF(t *testing.T) {
	text, err := NewService().Extract(context.Background(), filepath.Join("testdata", "lab_report.pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Hemoglobin")
	assert.Contains(t, text, "Ferritin")
}

func TestExtract_PDFAlias(t *testing.T) {
	text, err := NewService().Extract(context.Background(), filepath.Join("testdata", "lab_report.pdf"), "application/x-pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Hemoglobin")
}

func TestExtract_CorruptPDF(t *testing.T) {
	path := writeTemp(t, "broken.pdf", "%PDF-1.4 this is not really a pdf")

	_, err := NewService().Extract(context.Background(), path, "application/pdf")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
}

func TestExtract_HTMLOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/42", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(reportHTML))
	}))
	defer server.Close()

	text, err := NewService(WithHTTPClient(server.Client())).Extract(context.Background(), server.URL+"/reports/42", "text/html")
	require.NoError(t, err)

	assert.Contains(t, text, "Lab results")
	assert.Contains(t, text, "Hemoglobin: **10.2 g/dL** (low)")
	assert.NotContains(t, text, "trackVisit")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Clinic portal")
	assert.NotContains(t, text, "Home")
}

func TestExtract_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewService().Extract(context.Background(), server.URL+"/missing.txt", "text/plain")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
	assert.Contains(t, err.Error(), "404")
}

func TestExtract_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewService().Extract(context.Background(), url+"/report.pdf", "application/pdf")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
	assert.Contains(t, err.Error(), "unreachable")
}

func TestExtract_S3(t *testing.T) {
	objects := new(MockObjectGetter)
	svc := NewService(WithObjectStore(objects))
	ctx := context.Background()

	objects.On("GetObject", ctx, "patient-documents", "2024/visit.txt", MaxDocumentBytes).
		Return(&storage.Object{Body: []byte("Follow up in 3 months."), ContentType: "text/plain"}, nil)

	text, err := svc.Extract(ctx, "s3://patient-documents/2024/visit.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Follow up in 3 months.", text)
	objects.AssertExpectations(t)
}

func TestExtract_S3NotConfigured(t *testing.T) {
	_, err := NewService().Extract(context.Background(), "s3://bucket/key.pdf", "application/pdf")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeNotConfigured))
}

func TestExtract_S3Error(t *testing.T) {
	objects := new(MockObjectGetter)
	svc := NewService(WithObjectStore(objects))
	ctx := context.Background()

	objects.On("GetObject", ctx, "b", "k", MaxDocumentBytes).Return(nil, errors.New("AccessDenied"))

	_, err := svc.Extract(ctx, "s3://b/k", "text/plain")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
}

func TestExtract_UnsupportedMediaType(t *testing.T) {
	path := writeTemp(t, "scan.png", "not read")

	for _, mimeType := range []string{"image/png", "", "not a media type;;"} {
		_, err := NewService().Extract(context.Background(), path, mimeType)
		require.Error(t, err, mimeType)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedMediaType), mimeType)
		assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction), mimeType)
	}
}

func TestExtract_NoText(t *testing.T) {
	path := writeTemp(t, "blank.txt", " \n\t ")

	_, err := NewService().Extract(context.Background(), path, "text/plain")
	assert.True(t, errors.Is(err, domain.ErrNoTextExtracted))
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewService().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), "application/pdf")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
	assert.Contains(t, err.Error(), "document not found")
}

func TestExtract_TooLarge(t *testing.T) {
	path := writeTemp(t, "big.txt", strings.Repeat("a", 64))

	_, err := NewService(WithMaxBytes(16)).Extract(context.Background(), path, "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrObjectTooLarge)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeTemp(t, "latin1.txt", "caf\xe9")

	_, err := NewService().Extract(context.Background(), path, "text/plain")
	assert.True(t, domain.HasCode(err, domain.ErrCodeExtraction))
}

func TestSupportedMediaTypes(t *testing.T) {
	types := SupportedMediaTypes()
	assert.Contains(t, types, "application/x-pdf")
	assert.IsNonDecreasing(t, types)
	for _, mt := range types {
		_, ok := formatFor(mt)
		assert.True(t, ok, mt)
	}
}

func TestExtract_UnsupportedListsSupportedTypes(t *testing.T) {
	_, err := NewService().Extract(context.Background(), writeTemp(t, "scan.png", "x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot extract image/png (supported: application/pdf, application/x-pdf,")
}
