package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func objectOutput(body, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	}
}

func TestS3Client_GetObject(t *testing.T) {
	api := new(MockObjectAPI)
	client := NewS3ClientWithAPI(api, "patient-documents")
	ctx := context.Background()

	api.On("GetObject", ctx, "patient-documents", "2024/report.txt").
		Return(objectOutput("Hemoglobin 13.5", "text/plain"), nil)

	obj, err := client.GetObject(ctx, "", "2024/report.txt", 1024)
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin 13.5", string(obj.Body))
	assert.Equal(t, "text/plain", obj.ContentType)
	api.AssertExpectations(t)
}

func TestS3Client_GetObject_ExplicitBucket(t *testing.T) {
	api := new(MockObjectAPI)
	client := NewS3ClientWithAPI(api, "default")
	ctx := context.Background()

	api.On("GetObject", ctx, "archive", "a.txt").Return(objectOutput("x", ""), nil)

	_, err := client.GetObject(ctx, "archive", "a.txt", 0)
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestS3Client_GetObject_TooLarge(t *testing.T) {
	api := new(MockObjectAPI)
	client := NewS3ClientWithAPI(api, "b")
	ctx := context.Background()

	api.On("GetObject", ctx, "b", "big.pdf").Return(objectOutput(strings.Repeat("x", 100), "application/pdf"), nil)

	_, err := client.GetObject(ctx, "", "big.pdf", 10)
	assert.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestS3Client_GetObject_Error(t *testing.T) {
	api := new(MockObjectAPI)
	client := NewS3ClientWithAPI(api, "b")
	ctx := context.Background()

	api.On("GetObject", ctx, "b", "missing").Return(nil, errors.New("NoSuchKey"))

	_, err := client.GetObject(ctx, "", "missing", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get object b/missing")
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadLimited(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrObjectTooLarge)

	data, err = ReadLimited(strings.NewReader("123456"), 0)
	require.NoError(t, err)
	assert.Len(t, data, 6)
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		raw     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://patient-documents/2024/05/report.pdf", "patient-documents", "2024/05/report.pdf", false},
		{"s3:///report.pdf", "", "report.pdf", false},
		{"s3://bucket", "", "", true},
		{"https://bucket/key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			bucket, key, err := ParseObjectURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}
