package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// fakeClient keeps objects in memory and records the last PutObject input
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	lastPut *s3.PutObjectInput
	putErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = data
	f.lastPut = params
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeClient) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeClient) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeClient) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestBackend_StoreFetch(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	b := NewWithClient(client, Config{Bucket: "guardian", Prefix: "payloads/"})

	payload := []byte(`{"content":"a song"}`)
	loc, err := b.Store(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, "guardian", aws.ToString(client.lastPut.Bucket))
	assert.Equal(t, "payloads/"+loc, aws.ToString(client.lastPut.Key))

	got, err := b.Fetch(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	exists, err := b.Exists(ctx, loc)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBackend_FetchMissing(t *testing.T) {
	ctx := context.Background()
	b := NewWithClient(newFakeClient(), Config{Bucket: "guardian"})

	other := NewWithClient(newFakeClient(), Config{Bucket: "other"})
	loc, err := other.Store(ctx, []byte("elsewhere"))
	require.NoError(t, err)

	_, err = b.Fetch(ctx, loc)
	assert.ErrorIs(t, err, guardian.ErrStorage)

	exists, err := b.Exists(ctx, loc)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBackend_FetchDetectsTampering(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	b := NewWithClient(client, Config{Bucket: "guardian"})

	loc, err := b.Store(ctx, []byte("original"))
	require.NoError(t, err)
	client.objects[loc] = []byte("tampered")

	_, err = b.Fetch(ctx, loc)
	assert.ErrorIs(t, err, guardian.ErrStorage)
}

func TestBackend_StoreFailure(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("connection refused")
	b := NewWithClient(client, Config{Bucket: "guardian"})

	_, err := b.Store(context.Background(), []byte("payload"))
	assert.ErrorIs(t, err, guardian.ErrStorage)
}

func TestBackend_ServerSideEncryption(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantSSE   types.ServerSideEncryption
		wantKMSID string
	}{
		{"disabled", Config{Bucket: "b"}, "", ""},
		{"aes256", Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "AES256"}, types.ServerSideEncryptionAes256, ""},
		{"kms", Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}, types.ServerSideEncryptionAwsKms, "key-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			b := NewWithClient(client, tt.config)
			_, err := b.Store(context.Background(), []byte("payload"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSSE, client.lastPut.ServerSideEncryption)
			assert.Equal(t, tt.wantKMSID, aws.ToString(client.lastPut.SSEKMSKeyId))
		})
	}
}

func TestAPIErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("operation error: %w", &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"})
	assert.Equal(t, "BucketAlreadyOwnedByYou", apiErrorCode(wrapped))
	assert.Empty(t, apiErrorCode(errors.New("plain")))
}
