package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coursebundler/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObjectKey(t *testing.T) {
	key := objectKey(domain.MediaVideo, "../intro clip.mp4", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "video/2024/03/"), key)
	assert.True(t, strings.HasSuffix(key, "_intro_clip.mp4"), key)
	assert.NotContains(t, strings.TrimPrefix(key, "video/2024/03/"), "/")
}

func TestLocalStoreUploadAndDestroy(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads/", zap.NewNop().Sugar())
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Upload(ctx, domain.MediaImage, &domain.Upload{Filename: "a.png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+ref.PublicID, ref.URL)

	data, err := os.ReadFile(filepath.Join(store.Dir(), ref.PublicID))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, store.Destroy(ctx, domain.MediaImage, ref))
	_, err = os.Stat(filepath.Join(store.Dir(), ref.PublicID))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, store.Destroy(ctx, domain.MediaImage, ref))
	assert.Error(t, store.Destroy(ctx, domain.MediaImage, domain.MediaRef{PublicID: "../../etc/passwd"}))
}

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3StoreUpload(t *testing.T) {
	api := &mockObjectAPI{}
	store := newS3Store(api, S3Config{Region: "eu-west-1", Bucket: "media"}, zap.NewNop().Sugar())

	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "media" && *in.ContentType == "image/png" && strings.HasPrefix(*in.Key, "image/")
	})).Return(nil).Once()

	ref, err := store.Upload(context.Background(), domain.MediaImage, &domain.Upload{Filename: "p.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/"+ref.PublicID, ref.URL)
	api.AssertExpectations(t)
}

func TestS3StoreDestroy(t *testing.T) {
	api := &mockObjectAPI{}
	store := newS3Store(api, S3Config{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"}, zap.NewNop().Sugar())

	api.On("DeleteObject", mock.Anything, mock.Anything).Return(errors.New("denied")).Once()
	err := store.Destroy(context.Background(), domain.MediaVideo, domain.MediaRef{PublicID: "video/k"})
	assert.ErrorContains(t, err, "denied")

	// zero refs never reach S3
	assert.NoError(t, store.Destroy(context.Background(), domain.MediaVideo, domain.MediaRef{}))
	api.AssertExpectations(t)
}
