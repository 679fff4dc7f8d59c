package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	a, err := ObjectKey("images", "../../etc/pass wd.png", now)
	require.NoError(t, err)
	b, err := ObjectKey("images", "../../etc/pass wd.png", now)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "keys for the same name must not collide")
	assert.True(t, strings.HasPrefix(a, "images/2024/03/05/"), a)
	assert.True(t, strings.HasSuffix(a, ".png"), a)
	assert.NotContains(t, a, "pass")
	assert.NotContains(t, a, "..")

	c, err := ObjectKey("results", "jane_doe_rash.JPG", now)
	require.NoError(t, err)
	assert.NotContains(t, c, "jane")
	assert.Regexp(t, `^results/2024/03/05/[0-9a-f-]{36}\.jpg$`, c)

	d, err := ObjectKey("results", "report", now)
	require.NoError(t, err)
	assert.Regexp(t, `^results/2024/03/05/[0-9a-f-]{36}$`, d)

	_, err = ObjectKey("images", "...", now)
	assert.ErrorIs(t, err, ErrMissingFileName)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	loc, err := s.Put(ctx, "results/a.pdf", "application/pdf", strings.NewReader("report"))
	require.NoError(t, err)

	r, err := s.Get(ctx, loc)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "report", string(data))

	require.NoError(t, s.Delete(ctx, loc))
	_, err = s.Get(ctx, loc)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	loc, err := s.Put(ctx, "images/2024/01/01/x-photo.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "images/2024/01/01/x-photo.png", loc)

	r, err := s.Get(ctx, loc)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	r.Close()
	assert.Equal(t, "png", string(data))

	_, err = s.Put(ctx, loc, "image/png", strings.NewReader("again"))
	assert.Error(t, err, "existing files must not be overwritten")

	require.NoError(t, s.Delete(ctx, loc))
	assert.ErrorIs(t, s.Delete(ctx, loc), ErrBlobNotFound)
}

func TestLocalStore_RejectsEscape(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../outside.txt", "", strings.NewReader("x"))
	assert.Error(t, err)
}

type slowReader struct{}

func (slowReader) Read(p []byte) (int, error) {
	time.Sleep(20 * time.Millisecond)
	p[0] = 'x'
	return 1, nil
}

func TestWriter_Timeout(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(s, 30*time.Millisecond)

	_, err = w.Save(context.Background(), "results", "big.bin", "", slowReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
}

func TestWriter_SaveAndDiscard(t *testing.T) {
	s := NewMemoryStore()
	w := NewWriter(s, time.Second)

	loc, err := w.Save(context.Background(), "images", "rash.jpg", "image/jpeg", bytes.NewReader([]byte("jpg")))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	w.Discard(context.Background(), []string{loc})
	assert.Equal(t, 0, s.Len())
}

type fakeS3 struct {
	objects map[string][]byte
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{}}
	s := NewS3Store(client, "clinic-results", "/prod/")

	loc, err := s.Put(ctx, "results/r.pdf", "", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "s3://clinic-results/prod/results/r.pdf", loc)
	assert.Equal(t, "application/octet-stream", *client.lastPut.ContentType)
	assert.Equal(t, types.ServerSideEncryptionAes256, client.lastPut.ServerSideEncryption)

	r, err := s.Get(ctx, loc)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "pdf", string(data))

	require.NoError(t, s.Delete(ctx, loc))
	_, err = s.Get(ctx, loc)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = s.Get(ctx, "s3://other-bucket/x")
	assert.Error(t, err)
}
