package documents_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API

	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.objects[key] = data
	f.contentTypes[key] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// testStorage runs the behaviour every Storage must have.
func testStorage(t *testing.T, storage documents.Storage) {
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, "documents/1/a.pdf", "application/pdf", []byte("%PDF-1.4 a")))

	data, err := storage.Get(ctx, "documents/1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 a"), data)

	require.NoError(t, storage.Put(ctx, "documents/1/a.pdf", "application/pdf", []byte("%PDF-1.4 b")))
	data, err = storage.Get(ctx, "documents/1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 b"), data, "put overwrites")

	_, err = storage.Get(ctx, "documents/1/missing.pdf")
	assert.ErrorIs(t, err, documents.ErrObjectNotFound)

	require.NoError(t, storage.Delete(ctx, "documents/1/a.pdf"))
	_, err = storage.Get(ctx, "documents/1/a.pdf")
	assert.ErrorIs(t, err, documents.ErrObjectNotFound)

	assert.NoError(t, storage.Delete(ctx, "documents/1/a.pdf"), "deleting twice is fine")
}

func TestFileStorage(t *testing.T) {
	storage, err := documents.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	testStorage(t, storage)

	t.Run("rejects keys escaping the directory", func(t *testing.T) {
		ctx := context.Background()

		for _, key := range []string{"", "../outside.pdf", "a/../../outside.pdf", ".."} {
			assert.ErrorIs(t, storage.Put(ctx, key, "application/pdf", []byte("x")), documents.ErrInvalidKey, key)
		}
	})
}

func TestS3Storage(t *testing.T) {
	client := newFakeS3()
	storage := documents.NewS3StorageWithClient(client, "lectures")

	testStorage(t, storage)

	require.NoError(t, storage.Put(context.Background(), "documents/2/b.pdf", "application/pdf", []byte("%PDF-")))
	assert.Contains(t, client.objects, "lectures/documents/2/b.pdf")
	assert.Equal(t, "application/pdf", client.contentTypes["lectures/documents/2/b.pdf"])
}
