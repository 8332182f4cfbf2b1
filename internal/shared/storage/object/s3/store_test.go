package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careaudit-backend/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	deletes []string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestSaveOpenDeleteUnderPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store, err := NewWithClient(fake, "care-sources", "/eu-west-2/", "")
	require.NoError(t, err)

	obj, err := store.Save(ctx, "tenant:4", "daily notes.txt", strings.NewReader("01/03/2025 08:00 Ate breakfast"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Key, object.SourcesDir+"/"))
	assert.Equal(t, int64(30), obj.Size)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "eu-west-2/"+obj.Key, *put.Key)
	assert.Equal(t, s3types.ServerSideEncryptionAes256, put.ServerSideEncryption)
	assert.Nil(t, put.SSEKMSKeyId)
	assert.Equal(t, "daily+notes.txt", put.Metadata["original-name"])

	rc, err := store.Open(ctx, obj.Key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Contains(t, string(data), "Ate breakfast")

	require.NoError(t, store.Delete(ctx, obj.Key))
	assert.Equal(t, []string{"eu-west-2/" + obj.Key}, fake.deletes)

	_, err = store.Open(ctx, obj.Key)
	assert.True(t, errors.Is(err, object.ErrNotFound))
}

func TestSaveUsesKMSKeyWhenConfigured(t *testing.T) {
	fake := newFakeS3()
	store, err := NewWithClient(fake, "care-sources", "", "arn:aws:kms:eu-west-2:1:key/abc")
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "tenant:1", "plan.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, fake.puts[0].ServerSideEncryption)
	assert.Equal(t, "arn:aws:kms:eu-west-2:1:key/abc", *fake.puts[0].SSEKMSKeyId)
	assert.Equal(t, "application/pdf", *fake.puts[0].ContentType)
}

func TestNewWithClientRequiresBucket(t *testing.T) {
	_, err := NewWithClient(newFakeS3(), " ", "", "")
	assert.Error(t, err)
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "sources/a/f.pdf", "sources/a/f.pdf"},
		{"root/", "/sources/a/f.pdf", "root/sources/a/f.pdf"},
		{"root/sub", "sources/a/f.pdf", "root/sub/sources/a/f.pdf"},
		{"root", "", "root"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key), "prefix=%q key=%q", tt.prefix, tt.key)
	}
}
