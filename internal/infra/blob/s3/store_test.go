package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"storecore/internal/blob/core"
)

type mockObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// mockClient implements the api subset in memory.
type mockClient struct {
	objects map[string]mockObject
}

func newMockClient() *mockClient { return &mockClient{objects: make(map[string]mockObject)} }

func (m *mockClient) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	obj := mockObject{data: data, modified: time.Now().UTC()}
	if in.ContentType != nil {
		obj.contentType = *in.ContentType
	}
	m.objects[*in.Key] = obj
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockClient) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	obj, ok := m.objects[*in.Key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", *in.Key)
	}
	size := int64(len(obj.data))
	out := &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: &size,
		LastModified:  &obj.modified,
	}
	if obj.contentType != "" {
		out.ContentType = &obj.contentType
	}
	return out, nil
}

func (m *mockClient) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	obj, ok := m.objects[*in.Key]
	if !ok {
		return nil, fmt.Errorf("NotFound: %s", *in.Key)
	}
	size := int64(len(obj.data))
	out := &awss3.HeadObjectOutput{ContentLength: &size, LastModified: &obj.modified}
	if obj.contentType != "" {
		out.ContentType = &obj.contentType
	}
	return out, nil
}

func (m *mockClient) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(m.objects, *in.Key)
	return &awss3.DeleteObjectOutput{}, nil
}

func newMockStore() *Store {
	return newWithClient(newMockClient(), Config{Bucket: "images", Region: "us-east-1"})
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()

	info, err := store.Put(ctx, "products/1/a.png", bytes.NewReader([]byte("abc")), core.PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 3 || info.ContentType != "image/png" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "products/1/a.png", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate-key failure")
	}

	_, rc, err := store.Get(ctx, "products/1/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "abc" {
		t.Fatalf("content = %q", body)
	}

	ok, err := store.Delete(ctx, "products/1/a.png")
	if !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "products/1/a.png")
	if ok || err != nil {
		t.Fatalf("second delete must be (false, nil), got %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "products/1/a.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ObjectURL(t *testing.T) {
	withEndpoint := newWithClient(newMockClient(), Config{Bucket: "images", Region: "us-east-1", Endpoint: "http://minio:9000"})
	if got := withEndpoint.objectURL("k.png"); got != "http://minio:9000/images/k.png" {
		t.Fatalf("endpoint url = %q", got)
	}
	plain := newMockStore()
	if got := plain.objectURL("k.png"); got != "https://images.s3.us-east-1.amazonaws.com/k.png" {
		t.Fatalf("virtual-host url = %q", got)
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket-required error")
	}
}
