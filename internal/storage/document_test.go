package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/urbanair/aqkg/pkg/common"
)

type memoryBucket struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Bucket+"/"+*in.Key] = data
	m.contentTypes[*in.Bucket+"/"+*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

const sample = `{"pollutants": {"combustion": ["NO2"]}, "meteorological_factors": ["Wind Speed"]}`

func TestDocumentStore_Local(t *testing.T) {
	ctx := context.Background()
	d := NewDocumentStore(nil)
	path := filepath.Join(t.TempDir(), "out", "AQ.json")

	f, err := common.Decode([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Save(ctx, path, f); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := d.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(f) {
		t.Fatal("round trip changed the fragment")
	}

	empty, err := d.LoadOrEmpty(ctx, path+".missing")
	if err != nil {
		t.Fatalf("LoadOrEmpty() error = %v", err)
	}
	if empty.EntityCount() != 0 {
		t.Fatal("expected empty fragment")
	}

	if _, err := d.Load(ctx, "s3://bucket/AQ.json"); err == nil {
		t.Fatal("expected error without s3 client")
	}
}

func TestDocumentStore_S3(t *testing.T) {
	ctx := context.Background()
	bucket := newMemoryBucket()
	d := NewDocumentStore(bucket)

	f, _ := common.Decode([]byte(sample))
	if err := d.Save(ctx, "s3://air/graphs/AQ.json", f); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok := bucket.objects["air/graphs/AQ.json"]; !ok {
		t.Fatalf("object not stored: %v", bucket.objects)
	}
	if ct := bucket.contentTypes["air/graphs/AQ.json"]; ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	loaded, err := d.Load(ctx, "s3://air/graphs/AQ.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(f) {
		t.Fatal("round trip changed the fragment")
	}

	if _, err := d.Load(ctx, "s3://air/graphs/missing.json"); err == nil {
		t.Fatal("expected error for missing object")
	}
}
