package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type staticLoader struct {
	name string
}

func (l staticLoader) GetFileText(context.Context, GraphFile) ([]byte, error) {
	return []byte(l.name), nil
}

func TestSchemeLoader(t *testing.T) {
	l := SchemeLoader{
		Local: staticLoader{name: "local"},
		Web:   staticLoader{name: "web"},
		S3:    staticLoader{name: "s3"},
	}
	tests := map[string]string{
		"reports/berlin.txt":             "local",
		"https://example.org/no2":        "web",
		"http://example.org/no2":         "web",
		"s3://air-quality/reports/a.txt": "s3",
	}
	for location, want := range tests {
		f := NewGraphFile(NewGraphFileParams{FilePath: location, Loader: l})
		got, err := f.GetText(context.Background())
		if err != nil {
			t.Fatalf("GetText(%q) error = %v", location, err)
		}
		if string(got) != want {
			t.Fatalf("GetText(%q) used %q, want %q", location, got, want)
		}
	}

	f := NewGraphFile(NewGraphFileParams{FilePath: "s3://bucket/key", Loader: SchemeLoader{}})
	if _, err := f.GetText(context.Background()); err == nil {
		t.Fatal("expected error for missing s3 loader")
	}
}

func TestNewGraphFile_DefaultsID(t *testing.T) {
	f := NewGraphFile(NewGraphFileParams{FilePath: "a.txt"})
	if f.ID != "a.txt" {
		t.Fatalf("ID = %q", f.ID)
	}
	if _, err := f.GetText(context.Background()); err == nil {
		t.Fatal("expected error for file without loader")
	}
}

func TestParseS3Location(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{location: "s3://air/reports/2024.json", bucket: "air", key: "reports/2024.json"},
		{location: "s3://air", wantErr: true},
		{location: "s3:///key", wantErr: true},
		{location: "reports/2024.json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseS3Location(tt.location)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Fatalf("got %q %q", bucket, key)
			}
		})
	}
}

func TestCache(t *testing.T) {
	var c Cache
	var calls atomic.Int32

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			data, err := c.Load("k", func() ([]byte, error) {
				calls.Add(1)
				return []byte("text"), nil
			})
			if err != nil || string(data) != "text" {
				t.Errorf("Load() = %q, %v", data, err)
			}
		})
	}
	wg.Wait()

	if _, err := c.Load("k", func() ([]byte, error) { return nil, errors.New("unused") }); err != nil {
		t.Fatalf("expected cached value, got %v", err)
	}
	if calls.Load() < 1 || calls.Load() > 8 {
		t.Fatalf("unexpected fetch count %d", calls.Load())
	}

	if _, err := c.Load("bad", func() ([]byte, error) { return nil, errors.New("boom") }); err == nil {
		t.Fatal("expected fetch error")
	}
	data, err := c.Load("bad", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(data) != "ok" {
		t.Fatalf("failed fetch was cached: %q, %v", data, err)
	}
}
