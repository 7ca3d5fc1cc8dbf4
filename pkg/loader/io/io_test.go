package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urbanair/aqkg/pkg/loader"
)

func TestIOGraphFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("Buses emit NO2."), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader()
	file := loader.NewGraphFile(loader.NewGraphFileParams{FilePath: path, Loader: l})

	got, err := file.GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if string(got) != "Buses emit NO2." {
		t.Fatalf("GetText() = %q", got)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	cached, err := file.GetText(context.Background())
	if err != nil || string(cached) != "Buses emit NO2." {
		t.Fatalf("expected cached content, got %q, %v", cached, err)
	}

	missing := loader.NewGraphFile(loader.NewGraphFileParams{FilePath: path + ".missing", Loader: l})
	if _, err := missing.GetText(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
