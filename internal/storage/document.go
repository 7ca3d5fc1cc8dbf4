package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/loader"
)

// DocumentStore reads and writes fragment documents by location.
// "s3://bucket/key" locations go through the object client; every other
// location is a local path.
type DocumentStore struct {
	client ObjectClient
}

// NewDocumentStore creates a DocumentStore. client may be nil, in which
// case S3 locations fail.
func NewDocumentStore(client ObjectClient) *DocumentStore {
	return &DocumentStore{client: client}
}

// ReadBytes returns the raw content at location.
func (d *DocumentStore) ReadBytes(ctx context.Context, location string) ([]byte, error) {
	if !loader.IsS3Location(location) {
		return os.ReadFile(location)
	}
	bucket, key, err := d.s3Target(location)
	if err != nil {
		return nil, err
	}
	return GetFile(ctx, d.client, bucket, key)
}

// WriteBytes stores data at location, creating local directories as
// needed.
func (d *DocumentStore) WriteBytes(ctx context.Context, location string, data []byte) error {
	if !loader.IsS3Location(location) {
		if dir := filepath.Dir(location); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
		return os.WriteFile(location, data, 0o644)
	}
	bucket, key, err := d.s3Target(location)
	if err != nil {
		return err
	}
	return PutFile(ctx, d.client, bucket, key, data)
}

// Load decodes the fragment at location leniently.
func (d *DocumentStore) Load(ctx context.Context, location string) (*common.Fragment, error) {
	data, err := d.ReadBytes(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	f, err := common.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return f, nil
}

// LoadOrEmpty is Load, except that a missing local file yields an empty
// fragment.
func (d *DocumentStore) LoadOrEmpty(ctx context.Context, location string) (*common.Fragment, error) {
	if !loader.IsS3Location(location) {
		if _, err := os.Stat(location); os.IsNotExist(err) {
			return common.NewFragment(), nil
		}
	}
	return d.Load(ctx, location)
}

// Save encodes f as indented JSON and writes it to location.
func (d *DocumentStore) Save(ctx context.Context, location string, f *common.Fragment) error {
	data, err := common.Encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode fragment: %w", err)
	}
	if err := d.WriteBytes(ctx, location, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", location, err)
	}
	return nil
}

func (d *DocumentStore) s3Target(location string) (string, string, error) {
	if d.client == nil {
		return "", "", fmt.Errorf("no s3 client configured for %s", location)
	}
	return loader.ParseS3Location(location)
}
