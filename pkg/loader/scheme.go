package loader

import (
	"context"
	"fmt"
	"strings"
)

// SchemeLoader dispatches on the location of a file: "s3://bucket/key" goes
// to S3, "http://" and "https://" to Web and everything else to Local.
// A nil loader for a scheme makes files of that scheme fail to load.
type SchemeLoader struct {
	Local GraphFileLoader
	Web   GraphFileLoader
	S3    GraphFileLoader
}

// GetFileText implements GraphFileLoader.
func (l SchemeLoader) GetFileText(ctx context.Context, file GraphFile) ([]byte, error) {
	var next GraphFileLoader
	switch {
	case IsS3Location(file.FilePath):
		next = l.S3
	case strings.HasPrefix(file.FilePath, "http://"), strings.HasPrefix(file.FilePath, "https://"):
		next = l.Web
	default:
		next = l.Local
	}
	if next == nil {
		return nil, fmt.Errorf("no loader configured for %s", file.FilePath)
	}
	return next.GetFileText(ctx, file)
}

// IsS3Location reports whether location uses the s3:// scheme.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3Location splits "s3://bucket/key" into bucket and key.
func ParseS3Location(location string) (bucket string, key string, err error) {
	if !IsS3Location(location) {
		return "", "", fmt.Errorf("not an s3 location: %s", location)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs a bucket and a key: %s", location)
	}
	return bucket, key, nil
}
