package loader

import (
	"context"
	"fmt"
)

// GraphFile represents an input document that is split into text units for
// knowledge extraction. The content is retrieved via the associated
// GraphFileLoader.
type GraphFile struct {
	ID        string
	FilePath  string
	MaxTokens int
	Loader    GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new
// GraphFile.
type NewGraphFileParams struct {
	ID        string
	FilePath  string
	MaxTokens int
	Loader    GraphFileLoader
}

// NewGraphFile creates a GraphFile. An empty ID defaults to the file path.
func NewGraphFile(params NewGraphFileParams) GraphFile {
	id := params.ID
	if id == "" {
		id = params.FilePath
	}
	return GraphFile{
		ID:        id,
		FilePath:  params.FilePath,
		MaxTokens: params.MaxTokens,
		Loader:    params.Loader,
	}
}

// GetText retrieves the raw text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("file %s has no loader", f.FilePath)
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a
// GraphFile. Implementations may load files from disk, object storage or
// the web.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}
