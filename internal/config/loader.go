package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Loader translates one concrete pipeline document into the model.
type Loader interface {
	// Load reads the document at path, decodes it and validates the result.
	Load(ctx context.Context, path string) (*Model, error)
}

// ForPath picks the loader matching the file extension of path.
func ForPath(path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return NewHCLLoader(), nil
	case ".yml", ".yaml":
		return NewYAMLLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported pipeline format %q (want .hcl, .yml or .yaml)", filepath.Ext(path))
	}
}
