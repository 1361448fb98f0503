package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalUploader copies artefacts into a directory on the local filesystem,
// mirroring the object key layout under its base directory. Useful for tests
// and for air-gapped build hosts where the bucket is synced separately.
type LocalUploader struct {
	baseDir string
}

// NewLocalUploader creates a LocalUploader that writes artefacts under
// baseDir. The directory is created if it does not already exist.
func NewLocalUploader(baseDir string) (*LocalUploader, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &LocalUploader{baseDir: abs}, nil
}

// Upload copies the file at req.Path to baseDir/objectName, creating any
// intermediate directories as needed. The returned Location is a file:// URL
// pointing to the written file.
func (u *LocalUploader) Upload(_ context.Context, req *UploadRequest) (*UploadResult, error) {
	src, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %q: %w", req.Path, err)
	}
	defer src.Close()

	dest := filepath.Join(u.baseDir, filepath.FromSlash(req.ObjectName))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.ObjectName, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, src)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}

	fileURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}

	return &UploadResult{
		ObjectName: req.ObjectName,
		Location:   fileURL.String(),
		Size:       n,
	}, nil
}
