package storage

import (
	"context"
	"fmt"
	"os"
)

// NullUploader discards uploads. It backs dry runs and the "none" backend:
// callers observe the full publishing flow without any bytes leaving the
// machine. The local file is still stat'd so a dry run surfaces missing
// artefacts the same way a real one would.
type NullUploader struct{}

func (NullUploader) Upload(_ context.Context, req *UploadRequest) (*UploadResult, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", req.Path, err)
	}
	return &UploadResult{
		ObjectName: req.ObjectName,
		Size:       info.Size(),
	}, nil
}
