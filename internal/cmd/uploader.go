package cmd

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"wheelhouse/internal/config"
	"wheelhouse/internal/storage"
)

// newUploader constructs the storage backend selected by the configuration.
// The returned close function releases backend resources and is safe to call
// unconditionally.
func newUploader(ctx context.Context, cfg *config.Config, dryRun bool) (storage.Uploader, func(), error) {
	noop := func() {}

	if dryRun {
		return storage.NullUploader{}, noop, nil
	}

	switch cfg.Upload.Backend {
	case "toscli":
		u, err := storage.NewTOSUploader(cfg.Upload.TOSBinary, cfg.Upload.Bucket, cfg.Upload.AccessKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialise toscli uploader: %w", err)
		}
		return u, noop, nil

	case "gcs":
		var opts []option.ClientOption
		if cfg.Upload.GCSCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Upload.GCSCredentialsFile))
		}
		u, err := storage.NewGCSUploader(ctx, cfg.Upload.Bucket, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialise GCS uploader: %w", err)
		}
		return u, func() { _ = u.Close() }, nil

	case "disk":
		u, err := storage.NewLocalUploader(cfg.Upload.DiskRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialise local uploader: %w", err)
		}
		return u, noop, nil

	case "none":
		return storage.NullUploader{}, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}
}
