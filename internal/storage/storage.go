package storage

import (
	"context"
)

// Uploader persists staged artefacts to a storage backend.
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}

type UploadRequest struct {
	// ObjectName is the object key within the configured bucket.
	ObjectName string

	// Path is the local file to upload. Backends read it directly; the
	// pipeline only ever publishes files it has already staged to disk.
	Path string

	// ContentType is the MIME type of the content. Backends that cannot
	// carry a content type ignore it.
	ContentType string
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	// ObjectName is the object key within the configured bucket.
	ObjectName string

	// Location addresses the uploaded object in backend-native form, e.g.
	// tos://bucket/key, gs://bucket/key or a file:// URL.
	Location string

	// Size is the number of bytes uploaded.
	Size int64
}

var (
	_ Uploader = (*TOSUploader)(nil)
	_ Uploader = (*GCSUploader)(nil)
	_ Uploader = (*LocalUploader)(nil)
	_ Uploader = NullUploader{}
)
