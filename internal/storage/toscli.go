// Package storage provides an abstraction for uploading staged artefacts to
// an object-storage bucket. The toscli implementation is the production
// backend; the interface allows alternative implementations for testing and
// air-gapped runs.
package storage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// accessKeyEnv is the variable the toscli child process reads its credential
// from. The key never appears in argv, where it would leak into process
// listings and shell history.
const accessKeyEnv = "TOS_ACCESS_KEY"

// TOSUploader stores objects by shelling out to the toscli binary with the
// argument contract `-bucket <name> put -name <key> <file>`.
type TOSUploader struct {
	bin       string
	bucket    string
	accessKey string
}

// NewTOSUploader creates a TOSUploader for the given bucket. bin may be
// empty, in which case "toscli" is resolved from PATH. accessKey may be empty
// when the environment already credentials the CLI by other means.
func NewTOSUploader(bin, bucket, accessKey string) (*TOSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket must not be empty")
	}
	if bin == "" {
		bin = "toscli"
	}
	return &TOSUploader{bin: bin, bucket: bucket, accessKey: accessKey}, nil
}

// Upload invokes toscli once for the requested object. The CLI's combined
// output is folded into the returned error on failure so its diagnostics are
// not lost.
func (u *TOSUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", req.Path, err)
	}

	cmd := exec.CommandContext(ctx, u.bin, "-bucket", u.bucket, "put", "-name", req.ObjectName, req.Path)
	cmd.Env = os.Environ()
	if u.accessKey != "" {
		cmd.Env = append(cmd.Env, accessKeyEnv+"="+u.accessKey)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return nil, fmt.Errorf("storage: toscli put %q failed: %w: %s", req.ObjectName, err, msg)
		}
		return nil, fmt.Errorf("storage: toscli put %q failed: %w", req.ObjectName, err)
	}

	return &UploadResult{
		ObjectName: req.ObjectName,
		Location:   fmt.Sprintf("tos://%s/%s", u.bucket, req.ObjectName),
		Size:       info.Size(),
	}, nil
}
