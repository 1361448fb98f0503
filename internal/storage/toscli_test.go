package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeTOSCLI drops a shell script that records its argv and the access
// key it sees in the environment, then exits with the given code.
func writeFakeTOSCLI(t *testing.T, dir string, exitCode int) (bin, logPath string) {
	t.Helper()

	logPath = filepath.Join(dir, "calls.log")
	bin = filepath.Join(dir, "toscli")

	script := fmt.Sprintf(`#!/bin/sh
echo "args:$@" >> %q
echo "key:$TOS_ACCESS_KEY" >> %q
if [ %d -ne 0 ]; then
	echo "toscli: access denied" >&2
	exit %d
fi
`, logPath, logPath, exitCode, exitCode)

	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, logPath
}

func writeArtefact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTOSUploaderArgumentContract(t *testing.T) {
	dir := t.TempDir()
	bin, logPath := writeFakeTOSCLI(t, dir, 0)
	src := writeArtefact(t, dir, "ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", "wheel-bytes")

	u, err := NewTOSUploader(bin, "ray-wheels", "sekret")
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), &UploadRequest{
		ObjectName: "v1/ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl",
		Path:       src,
	})
	require.NoError(t, err)

	assert.Equal(t, "tos://ray-wheels/v1/ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", res.Location)
	assert.Equal(t, int64(len("wheel-bytes")), res.Size)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "expected exactly one invocation")

	wantArgs := "args:-bucket ray-wheels put -name v1/ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl " + src
	assert.Equal(t, wantArgs, lines[0])

	// The credential must reach the child through its environment only.
	assert.NotContains(t, lines[0], "sekret")
	assert.Equal(t, "key:sekret", lines[1])
}

func TestTOSUploaderFailureIncludesOutput(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeFakeTOSCLI(t, dir, 3)
	src := writeArtefact(t, dir, "ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", "wheel-bytes")

	u, err := NewTOSUploader(bin, "ray-wheels", "")
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), &UploadRequest{
		ObjectName: "v1/ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl",
		Path:       src,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "v1/ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl")
}

func TestTOSUploaderMissingFile(t *testing.T) {
	dir := t.TempDir()
	bin, logPath := writeFakeTOSCLI(t, dir, 0)

	u, err := NewTOSUploader(bin, "ray-wheels", "")
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), &UploadRequest{
		ObjectName: "v1/missing.whl",
		Path:       filepath.Join(dir, "missing.whl"),
	})
	require.Error(t, err)

	// The CLI must not have been invoked for a file we cannot read.
	_, statErr := os.Stat(logPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewTOSUploaderRequiresBucket(t *testing.T) {
	_, err := NewTOSUploader("toscli", "", "")
	assert.Error(t, err)
}
