package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/cli-runtime/iooption"

	"wheelhouse/internal/config"
	"wheelhouse/internal/storage"
)

// clearPipelineEnv blanks the contract variables so ambient CI state cannot
// leak into configuration tests.
func clearPipelineEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CUSTOM_PYTHON_VERSION",
		"BUILD_VERSION",
		"CUSTOM_RAY_UPLOAD_TOS",
		"BAZEL_LIMIT_CPUS",
		"LUBAN_SPECFIC_VERSION",
		"TOS_ACCESS_KEY",
	} {
		t.Setenv(k, "")
	}
}

func testStreams() (iooption.IOStreams, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	streams := iooption.IOStreams{In: &bytes.Buffer{}, Out: out, ErrOut: errOut}
	return streams, out, errOut
}

func TestRootCommandHasSubcommands(t *testing.T) {
	streams, _, _ := testStreams()
	cmd := NewRootCommandWithArgs(NewWheelhouseOptions(streams))

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "build")
	assert.Contains(t, names, "publish")
	assert.Contains(t, names, "serve")
}

func TestBuildCompleteAppliesFlags(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewBuildOptions(NewWheelhouseOptions(streams))
	o.Profile = "luban"
	o.PythonVersions = "cp39-cp39"
	o.Timeout = 45 * time.Minute
	o.SkipUpload = true
	o.OutputDir = "/data/dist"

	require.NoError(t, o.Complete(nil, nil))

	assert.Equal(t, "luban", o.cfg.Profile)
	assert.Equal(t, "cp39-cp39", o.cfg.Build.PythonVersions)
	assert.Equal(t, 45*time.Minute, o.cfg.Build.Timeout)
	assert.False(t, o.cfg.Upload.Enabled)
	assert.Equal(t, "/data/dist", o.cfg.Profiles["luban"].OutputDir)

	require.NoError(t, o.Validate())
}

func TestBuildValidateUnknownProfile(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewBuildOptions(NewWheelhouseOptions(streams))
	o.Profile = "nightly"

	require.NoError(t, o.Complete(nil, nil))
	assert.Error(t, o.Validate())
}

func TestPublishRequiresVersion(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewPublishOptions(NewWheelhouseOptions(streams))
	require.NoError(t, o.Complete(nil, nil))

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build version")
}

func TestPublishVersionFromEnv(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("BUILD_VERSION", "v1.13.0")
	streams, _, _ := testStreams()

	o := NewPublishOptions(NewWheelhouseOptions(streams))
	require.NoError(t, o.Complete(nil, nil))
	require.NoError(t, o.Validate())

	assert.Equal(t, "v1.13.0", o.cfg.Upload.BuildVersion)
	assert.True(t, o.cfg.Upload.Enabled)
}

func TestPublishDefaultsDirToProfileOutput(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewPublishOptions(NewWheelhouseOptions(streams))
	o.Version = "v1"

	require.NoError(t, o.Complete(nil, nil))
	assert.Equal(t, "output", o.Dir)
}

func TestPublishExplicitDir(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewPublishOptions(NewWheelhouseOptions(streams))
	o.Version = "v1"

	require.NoError(t, o.Complete(nil, []string{"/data/dist"}))
	assert.Equal(t, "/data/dist", o.Dir)
}

func TestServeCompleteAddrOverride(t *testing.T) {
	clearPipelineEnv(t)
	streams, _, _ := testStreams()

	o := NewServeOptions(NewWheelhouseOptions(streams))
	o.Addr = ":9999"

	require.NoError(t, o.Complete(nil, nil))
	assert.Equal(t, ":9999", o.cfg.Server.ListenAddress)
}

func TestNewUploaderBackends(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Upload.Backend = "none"
	u, closeFn, err := newUploader(ctx, cfg, false)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, storage.NullUploader{}, u)

	cfg = config.Default()
	cfg.Upload.Backend = "disk"
	cfg.Upload.DiskRoot = t.TempDir()
	u, closeFn, err = newUploader(ctx, cfg, false)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &storage.LocalUploader{}, u)

	cfg = config.Default()
	u, closeFn, err = newUploader(ctx, cfg, false)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &storage.TOSUploader{}, u)

	cfg = config.Default()
	cfg.Upload.Backend = "s3"
	_, _, err = newUploader(ctx, cfg, false)
	assert.Error(t, err)
}

func TestNewUploaderDryRun(t *testing.T) {
	cfg := config.Default()
	u, closeFn, err := newUploader(context.Background(), cfg, true)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, storage.NullUploader{}, u)
}
