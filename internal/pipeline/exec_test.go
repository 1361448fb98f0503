package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnvReplacesExistingKeys(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/ci"}
	got := mergeEnv(base, map[string]string{"HOME": "/tmp/build"})
	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/tmp/build"}, got)
}

func TestMergeEnvAppendsNewKeysSorted(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	got := mergeEnv(base, map[string]string{"PYTHON_VERSIONS": "cp38-cp38", "BAZEL_LIMIT_CPUS": "16"})
	assert.Equal(t, []string{"PATH=/usr/bin", "BAZEL_LIMIT_CPUS=16", "PYTHON_VERSIONS=cp38-cp38"}, got)
}

func TestMergeEnvNoExtra(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	assert.Equal(t, base, mergeEnv(base, nil))
}

func TestMergeEnvDistinguishesKeyPrefixes(t *testing.T) {
	base := []string{"PYTHON_VERSIONS_FILE=/etc/versions"}
	got := mergeEnv(base, map[string]string{"PYTHON_VERSIONS": "cp39-cp39"})
	assert.Equal(t, []string{"PYTHON_VERSIONS_FILE=/etc/versions", "PYTHON_VERSIONS=cp39-cp39"}, got)
}
