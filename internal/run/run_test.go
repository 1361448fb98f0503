package run

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelhouse/internal/pipeline"
)

func TestMemoryStoreCreate(t *testing.T) {
	s := NewMemoryStore()

	r, err := s.Create("default", "cp38-cp38")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(r.ID, "build_"))
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "default", r.Profile)
	assert.Equal(t, "cp38-cp38", r.Versions)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()

	r, err := s.Create("default", "")
	require.NoError(t, err)

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	got.Status = StatusFailed
	got.Error = "mutated"

	again, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
	assert.Empty(t, again.Error)
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("build_unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	r, err := s.Create("luban", "")
	require.NoError(t, err)

	logPath := "/var/log/wheelhouse/" + r.ID + ".log"
	require.NoError(t, s.MarkRunning(r.ID, logPath))

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, logPath, got.LogPath)

	result := &pipeline.Result{
		Versions:  "cp38-cp38",
		OutputDir: "/builds/dist",
		Staged:    2,
		Artefacts: []pipeline.Artefact{
			{Name: "ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", Uploaded: true},
		},
		Uploaded: 1,
	}
	require.NoError(t, s.MarkComplete(r.ID, result))

	got, err = s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, "cp38-cp38", got.Versions)
	assert.Equal(t, "/builds/dist", got.OutputDir)
	assert.Equal(t, 1, got.Uploaded)
	require.Len(t, got.Artefacts, 1)
	assert.True(t, got.Artefacts[0].Uploaded)
}

func TestMemoryStoreMarkFailed(t *testing.T) {
	s := NewMemoryStore()

	r, err := s.Create("default", "")
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(r.ID, errors.New("build script: exit status 3")))

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "build script: exit status 3", got.Error)
}

func TestMemoryStoreUpdateUnknown(t *testing.T) {
	s := NewMemoryStore()

	assert.ErrorIs(t, s.MarkRunning("build_unknown", ""), ErrNotFound)
	assert.ErrorIs(t, s.MarkComplete("build_unknown", &pipeline.Result{}), ErrNotFound)
	assert.ErrorIs(t, s.MarkFailed("build_unknown", errors.New("boom")), ErrNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		r, err := s.Create("default", "")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	runs, err := s.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)

	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i-1].CreatedAt.Before(runs[i].CreatedAt))
	}

	got := make([]string, 0, len(runs))
	for _, r := range runs {
		got = append(got, r.ID)
	}
	assert.ElementsMatch(t, ids, got)
}
