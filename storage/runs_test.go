package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRunLifecycle(t *testing.T) {
	s, _ := setupTestSchema(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "/var/log/modsec_audit.log")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, id, 120, 3, 1500*time.Millisecond, nil))
	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, run.Status)
	assert.Equal(t, 120, run.Records)
	assert.Equal(t, 3, run.Skipped)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
	require.NotNil(t, run.FinishedAt)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestImportRunFailed(t *testing.T) {
	s, _ := setupTestSchema(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "audit.log")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, id, 0, 0, time.Second, assert.AnError))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestImportRunNotFound(t *testing.T) {
	s, _ := setupTestSchema(t)
	ctx := context.Background()

	assert.Error(t, s.FinishRun(ctx, "missing", 0, 0, 0, nil))
	_, err := s.GetRun(ctx, "missing")
	assert.Error(t, err)
}
