package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// RunJobStoreContract runs a suite of tests to verify that a JobStore implementation
// adheres to the defined interface contract.
func RunJobStoreContract(t *testing.T, store JobStore) {
	t.Helper()
	ctx := context.Background()
	jobID := "contract-test-job-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		job := domain.NewJob(jobID, domain.KindReproject)
		job.Transform = "conical(30°)"
		job.Params["max_segment"] = 0.5
		job.Stats.Changed = 7
		job.Output = "G1 X1.000 Y0.000 Z0.577"

		require.NoError(t, store.Save(ctx, job), "Save should not return error")

		loaded, err := store.Load(ctx, jobID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, job.Kind, loaded.Kind)
		assert.Equal(t, job.Transform, loaded.Transform)
		assert.Equal(t, job.Output, loaded.Output)
		assert.Equal(t, 7, loaded.Stats.Changed)
		// JSON-backed stores return numbers as float64, which this value already is.
		assert.Equal(t, 0.5, loaded.Params["max_segment"])
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		job := domain.NewJob(jobID+"-copy", domain.KindRefine)
		job.Mesh = []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}
		require.NoError(t, store.Save(ctx, job))
		defer func() { _ = store.Delete(ctx, job.ID) }()

		job.Mesh[0] = 42
		loaded, err := store.Load(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, loaded.Mesh[0], "Save must not keep a reference to the caller's job")

		loaded.Mesh[1] = 42
		again, err := store.Load(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, again.Mesh[1], "Load must not hand out stored state")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+jobID)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewJob(jobID, domain.KindCheck)))

		require.NoError(t, store.Delete(ctx, jobID), "Delete should not return error")

		_, err := store.Load(ctx, jobID)
		assert.ErrorIs(t, err, domain.ErrJobNotFound, "Load after Delete should return ErrJobNotFound")

		assert.NoError(t, store.Delete(ctx, jobID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		older := domain.NewJob(jobID+"-1", domain.KindResegment)
		older.CreatedAt = time.Now().Add(-time.Minute).UTC()
		newer := domain.NewJob(jobID+"-2", domain.KindResegment)
		require.NoError(t, store.Save(ctx, older))
		require.NoError(t, store.Save(ctx, newer))
		defer func() {
			_ = store.Delete(ctx, older.ID)
			_ = store.Delete(ctx, newer.ID)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		require.Contains(t, ids, older.ID)
		require.Contains(t, ids, newer.ID)
		assert.Less(t, indexOf(ids, newer.ID), indexOf(ids, older.ID), "List should return most recent first")
	})
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
