package pdr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_RunInitAgent(t *testing.T) {
	t.Parallel()

	t.Run("repopulates from scratch", func(t *testing.T) {
		t.Parallel()
		r := New(testConfig())
		_, err := r.AddRecord(1, []byte("stale"))
		require.NoError(t, err)

		err = r.RunInitAgent(func(r *Repository) error {
			_, addErr := r.AddRecord(2, []byte("fresh"))
			return addErr
		})
		require.NoError(t, err)

		res, err := r.FindPDR(2, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), res.RecordHandle)

		_, err = r.FindPDR(1, 0)
		require.Error(t, err)
	})

	t.Run("nil populate fails not_ready and leaves state failed", func(t *testing.T) {
		t.Parallel()
		r := New(testConfig())

		err := r.RunInitAgent(nil)
		require.Error(t, err)
		code, ok := CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrNotReady, code)
		assert.Equal(t, StateFailed, r.GetRepositoryInfo().State)
	})

	t.Run("populate error leaves state failed", func(t *testing.T) {
		t.Parallel()
		r := New(testConfig())
		wantErr := errors.New("populate boom")

		err := r.RunInitAgent(func(r *Repository) error {
			return wantErr
		})
		require.ErrorIs(t, err, wantErr)
		assert.Equal(t, StateFailed, r.GetRepositoryInfo().State)
	})

	t.Run("signature reflects the rebuilt contents", func(t *testing.T) {
		t.Parallel()
		r := New(testConfig())
		_, err := r.AddRecord(1, []byte("stale"))
		require.NoError(t, err)
		before := r.GetSignature()

		err = r.RunInitAgent(func(r *Repository) error {
			_, addErr := r.AddRecord(1, []byte("different"))
			return addErr
		})
		require.NoError(t, err)

		assert.NotEqual(t, before, r.GetSignature())
	})
}
