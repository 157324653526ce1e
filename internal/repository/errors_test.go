package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage_WrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("write projects", cause)

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "write projects")

	var se *StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "write projects", se.Op)
}

func TestStorage_PassesThroughSentinels(t *testing.T) {
	require.Nil(t, Storage("noop", nil))
	require.Equal(t, ErrNotFound, Storage("get", ErrNotFound))
	require.Equal(t, ErrConflict, Storage("create", ErrConflict))

	err := Storage("read", context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrStorage)
}
