package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerAlwaysAcquires(t *testing.T) {
	l := New(nil, "lock:")
	assert.Nil(t, l)

	release, err := l.TryAcquire(context.Background(), "itn:1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()

	again, err := l.TryAcquire(context.Background(), "itn:1")
	require.NoError(t, err)
	again()
}
