//go:build linux

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	ok, err := e.Get()
	require.NoError(t, err)
	assert.False(t, ok, "fresh semaphore is empty")

	require.NoError(t, e.Put(1))
	ok, err = e.Get()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Get()
	require.NoError(t, err)
	assert.False(t, ok, "counter drained back to zero")
}

func TestGetConsumesOneUnitAtATime(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put(3))
	for i := 0; i < 3; i++ {
		ok, err := e.Get()
		require.NoError(t, err)
		assert.True(t, ok, "unit %d", i)
	}
	ok, err := e.Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFDIsUsable(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	assert.Greater(t, e.FD(), 0)
}
