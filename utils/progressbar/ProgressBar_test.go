package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	p, err := New(&out, 10, 2000, "steps")
	require.NoError(t, err)

	require.NoError(t, p.Add(1000))
	assert.Equal(t, 0.5, p.Progress())
	assert.Contains(t, p.String(), "2,000 steps")
	assert.Contains(t, p.String(), "1000/2000")

	// Progress is capped at the maximum
	require.NoError(t, p.Add(5000))
	require.NoError(t, p.Increment())
	assert.Equal(t, 1.0, p.Progress())
	assert.Contains(t, out.String(), "2000/2000")
	assert.True(t, strings.HasSuffix(out.String(), "\n"))

	// Closing a completed bar writes nothing more
	n := out.Len()
	require.NoError(t, p.Close())
	assert.Equal(t, n, out.Len())
}

func TestClose(t *testing.T) {
	var out bytes.Buffer
	p, err := New(&out, 10, 5, "epochs")
	require.NoError(t, err)
	require.NoError(t, p.Increment())

	require.NoError(t, p.Close())
	assert.Equal(t, 1.0, p.Progress())
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestNewInvalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, 0, 10, "")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, 10, 0, "")
	assert.Error(t, err)
}
