package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureBuffer_RoundTrip(t *testing.T) {
	t.Parallel()

	// memguard may zero the source slice, keep a copy for comparison
	secretStr := "cattle-secret-key"
	buf, err := NewSecureBuffer([]byte(secretStr))
	require.NoError(t, err)
	defer buf.Destroy()

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()

	assert.Equal(t, secretStr, string(locked.Bytes()))
}

func TestSecureBuffer_RejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewSecureBuffer(nil)
	require.Error(t, err)

	_, err = NewSecureBufferFromString("")
	require.Error(t, err)
}

func TestSecureBuffer_WithBytes(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBufferFromString("hunter2-long-enough")
	require.NoError(t, err)
	defer buf.Destroy()

	var seen string
	err = buf.WithBytes(func(b []byte) error {
		seen = string(b)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hunter2-long-enough", seen)
}

func TestSecureBuffer_DestroyIsIdempotent(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBufferFromString("to-be-destroyed")
	require.NoError(t, err)

	buf.Destroy()
	buf.Destroy()

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()
	assert.Empty(t, locked.Bytes())
}
