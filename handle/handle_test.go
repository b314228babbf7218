package handle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func pipeFDs(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	return fds[0], fds[1]
}

func TestCloseClosesOnce(t *testing.T) {
	r, w := pipeFDs(t)
	defer unix.Close(w)
	h := New(r)

	assert.True(t, h.Valid())
	gotFD, ok := h.FD()
	assert.True(t, ok)
	assert.Equal(t, r, gotFD)

	require.NoError(t, h.Close())
	assert.False(t, h.Valid())

	// Second close is a no-op, not a double-close of the kernel fd.
	require.NoError(t, h.Close())

	// The fd is actually gone: a bare close() on it now fails.
	assert.Error(t, unix.Close(r))
}

func TestRelease(t *testing.T) {
	r, w := pipeFDs(t)
	defer unix.Close(w)
	h := New(r)

	released := h.Release()
	assert.Equal(t, r, released)
	assert.False(t, h.Valid())

	// Close after Release must not touch the fd — we no longer own it.
	require.NoError(t, h.Close())
	require.NoError(t, unix.Close(released))
}

func TestFDInvalidAfterRelease(t *testing.T) {
	r, w := pipeFDs(t)
	unix.Close(w)
	h := New(r)
	h.Release()

	_, ok := h.FD()
	assert.False(t, ok)
	unix.Close(r)
}

func TestNewFromFactorySuccess(t *testing.T) {
	r, w := pipeFDs(t)
	defer unix.Close(w)

	h, err := NewFromFactory(func() (int, error) { return r, nil })
	require.NoError(t, err)
	gotFD, ok := h.FD()
	assert.True(t, ok)
	assert.Equal(t, r, gotFD)
	require.NoError(t, h.Close())
}

func TestNewFromFactoryPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	h, err := NewFromFactory(func() (int, error) { return 0, wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, h)
}

func TestNewFromFactoryRejectsNegativeDescriptor(t *testing.T) {
	h, err := NewFromFactory(func() (int, error) { return -1, nil })
	assert.Error(t, err)
	assert.Nil(t, h)
}
