package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_Deterministic(t *testing.T) {
	a, err := Locator([]byte("hello"))
	require.NoError(t, err)
	b, err := Locator([]byte("hello"))
	require.NoError(t, err)
	c, err := Locator([]byte("hello!"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// CIDv1 strings are base32 multibase
	assert.Equal(t, byte('b'), a[0])
}

func TestParseLocator(t *testing.T) {
	loc, err := Locator([]byte("payload"))
	require.NoError(t, err)

	parsed, err := ParseLocator(loc)
	require.NoError(t, err)
	assert.Equal(t, loc, parsed)

	_, err = ParseLocator("not-a-cid")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	loc, err := Locator([]byte("payload"))
	require.NoError(t, err)

	assert.NoError(t, Verify(loc, []byte("payload")))
	assert.Error(t, Verify(loc, []byte("tampered")))
	assert.Error(t, Verify("garbage", []byte("payload")))
}
