package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	b := NewBcrypt(4)

	digest, err := b.Hash("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", digest)

	assert.True(t, b.Compare("secret1", digest))
	assert.False(t, b.Compare("wrong", digest))
}

func TestBcrypt_DigestsDiffer(t *testing.T) {
	b := NewBcrypt(4)

	first, err := b.Hash("secret1")
	require.NoError(t, err)
	second, err := b.Hash("secret1")
	require.NoError(t, err)

	// Salted digests never repeat.
	assert.NotEqual(t, first, second)
}

func TestBcrypt_DefaultCost(t *testing.T) {
	b := NewBcrypt(0)
	assert.NotZero(t, b.cost)
}
