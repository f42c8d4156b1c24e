package secret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_TakeIsSingleUse(t *testing.T) {
	v := NewVault(time.Minute)
	defer v.Close()

	ref := v.Put("ghp_secret")

	value, ok := v.Take(ref)
	require.True(t, ok)
	assert.Equal(t, "ghp_secret", value)

	_, ok = v.Take(ref)
	assert.False(t, ok)
}

func TestVault_UnknownRef(t *testing.T) {
	v := NewVault(time.Minute)
	defer v.Close()

	_, ok := v.Take("does-not-exist")
	assert.False(t, ok)
}

func TestVault_Expiry(t *testing.T) {
	v := NewVault(10 * time.Millisecond)
	defer v.Close()

	ref := v.Put("ghp_secret")
	time.Sleep(30 * time.Millisecond)

	_, ok := v.Take(ref)
	assert.False(t, ok)
}

func TestVault_Drop(t *testing.T) {
	v := NewVault(time.Minute)
	defer v.Close()

	ref := v.Put("ghp_secret")
	v.Drop(ref)

	_, ok := v.Take(ref)
	assert.False(t, ok)
}

func TestVault_RefsAreUnique(t *testing.T) {
	v := NewVault(time.Minute)
	defer v.Close()

	a := v.Put("one")
	b := v.Put("two")
	require.NotEqual(t, a, b)

	valueA, okA := v.Take(a)
	valueB, okB := v.Take(b)
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, "one", valueA)
	assert.Equal(t, "two", valueB)
}
