package bloom

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(i uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, i)
	return b
}

func TestEmptyFilter(t *testing.T) {
	p := NewPolicy(10)
	f := p.CreateFilter(nil, nil)
	require.False(t, KeyMayMatch([]byte("hello"), f))
	require.False(t, KeyMayMatch([]byte("world"), f))
}

func TestSmall(t *testing.T) {
	p := NewPolicy(10)
	f := p.CreateFilter([][]byte{[]byte("hello"), []byte("world")}, nil)
	require.True(t, KeyMayMatch([]byte("hello"), f))
	require.True(t, KeyMayMatch([]byte("world"), f))
	require.False(t, KeyMayMatch([]byte("x"), f))
	require.False(t, KeyMayMatch([]byte("foo"), f))
}

// TestFalsePositiveRate is spec.md §8 property 12: with 10 bits/key, the
// false-positive rate against disjoint random keys must be <= 2%.
func TestFalsePositiveRate(t *testing.T) {
	p := NewPolicy(10)
	const n = 10000
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = testKey(uint32(i))
	}
	f := p.CreateFilter(keys, nil)

	for i := range keys {
		require.True(t, KeyMayMatch(keys[i], f), "key %d must match its own filter", i)
	}

	falsePositives := 0
	const probes = 10000
	for i := 0; i < probes; i++ {
		// Disjoint key space: offset well clear of [0, n).
		k := testKey(uint32(i) + 1_000_000_000)
		if KeyMayMatch(k, f) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(probes)
	require.LessOrEqual(t, rate, 0.02, "false positive rate too high: %f", rate)
}
