package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvstore/lsmcore/internal/base"
)

// TestMVCCGet is spec.md §8 scenario S6: inserting seq=10 Set "x"->"A",
// seq=20 Deletion "x", seq=30 Set "x"->"B" must resolve snapshot reads
// at seq=15 to "A", seq=25 to not-found (tombstone), and seq=35 to "B".
func TestMVCCGet(t *testing.T) {
	m := New(base.DefaultComparer)
	m.Add(10, base.InternalKeyKindSet, []byte("x"), []byte("A"))
	m.Add(20, base.InternalKeyKindDeletion, []byte("x"), nil)
	m.Add(30, base.InternalKeyKindSet, []byte("x"), []byte("B"))

	v, tombstone, found := m.Get([]byte("x"), 15)
	require.True(t, found)
	require.False(t, tombstone)
	require.Equal(t, []byte("A"), v)

	_, tombstone, found = m.Get([]byte("x"), 25)
	require.True(t, found)
	require.True(t, tombstone)

	v, tombstone, found = m.Get([]byte("x"), 35)
	require.True(t, found)
	require.False(t, tombstone)
	require.Equal(t, []byte("B"), v)
}

// TestGetMissingKey confirms a user key never written at all reports
// not-found rather than aliasing some other key's entry.
func TestGetMissingKey(t *testing.T) {
	m := New(base.DefaultComparer)
	m.Add(10, base.InternalKeyKindSet, []byte("a"), []byte("1"))

	_, _, found := m.Get([]byte("zzz"), 100)
	require.False(t, found)
}

// TestGetBeforeAnyWrite confirms a snapshot older than every write to a
// key sees nothing, not the oldest write.
func TestGetBeforeAnyWrite(t *testing.T) {
	m := New(base.DefaultComparer)
	m.Add(10, base.InternalKeyKindSet, []byte("x"), []byte("A"))

	_, _, found := m.Get([]byte("x"), 5)
	require.False(t, found)
}

// TestIterOrder is spec.md's property 2: iteration over the memtable
// visits entries in ascending user-key order, and for equal user keys in
// descending sequence-number order (newest first).
func TestIterOrder(t *testing.T) {
	m := New(base.DefaultComparer)
	m.Add(1, base.InternalKeyKindSet, []byte("b"), []byte("b1"))
	m.Add(5, base.InternalKeyKindSet, []byte("a"), []byte("a-new"))
	m.Add(1, base.InternalKeyKindSet, []byte("a"), []byte("a-old"))
	m.Add(2, base.InternalKeyKindSet, []byte("c"), []byte("c1"))

	var order []string
	for it := m.NewIter(); it.Valid(); it.Next() {
		ik, ok := base.DecodeInternalKey(it.Key())
		require.True(t, ok)
		order = append(order, string(ik.UserKey))
	}
	require.Equal(t, []string{"a", "a", "b", "c"}, order)

	it := m.NewIter()
	ik, _ := base.DecodeInternalKey(it.Key())
	require.Equal(t, uint64(5), ik.SeqNum)
	it.Next()
	ik, _ = base.DecodeInternalKey(it.Key())
	require.Equal(t, uint64(1), ik.SeqNum)
}

func TestLenCounts(t *testing.T) {
	m := New(base.DefaultComparer)
	require.Equal(t, 0, m.Len())
	m.Add(1, base.InternalKeyKindSet, []byte("a"), []byte("1"))
	m.Add(2, base.InternalKeyKindSet, []byte("b"), []byte("2"))
	require.Equal(t, 2, m.Len())
}
