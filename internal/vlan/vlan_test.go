package vlan

import (
	"sync"
	"testing"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRange(t *testing.T) {
	labels, err := ExpandRange("100-102")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 101, 102}, labels)

	labels, err = ExpandRange("100")
	require.NoError(t, err)
	assert.Equal(t, []int{100}, labels)

	for _, bad := range []string{"", "a-b", "102-100", "0", "4096", "1-2-3"} {
		_, err := ExpandRange(bad)
		assert.ErrorIs(t, err, model.ErrValidation, bad)
	}

	labels, err = ExpandRanges([]string{"5-7", "1", "6-8"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 6, 7, 8}, labels)
}

func newTable(t *testing.T) *Table {
	table, err := NewTableFromRanges(map[string]map[string][]string{
		"A": {"a1": {"100-102"}, "a2": {"100-102"}},
		"B": {"b1": {"100-102"}, "b2": {"200"}},
	})
	require.NoError(t, err)

	return table
}

func TestReserve(t *testing.T) {
	table := newTable(t)

	tag, err := table.Reserve("A", "a1", model.AnyVlan)
	require.NoError(t, err)
	assert.Equal(t, 100, tag)

	tag, err = table.Reserve("A", "a1", 102)
	require.NoError(t, err)
	assert.Equal(t, 102, tag)

	_, err = table.Reserve("A", "a1", 102)
	assert.ErrorIs(t, err, model.ErrVlanExhausted)

	tag, err = table.Reserve("A", "a1", model.AnyVlan)
	require.NoError(t, err)
	assert.Equal(t, 101, tag)

	_, err = table.Reserve("A", "a1", model.AnyVlan)
	assert.ErrorIs(t, err, model.ErrVlanExhausted)

	_, err = table.Reserve("C", "a1", model.AnyVlan)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = table.Reserve("A", "zz", model.AnyVlan)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, table.Unreserve("A", "a1", 101))
	assert.ErrorIs(t, table.Unreserve("A", "a1", 101), model.ErrValidation)
	ok, err := table.IsAvailable("A", "a1", 101)
	require.NoError(t, err)
	assert.True(t, ok)

	free, err := table.Available("A", "a1")
	require.NoError(t, err)
	assert.Equal(t, []int{101}, free)
}

func TestReserveSegmentIsAtomic(t *testing.T) {
	table := newTable(t)

	_, err := table.Reserve("B", "b2", 200)
	require.NoError(t, err)

	_, _, err = table.ReserveSegment("B",
		Request{Port: "b1", Tag: 101},
		Request{Port: "b2"},
	)
	assert.ErrorIs(t, err, model.ErrVlanExhausted)

	ok, err := table.IsAvailable("B", "b1", 101)
	require.NoError(t, err)
	assert.True(t, ok, "ingress label should have been given back")

	t.Run("SamePortTwice", func(t *testing.T) {
		in, out, err := table.ReserveSegment("A", Request{Port: "a2"}, Request{Port: "a2"})
		require.NoError(t, err)
		assert.Equal(t, 100, in)
		assert.Equal(t, 101, out)
	})

	t.Run("Prefer", func(t *testing.T) {
		in, out, err := table.ReserveSegment("A", Request{Port: "a1", Prefer: 102}, Request{Port: "a1", Prefer: 102})
		require.NoError(t, err)
		assert.Equal(t, 102, in)
		assert.Equal(t, 100, out)
	})
}

func TestTxnRollback(t *testing.T) {
	table := newTable(t)
	before := table.Snapshot()

	_, err := table.Reserve("B", "b2", 200)
	require.NoError(t, err)

	tx := table.Begin()
	in, out, err := tx.ReserveSegment("A", Request{Port: "a1"}, Request{Port: "a2"})
	require.NoError(t, err)
	assert.Equal(t, 100, in)
	assert.Equal(t, 100, out)

	_, _, err = tx.ReserveSegment("B", Request{Port: "b1", Prefer: out}, Request{Port: "b2", Tag: 200})
	require.ErrorIs(t, err, model.ErrVlanExhausted)

	require.NoError(t, tx.Rollback())
	require.NoError(t, table.Unreserve("B", "b2", 200))
	assert.Equal(t, before, table.Snapshot())

	// a second rollback is a no-op
	assert.NoError(t, tx.Rollback())
}

func TestTxnCommit(t *testing.T) {
	table := newTable(t)

	tx := table.Begin()
	_, _, err := tx.ReserveSegment("A", Request{Port: "a1"}, Request{Port: "a2"})
	require.NoError(t, err)
	held := tx.Commit()
	assert.Len(t, held, 2)
	assert.NoError(t, tx.Rollback())

	ok, _ := table.IsAvailable("A", "a1", 100)
	assert.False(t, ok, "commit keeps the labels")

	require.NoError(t, Release(table, held))
	ok, _ = table.IsAvailable("A", "a1", 100)
	assert.True(t, ok)

	assert.Error(t, Release(table, held))
}

func TestConcurrentReserve(t *testing.T) {
	table, err := NewTableFromRanges(map[string]map[string][]string{
		"A": {"p": {"1-100"}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	tags := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag, err := table.Reserve("A", "p", model.AnyVlan)
			if err == nil {
				tags <- tag
			}
		}()
	}
	wg.Wait()
	close(tags)

	seen := map[int]bool{}
	for tag := range tags {
		assert.False(t, seen[tag], "label %d handed out twice", tag)
		seen[tag] = true
	}
	assert.Len(t, seen, 100)

	_, err = table.Reserve("A", "p", model.AnyVlan)
	assert.ErrorIs(t, err, model.ErrVlanExhausted)
}
