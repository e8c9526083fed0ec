package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/debug"
)

func sampleEntry(src string) *TraceEntry {
	return &TraceEntry{
		Source: src,
		Lines:  []string{"x = 1"},
		Snapshots: []debug.Snapshot{
			{
				Line:         0,
				Locals:       map[string]string{"x": "1"},
				ScopeInfo:    map[string]string{"x": "global"},
				TypeInfo:     map[string]string{"x": "int"},
				PreExecution: true,
			},
			{
				Line:       0,
				Locals:     map[string]string{"x": "1"},
				ScopeInfo:  map[string]string{"x": "global"},
				TypeInfo:   map[string]string{"x": "int"},
				FinalState: true,
			},
		},
	}
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("x = 1"), Key("x = 1"))
	assert.NotEqual(t, Key("x = 1"), Key("x = 2"))
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	entry := sampleEntry("x = 1")
	key := Key(entry.Source)

	assert.False(t, s.Has(key))
	require.NoError(t, s.Put(key, entry))
	assert.True(t, s.Has(key))

	got := &TraceEntry{}
	found, err := s.Get(key, got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Source, got.Source)
	assert.Equal(t, entry.Lines, got.Lines)
	require.Len(t, got.Snapshots, 2)
	assert.Equal(t, "1", got.Snapshots[0].Locals["x"])
	assert.True(t, got.Snapshots[0].PreExecution)
	assert.True(t, got.Snapshots[1].FinalState)
}

func TestMemoryStoreMiss(t *testing.T) {
	s := NewMemoryStore()
	found, err := s.Get(Key("nope"), &TraceEntry{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLRUStoreRoundtrip(t *testing.T) {
	s := NewLRUStore(NewMemoryStore(), 4)
	entry := sampleEntry("x = 1")
	key := Key(entry.Source)

	require.NoError(t, s.Put(key, entry))
	assert.True(t, s.Has(key))

	got := &TraceEntry{}
	found, err := s.Get(key, got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Source, got.Source)
}

func TestLRUStoreEviction(t *testing.T) {
	underlying := NewMemoryStore()
	s := NewLRUStore(underlying, 2)
	for i := 0; i < 3; i++ {
		src := fmt.Sprintf("x = %d", i)
		require.NoError(t, s.Put(Key(src), sampleEntry(src)))
	}
	assert.Equal(t, 2, s.Stats().Size)
	assert.Equal(t, 2, s.Stats().MaxSize)

	// Evicted from the cache but still served from the underlying store.
	got := &TraceEntry{}
	found, err := s.Get(Key("x = 0"), got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x = 0", got.Source)
}

func TestLRUStoreDefaultSize(t *testing.T) {
	s := NewLRUStore(NewMemoryStore(), 0)
	assert.Equal(t, 128, s.Stats().MaxSize)
}
