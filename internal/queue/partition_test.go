package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPartitionState_AbsentFileIsIndexZero(t *testing.T) {
	state := LoadPartitionState(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, 0, state.CurrentIndex)
}

func TestLoadPartitionState_CorruptFileIsIndexZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partition_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	state := LoadPartitionState(path)
	assert.Equal(t, 0, state.CurrentIndex)
}

func TestLoadPartitionState_NegativeIndexIsIndexZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partition_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current_index": -3}`), 0644))

	state := LoadPartitionState(path)
	assert.Equal(t, 0, state.CurrentIndex)
}

func TestPartitionState_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partition_state.json")
	require.NoError(t, PartitionState{CurrentIndex: 7}.Save(path))

	state := LoadPartitionState(path)
	assert.Equal(t, 7, state.CurrentIndex)
}

func TestSelectPartition_WrapsOutOfRangeIndex(t *testing.T) {
	universe := []string{"a", "b", "c"}

	seed, idx := SelectPartition(universe, 4)
	assert.Equal(t, "b", seed)
	assert.Equal(t, 1, idx)
}

func TestSelectPartition_EmptyUniverse(t *testing.T) {
	seed, idx := SelectPartition(nil, 2)
	assert.Equal(t, "", seed)
	assert.Equal(t, 0, idx)
}

func TestAdvance_RotatesModuloUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partition_state.json")
	require.NoError(t, PartitionState{CurrentIndex: 2}.Save(path))

	require.NoError(t, Advance(path, 3))
	assert.Equal(t, 0, LoadPartitionState(path).CurrentIndex)

	require.NoError(t, Advance(path, 3))
	assert.Equal(t, 1, LoadPartitionState(path).CurrentIndex)
}

func TestAdvance_EmptyUniverseIsAnError(t *testing.T) {
	err := Advance(filepath.Join(t.TempDir(), "partition_state.json"), 0)
	assert.Error(t, err)
}

func TestLoadSeeds_IgnoresBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "url_list.txt")
	content := "https://park4night.com/en/search?lat=38.7\n\n  \nhttps://park4night.com/en/search?lat=41.1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "https://park4night.com/en/search?lat=38.7", seeds[0])
}

func TestLoadSeeds_MissingFileIsAnError(t *testing.T) {
	_, err := LoadSeeds(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
