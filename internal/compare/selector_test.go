package compare

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uni_directory/internal/domain"
)

func item(id int64, name string) Item {
	return Item{ID: id, Name: name, Record: domain.Record{"Id": float64(id), "name": name}}
}

func ids(items []Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestSelector_AddUpToLimit(t *testing.T) {
	s := NewSelector(Universities)
	assert.Equal(t, StageEmpty, s.Stage())

	require.NoError(t, s.Add(item(1, "Cairo University")))
	assert.Equal(t, StageNeedMore, s.Stage())
	require.NoError(t, s.Add(item(2, "Alexandria University")))
	assert.Equal(t, StageReady, s.Stage())
	require.NoError(t, s.Add(item(3, "Ain Shams University")))

	err := s.Add(item(4, "Aswan University"))
	assert.True(t, errors.Is(err, ErrLimitReached))
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Items()))
	assert.Equal(t, MaxItems, s.Count())
}

func TestSelector_DuplicateIsNoop(t *testing.T) {
	s := NewSelector(Universities)
	require.NoError(t, s.Add(item(1, "Cairo University")))
	require.NoError(t, s.Add(item(1, "Cairo University")))
	assert.Equal(t, 1, s.Count())

	// a duplicate never reports the limit, even when full
	require.NoError(t, s.Add(item(2, "b")))
	require.NoError(t, s.Add(item(3, "c")))
	assert.NoError(t, s.Add(item(2, "b")))
}

func TestSelector_TagsWithActiveKind(t *testing.T) {
	s := NewSelector(Universities)
	require.NoError(t, s.Add(Item{ID: 1, Kind: Faculties}))
	s.SetKind(Faculties)
	require.NoError(t, s.Add(Item{ID: 2}))

	got := s.Items()
	assert.Equal(t, Universities, got[0].Kind)
	assert.Equal(t, Faculties, got[1].Kind)
	assert.Equal(t, Faculties, s.Kind())

	s.SetKind("bogus")
	assert.Equal(t, Faculties, s.Kind())
}

func TestSelector_RemoveAndClear(t *testing.T) {
	s := NewSelector(Faculties)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, s.Add(item(id, "x")))
	}
	s.Remove(2)
	assert.Equal(t, []int64{1, 3}, ids(s.Items()))
	s.Remove(42)
	assert.Equal(t, 2, s.Count())

	require.NoError(t, s.Add(item(4, "y")))
	assert.Equal(t, []int64{1, 3, 4}, ids(s.Items()))

	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, StageEmpty, s.Stage())
	assert.Empty(t, s.Items())
}

func TestSelector_ItemsIsACopy(t *testing.T) {
	s := NewSelector(Universities)
	require.NoError(t, s.Add(item(1, "a")))
	got := s.Items()
	got[0].ID = 99
	assert.Equal(t, []int64{1}, ids(s.Items()))
}

func TestSelector_SnapshotRestore(t *testing.T) {
	s := NewSelector(Faculties)
	require.NoError(t, s.Add(item(5, "Faculty of Engineering")))
	require.NoError(t, s.Add(item(7, "Faculty of Medicine")))

	r := Restore(s.Snapshot())
	assert.Equal(t, Faculties, r.Kind())
	assert.Equal(t, []int64{5, 7}, ids(r.Items()))

	over := State{Kind: Universities, Items: []Item{item(1, ""), item(1, ""), item(2, ""), item(3, ""), item(4, "")}}
	assert.Equal(t, []int64{1, 2, 3}, ids(Restore(over).Items()))
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, StageEmpty, StageFor(0))
	assert.Equal(t, StageNeedMore, StageFor(1))
	assert.Equal(t, StageReady, StageFor(2))
	assert.Equal(t, StageReady, StageFor(3))
}
