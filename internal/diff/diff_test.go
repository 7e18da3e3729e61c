package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hangup/internal/ir"
)

func TestDiff_Identical(t *testing.T) {
	states := []ir.SharedState{
		{},
		{"color": "red"},
		{"a": "1", "b": "2", "": "empty key", "é": "decomposed"},
	}

	for _, s := range states {
		d, err := Diff(s, s.Clone())
		require.NoError(t, err)
		assert.Empty(t, d.Changed)
		assert.Empty(t, d.Removed)
		assert.True(t, d.Empty())
	}
}

func TestDiff_AddChangeRemove(t *testing.T) {
	old := ir.SharedState{"keep": "same", "edit": "before", "drop": "gone"}
	new := ir.SharedState{"keep": "same", "edit": "after", "add": "fresh"}

	d, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, []ir.StateEntry{
		{Key: "add", Value: "fresh"},
		{Key: "edit", Value: "after"},
	}, d.Changed, "changed is sorted by key and merges added and edited keys")
	assert.Equal(t, []string{"drop"}, d.Removed)
}

func TestDiff_EmptyValueIsPresent(t *testing.T) {
	d, err := Diff(ir.SharedState{}, ir.SharedState{"k": ""})
	require.NoError(t, err)
	assert.Equal(t, []ir.StateEntry{{Key: "k", Value: ""}}, d.Changed)

	d, err = Diff(ir.SharedState{"k": ""}, ir.SharedState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, d.Removed)
}

func TestDiff_NilIsCorrupted(t *testing.T) {
	_, err := Diff(nil, ir.SharedState{})
	require.Error(t, err)
	assert.True(t, ir.IsCorruptedState(err))

	_, err = Diff(ir.SharedState{}, nil)
	require.Error(t, err)
	assert.True(t, ir.IsCorruptedState(err))
}

func TestDiff_DoesNotMutateInputs(t *testing.T) {
	old := ir.SharedState{"a": "1"}
	new := ir.SharedState{"b": "2"}

	_, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, ir.SharedState{"a": "1"}, old)
	assert.Equal(t, ir.SharedState{"b": "2"}, new)
}

func TestDiff_Reconstruction(t *testing.T) {
	cases := []struct {
		name string
		s1   ir.SharedState
		s2   ir.SharedState
	}{
		{"empty to empty", ir.SharedState{}, ir.SharedState{}},
		{"empty to full", ir.SharedState{}, ir.SharedState{"a": "1", "b": "2"}},
		{"full to empty", ir.SharedState{"a": "1", "b": "2"}, ir.SharedState{}},
		{"disjoint", ir.SharedState{"a": "1"}, ir.SharedState{"b": "2"}},
		{"overlap", ir.SharedState{"a": "1", "b": "2", "c": "3"}, ir.SharedState{"b": "20", "c": "3", "d": "4"}},
		{"unicode", ir.SharedState{"😀": "x"}, ir.SharedState{"｡": "y", "😀": "z"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Diff(tc.s1, tc.s2)
			require.NoError(t, err)

			var wantRemoved []string
			for k := range tc.s1 {
				if _, ok := tc.s2[k]; !ok {
					wantRemoved = append(wantRemoved, k)
				}
			}
			assert.ElementsMatch(t, wantRemoved, d.Removed)

			assert.Equal(t, tc.s2, Apply(tc.s1, d))
		})
	}
}

func TestApply_NilBase(t *testing.T) {
	out := Apply(nil, StateDelta{Changed: []ir.StateEntry{{Key: "a", Value: "1"}}})
	assert.Equal(t, ir.SharedState{"a": "1"}, out)
}
