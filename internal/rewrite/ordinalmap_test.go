package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRemapSurvivorsShiftDown(t *testing.T) {
	before := dependencySet{names: []string{"libA", "libB", "libC"}}
	after := dependencySet{names: []string{"libA", "libC"}}
	removed := map[string]bool{"libB": true}

	remap, err := buildRemap(before, after, removed, 3)
	require.NoError(t, err)
	require.Equal(t, map[int]int{
		1: 1, // libA keeps ordinal 1
		2: 3, // libB falls back to the stub ordinal
		3: 2, // libC shifts down to ordinal 2
	}, remap)
}

func TestBuildRemapNoRemovalsIsIdentity(t *testing.T) {
	before := dependencySet{names: []string{"libA", "libB"}}
	after := dependencySet{names: []string{"libA", "libB"}}

	remap, err := buildRemap(before, after, map[string]bool{}, 0)
	require.NoError(t, err)
	require.Equal(t, map[int]int{1: 1, 2: 2}, remap)
}

func TestBuildRemapErrorsWithoutStubOrdinal(t *testing.T) {
	before := dependencySet{names: []string{"libA", "libB"}}
	after := dependencySet{names: []string{"libA"}}
	removed := map[string]bool{"libB": true}

	_, err := buildRemap(before, after, removed, 0)
	require.Error(t, err)
	require.IsType(t, &InvariantError{}, err)
}

func TestBuildRemapErrorsOnMissingSurvivor(t *testing.T) {
	before := dependencySet{names: []string{"libA", "libB"}}
	after := dependencySet{names: []string{"libB"}} // libA inexplicably absent
	removed := map[string]bool{}

	_, err := buildRemap(before, after, removed, 0)
	require.Error(t, err)
	require.IsType(t, &InvariantError{}, err)
}

func TestDependencySetOrdinalOf(t *testing.T) {
	d := dependencySet{names: []string{"libA", "libB"}}
	require.Equal(t, 1, d.ordinalOf("libA"))
	require.Equal(t, 2, d.ordinalOf("libB"))
	require.Equal(t, 0, d.ordinalOf("libC"))
}
