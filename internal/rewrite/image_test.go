package rewrite

import (
	"encoding/binary"
	"testing"

	macho "github.com/blacktop/go-macho"
	"github.com/stretchr/testify/require"
)

func sliceWithDeps(deps ...string) *Slice {
	var loads []macho.Load
	for _, d := range deps {
		loads = append(loads, macho.NewDylibCommand(d, 0, 1, 1, binary.LittleEndian))
	}
	return &Slice{f: newFile(loads...)}
}

func TestValidateRemovalsAcceptsTargetInAnySlice(t *testing.T) {
	slices := []*Slice{
		sliceWithDeps("/usr/lib/libArmOnly.dylib"),
		sliceWithDeps("/usr/lib/libX86Only.dylib"),
	}
	err := validateRemovals(slices, []string{"/usr/lib/libArmOnly.dylib", "/usr/lib/libX86Only.dylib"})
	require.NoError(t, err)
}

func TestValidateRemovalsRejectsUnknownTarget(t *testing.T) {
	slices := []*Slice{sliceWithDeps("/usr/lib/libA.dylib")}
	err := validateRemovals(slices, []string{"/usr/lib/libGhost.dylib"})
	require.Error(t, err)
	require.IsType(t, &InputError{}, err)
}

func TestValidateRemovalsEmptyListIsNoop(t *testing.T) {
	slices := []*Slice{sliceWithDeps("/usr/lib/libA.dylib")}
	require.NoError(t, validateRemovals(slices, nil))
}

func TestOpenRejectsTinyInput(t *testing.T) {
	_, err := Open([]byte{0x01, 0x02}, Options{})
	require.Error(t, err)
	require.IsType(t, &InputError{}, err)
}
