package stub

import (
	"testing"

	"github.com/blacktop/go-macho/types"
	"github.com/stretchr/testify/require"
)

func TestBuildRejectsEmptyArchList(t *testing.T) {
	_, err := Build(t.TempDir(), "stub.dylib", "@rpath/stub.dylib", []string{"_foo"}, nil)
	require.Error(t, err)
	require.IsType(t, &BuildError{}, err)
}

func TestBuildRejectsUnrecognizedArch(t *testing.T) {
	_, err := Build(t.TempDir(), "stub.dylib", "@rpath/stub.dylib", []string{"_foo"}, []types.CPU{0x7fffffff})
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, "clang", buildErr.Tool)
}

func TestBuildPropagatesClassificationError(t *testing.T) {
	_, err := Build(t.TempDir(), "stub.dylib", "@rpath/stub.dylib", []string{"bad-symbol"}, []types.CPU{types.CPUArm64})
	require.Error(t, err)
}
