package driver

import (
	"path/filepath"
	"testing"

	"github.com/blacktop/go-macho/internal/rewrite"
	"github.com/stretchr/testify/require"
)

func TestStubName(t *testing.T) {
	cases := map[string]string{
		"/usr/lib/libTarget.dylib": "libTarget-stub.dylib",
		"@rpath/Thing.dylib":       "Thing-stub.dylib",
		"noext":                    "noext-stub",
	}
	for in, want := range cases {
		require.Equal(t, want, stubName(in))
	}
}

func TestRunReportsMissingInputAsInputError(t *testing.T) {
	dir := t.TempDir()
	req := Request{
		InputPath:  filepath.Join(dir, "does-not-exist"),
		OutputPath: filepath.Join(dir, "out.dylib"),
		DylibPath:  "@rpath/out.dylib",
	}
	_, _, err := Run(req)
	require.Error(t, err)
	require.IsType(t, &rewrite.InputError{}, err)
}
