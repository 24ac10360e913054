package stub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyClassSymbol(t *testing.T) {
	sym, err := Classify("_OBJC_CLASS_$_MYFooController")
	require.NoError(t, err)
	require.Equal(t, KindClass, sym.Kind)
	require.Equal(t, "MYFooController", sym.Defined)
}

func TestClassifyFunctionSymbol(t *testing.T) {
	sym, err := Classify("_doSomethingUseful")
	require.NoError(t, err)
	require.Equal(t, KindFunction, sym.Kind)
	require.Equal(t, "doSomethingUseful", sym.Defined)
}

func TestClassifyRejectsUnsupportedShape(t *testing.T) {
	_, err := Classify("doesNotStartWithUnderscore")
	require.Error(t, err)
	require.IsType(t, &ClassificationError{}, err)
}

func TestClassifyRejectsEmptyClassName(t *testing.T) {
	_, err := Classify("_OBJC_CLASS_$_")
	require.Error(t, err)
}

func TestGenerateSourceIsDeterministic(t *testing.T) {
	names := []string{"_zebra", "_apple", "_OBJC_CLASS_$_Zeta", "_OBJC_CLASS_$_Alpha"}
	a, err := GenerateSource(names)
	require.NoError(t, err)
	b, err := GenerateSource(append([]string(nil), names...))
	require.NoError(t, err)
	require.Equal(t, a, b)

	require.True(t, strings.Index(a, "Alpha") < strings.Index(a, "Zeta"))
	require.True(t, strings.Index(a, "apple") < strings.Index(a, "zebra"))
}

func TestGenerateSourceDedupes(t *testing.T) {
	src, err := GenerateSource([]string{"_foo", "_foo"})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(src, "void foo(void)"))
}

func TestGenerateSourcePropagatesClassificationError(t *testing.T) {
	_, err := GenerateSource([]string{"not-a-valid-symbol"})
	require.Error(t, err)
}
