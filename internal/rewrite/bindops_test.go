package rewrite

import (
	"testing"

	"github.com/blacktop/go-macho/types"
	"github.com/stretchr/testify/require"
)

// setSymbol encodes BIND_OPCODE_SET_SYMBOL_TRAILING_FLAGS_IMM for name.
func setSymbol(name string) []byte {
	return append(append([]byte{types.BIND_OPCODE_SET_SYMBOL_TRAILING_FLAGS_IMM}, []byte(name)...), 0)
}

func TestScanBindOrdinalsIMM(t *testing.T) {
	stream := []byte{}
	stream = append(stream, byte(types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM|2))
	stream = append(stream, setSymbol("_foo")...)
	stream = append(stream, byte(types.BIND_OPCODE_DO_BIND))
	stream = append(stream, byte(types.BIND_OPCODE_DONE))

	var gotSymbol string
	var gotOrdinal int
	err := ScanBindOrdinals(stream, func(symbol string, ord int) {
		gotSymbol, gotOrdinal = symbol, ord
	})
	require.NoError(t, err)
	require.Equal(t, "_foo", gotSymbol)
	require.Equal(t, 2, gotOrdinal)
}

func TestScanBindOrdinalsStopsAtDone(t *testing.T) {
	stream := []byte{byte(types.BIND_OPCODE_DONE), 0xFF, 0xFF, 0xFF}
	calls := 0
	err := ScanBindOrdinals(stream, func(string, int) { calls++ })
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestRemapBindRewritesOrdinalAndPads(t *testing.T) {
	stream := []byte{}
	stream = append(stream, byte(types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM|3))
	stream = append(stream, setSymbol("_bar")...)
	stream = append(stream, byte(types.BIND_OPCODE_DO_BIND))
	stream = append(stream, byte(types.BIND_OPCODE_DONE))
	stream = append(stream, make([]byte, 16)...) // trailing zero padding, as on disk

	remap := func(old int) (int, error) {
		if old == 3 {
			return 1, nil
		}
		return old, nil
	}

	out, err := RemapBind(stream, remap)
	require.NoError(t, err)
	require.Len(t, out, len(stream))

	var gotOrdinal int
	err = ScanBindOrdinals(out, func(_ string, ord int) { gotOrdinal = ord })
	require.NoError(t, err)
	require.Equal(t, 1, gotOrdinal)
}

func TestRemapBindPreservesSentinels(t *testing.T) {
	stream := []byte{
		byte(types.BIND_OPCODE_SET_DYLIB_SPECIAL_IMM | 0), // self
		byte(types.BIND_OPCODE_DONE),
	}
	calledRemap := false
	remap := func(old int) (int, error) {
		calledRemap = true
		return old, nil
	}
	out, err := RemapBind(stream, remap)
	require.NoError(t, err)
	require.False(t, calledRemap, "SET_DYLIB_SPECIAL_IMM must never reach remap")
	require.Equal(t, stream, out)
}

func TestRemapBindPropagatesRemapError(t *testing.T) {
	stream := []byte{
		byte(types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM | 5),
		byte(types.BIND_OPCODE_DONE),
	}
	_, err := RemapBind(stream, func(old int) (int, error) {
		return 0, &InvariantError{Reason: "no entry"}
	})
	require.Error(t, err)
}

func TestRemapBindULEBOrdinal(t *testing.T) {
	stream := []byte{
		byte(types.BIND_OPCODE_SET_DYLIB_ORDINAL_ULEB), 0x7F, // 127, single-byte ULEB
		byte(types.BIND_OPCODE_DONE),
	}
	out, err := RemapBind(stream, func(old int) (int, error) {
		require.Equal(t, 127, old)
		return 2, nil
	})
	require.NoError(t, err)

	var gotOrdinal int
	err = ScanBindOrdinals(out, func(_ string, ord int) { gotOrdinal = ord })
	require.NoError(t, err)
	// ULEB ordinal form never binds on its own; DONE ends the stream before
	// any DO_BIND, so onBind is never called and gotOrdinal stays zero. The
	// remap call itself, verified above, is the behavior under test.
	require.Zero(t, gotOrdinal)
}
