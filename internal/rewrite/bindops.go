package rewrite

import (
	"bytes"
	"fmt"

	"github.com/blacktop/go-macho/pkg/trie"
	"github.com/blacktop/go-macho/types"
)

// ScanBindOrdinals walks a bind, weak-bind, or lazy-bind opcode stream (they
// share one opcode space) and calls onBind for every symbol the stream
// binds, with the library ordinal in effect at that point. Ordinals from
// BIND_OPCODE_SET_DYLIB_SPECIAL_IMM are reported as their dyld-defined
// negative sentinel value; ordinals from the IMM/ULEB forms are reported
// as their unsigned value (0 means "self", matching ordinal.Self).
func ScanBindOrdinals(data []byte, onBind func(symbol string, ordinal int)) error {
	r := bytes.NewReader(data)
	var ordinal int
	var symbol string

	for r.Len() > 0 {
		opByte, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("read bind opcode: %w", err)
		}
		op := int(opByte) & types.BIND_OPCODE_MASK
		imm := int(opByte) & types.BIND_IMMEDIATE_MASK

		switch op {
		case types.BIND_OPCODE_DONE:
			// A real DONE ends the meaningful stream; anything after is
			// trailing padding from a prior in-place shrink (see RemapBind).
			return nil
		case types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM:
			ordinal = imm
		case types.BIND_OPCODE_SET_DYLIB_ORDINAL_ULEB:
			v, err := trie.ReadUleb128(r)
			if err != nil {
				return fmt.Errorf("read dylib ordinal uleb: %w", err)
			}
			ordinal = int(v)
		case types.BIND_OPCODE_SET_DYLIB_SPECIAL_IMM:
			if imm == 0 {
				ordinal = 0
			} else {
				ordinal = imm | ^types.BIND_IMMEDIATE_MASK
			}
		case types.BIND_OPCODE_SET_SYMBOL_TRAILING_FLAGS_IMM:
			name, err := readCString(r)
			if err != nil {
				return fmt.Errorf("read bind symbol name: %w", err)
			}
			symbol = name
		case types.BIND_OPCODE_SET_TYPE_IMM:
			// no operand bytes
		case types.BIND_OPCODE_SET_ADDEND_SLEB:
			if _, err := readLEB(r); err != nil {
				return fmt.Errorf("read addend sleb: %w", err)
			}
		case types.BIND_OPCODE_SET_SEGMENT_AND_OFFSET_ULEB:
			if _, err := trie.ReadUleb128(r); err != nil {
				return fmt.Errorf("read segment offset uleb: %w", err)
			}
		case types.BIND_OPCODE_ADD_ADDR_ULEB:
			if _, err := trie.ReadUleb128(r); err != nil {
				return fmt.Errorf("read add-addr uleb: %w", err)
			}
		case types.BIND_OPCODE_DO_BIND:
			onBind(symbol, ordinal)
		case types.BIND_OPCODE_DO_BIND_ADD_ADDR_ULEB:
			onBind(symbol, ordinal)
			if _, err := trie.ReadUleb128(r); err != nil {
				return fmt.Errorf("read do-bind add-addr uleb: %w", err)
			}
		case types.BIND_OPCODE_DO_BIND_ADD_ADDR_IMM_SCALED:
			onBind(symbol, ordinal)
		case types.BIND_OPCODE_DO_BIND_ULEB_TIMES_SKIPPING_ULEB:
			count, err := trie.ReadUleb128(r)
			if err != nil {
				return fmt.Errorf("read do-bind count uleb: %w", err)
			}
			if _, err := trie.ReadUleb128(r); err != nil {
				return fmt.Errorf("read do-bind skip uleb: %w", err)
			}
			for i := uint64(0); i < count; i++ {
				onBind(symbol, ordinal)
			}
		case types.BIND_OPCODE_THREADED:
			switch imm {
			case types.BIND_SUBOPCODE_THREADED_SET_BIND_ORDINAL_TABLE_SIZE_ULEB:
				if _, err := trie.ReadUleb128(r); err != nil {
					return fmt.Errorf("read threaded table size uleb: %w", err)
				}
			case types.BIND_SUBOPCODE_THREADED_APPLY:
				onBind(symbol, ordinal)
			}
		default:
			return fmt.Errorf("unrecognized bind opcode %#x", opByte)
		}
	}
	return nil
}

// RemapBind re-encodes a bind-family opcode stream, replacing every
// non-sentinel SET_DYLIB_ORDINAL_IMM/ULEB operand with remap(old), and
// copying every other opcode byte-for-byte. Because ordinal compaction
// only ever removes dependencies or appends exactly one stub at the end,
// new ordinals are never larger than old ones, so IMM operands always stay
// representable as IMM and ULEB operands never grow — the re-encoded
// stream is therefore never longer than the original. The result is
// zero-padded (BIND_OPCODE_DONE, a safe no-op once the real stream's own
// terminal opcode has already been emitted) back out to len(data) so every
// other LINKEDIT offset in the file stays untouched.
func RemapBind(data []byte, remap func(old int) (int, error)) ([]byte, error) {
	r := bytes.NewReader(data)
	var out bytes.Buffer

	for r.Len() > 0 {
		opByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read bind opcode: %w", err)
		}
		op := int(opByte) & types.BIND_OPCODE_MASK
		imm := int(opByte) & types.BIND_IMMEDIATE_MASK

		switch op {
		case types.BIND_OPCODE_DONE:
			out.WriteByte(opByte)
			pad := make([]byte, len(data)-out.Len())
			out.Write(pad)
			return out.Bytes(), nil
		case types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM:
			newOrd, err := remap(imm)
			if err != nil {
				return nil, err
			}
			out.WriteByte(byte(types.BIND_OPCODE_SET_DYLIB_ORDINAL_IMM | (newOrd & types.BIND_IMMEDIATE_MASK)))
		case types.BIND_OPCODE_SET_DYLIB_ORDINAL_ULEB:
			v, err := trie.ReadUleb128(r)
			if err != nil {
				return nil, fmt.Errorf("read dylib ordinal uleb: %w", err)
			}
			newOrd, err := remap(int(v))
			if err != nil {
				return nil, err
			}
			out.WriteByte(opByte)
			trie.PutUleb128(&out, uint64(newOrd))
		case types.BIND_OPCODE_SET_DYLIB_SPECIAL_IMM:
			out.WriteByte(opByte) // sentinel, never remapped
		case types.BIND_OPCODE_SET_SYMBOL_TRAILING_FLAGS_IMM:
			out.WriteByte(opByte)
			name, err := readCString(r)
			if err != nil {
				return nil, fmt.Errorf("read bind symbol name: %w", err)
			}
			out.WriteString(name)
			out.WriteByte(0)
		case types.BIND_OPCODE_SET_TYPE_IMM:
			out.WriteByte(opByte)
		case types.BIND_OPCODE_SET_ADDEND_SLEB:
			out.WriteByte(opByte)
			raw, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read addend sleb: %w", err)
			}
			out.Write(raw)
		case types.BIND_OPCODE_SET_SEGMENT_AND_OFFSET_ULEB:
			out.WriteByte(opByte)
			raw, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read segment offset uleb: %w", err)
			}
			out.Write(raw)
		case types.BIND_OPCODE_ADD_ADDR_ULEB:
			out.WriteByte(opByte)
			raw, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read add-addr uleb: %w", err)
			}
			out.Write(raw)
		case types.BIND_OPCODE_DO_BIND, types.BIND_OPCODE_DO_BIND_ADD_ADDR_IMM_SCALED:
			out.WriteByte(opByte)
		case types.BIND_OPCODE_DO_BIND_ADD_ADDR_ULEB:
			out.WriteByte(opByte)
			raw, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read do-bind add-addr uleb: %w", err)
			}
			out.Write(raw)
		case types.BIND_OPCODE_DO_BIND_ULEB_TIMES_SKIPPING_ULEB:
			out.WriteByte(opByte)
			raw1, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read do-bind count uleb: %w", err)
			}
			raw2, err := readLEB(r)
			if err != nil {
				return nil, fmt.Errorf("read do-bind skip uleb: %w", err)
			}
			out.Write(raw1)
			out.Write(raw2)
		case types.BIND_OPCODE_THREADED:
			out.WriteByte(opByte)
			if imm == types.BIND_SUBOPCODE_THREADED_SET_BIND_ORDINAL_TABLE_SIZE_ULEB {
				raw, err := readLEB(r)
				if err != nil {
					return nil, fmt.Errorf("read threaded table size uleb: %w", err)
				}
				out.Write(raw)
			}
		default:
			return nil, fmt.Errorf("unrecognized bind opcode %#x", opByte)
		}
	}

	pad := make([]byte, len(data)-out.Len())
	return append(out.Bytes(), pad...), nil
}

// readCString reads bytes up to and including a NUL terminator and returns
// the string without it.
func readCString(r *bytes.Reader) (string, error) {
	var b []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(b), nil
		}
		b = append(b, c)
	}
}

// readLEB consumes one LEB128-encoded value (ULEB or SLEB share the same
// continuation-bit framing) and returns its raw encoded bytes verbatim,
// without interpreting sign or magnitude.
func readLEB(r *bytes.Reader) ([]byte, error) {
	var raw []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
		if b&0x80 == 0 {
			return raw, nil
		}
	}
}
