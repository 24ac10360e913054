// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macho

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/blacktop/go-macho/types"
)

func TestOpenFailure(t *testing.T) {
	filename := "file.go"    // not a Mach-O file
	_, err := Open(filename) // don't crash
	if err == nil {
		t.Errorf("open %s: succeeded unexpectedly", filename)
	}
}

func TestOpenFatFailure(t *testing.T) {
	filename := "file.go" // not a Mach-O file
	if _, err := OpenFat(filename); err == nil {
		t.Errorf("OpenFat %s: succeeded unexpectedly", filename)
	}
}

func TestRelocTypeString(t *testing.T) {
	if types.X86_64_RELOC_BRANCH.String() != "X86_64_RELOC_BRANCH" {
		t.Errorf("got %v, want %v", types.X86_64_RELOC_BRANCH.String(), "X86_64_RELOC_BRANCH")
	}
	if types.X86_64_RELOC_BRANCH.GoString() != "macho.X86_64_RELOC_BRANCH" {
		t.Errorf("got %v, want %v", types.X86_64_RELOC_BRANCH.GoString(), "macho.X86_64_RELOC_BRANCH")
	}
}

func TestTypeString(t *testing.T) {
	if types.MH_EXECUTE.String() != "EXECUTE" {
		t.Errorf("got %v, want %v", types.MH_EXECUTE.String(), "EXECUTE")
	}
}

// buildThinHeader renders a minimal, load-command-free 64-bit Mach-O header
// for use as one arch slice inside a synthetic fat container.
func buildThinHeader(t *testing.T, cpu types.CPU, sub types.CPUSubtype) []byte {
	t.Helper()
	var buf bytes.Buffer
	hdr := types.FileHeader{
		Magic:  types.Magic64,
		CPU:    cpu,
		SubCPU: sub,
		Type:   types.MH_DYLIB,
	}
	if err := hdr.Write(&buf, binary.LittleEndian); err != nil {
		t.Fatalf("write thin header: %v", err)
	}
	return buf.Bytes()
}

func TestOpenFatRoundTrip(t *testing.T) {
	amd64 := buildThinHeader(t, types.CPUAmd64, 0)
	arm64 := buildThinHeader(t, types.CPUArm64, 0)

	raw := buildFatContainer(t, []fatSliceFixture{
		{cpu: types.CPUAmd64, subCPU: 0, data: amd64},
		{cpu: types.CPUArm64, subCPU: 0, data: arm64},
	})

	ff, err := NewFatFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewFatFile: %v", err)
	}
	if ff.Magic != types.MagicFat {
		t.Errorf("got magic %#x, want %#x", ff.Magic, types.MagicFat)
	}
	if len(ff.Arches) != 2 {
		t.Fatalf("got %d arches, want 2", len(ff.Arches))
	}
	if ff.Arches[0].CPU != types.CPUAmd64 || ff.Arches[1].CPU != types.CPUArm64 {
		t.Errorf("arch order/CPU mismatch: %#v", ff.Arches)
	}
}

type fatSliceFixture struct {
	cpu    types.CPU
	subCPU types.CPUSubtype
	data   []byte
}

// buildFatContainer lays out a fat header plus page-aligned slices, mirroring
// the layout NewFatFile expects to parse.
func buildFatContainer(t *testing.T, slices []fatSliceFixture) []byte {
	t.Helper()
	const align = 0x1000
	headerSize := 8 + 20*len(slices)
	offset := uint32(types.RoundUp(uint64(headerSize), align))

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, types.MagicFat)
	binary.Write(&out, binary.BigEndian, uint32(len(slices)))

	type placed struct {
		cpu, sub uint32
		off, sz  uint32
	}
	var arches []placed
	cur := offset
	for _, s := range slices {
		arches = append(arches, placed{uint32(s.cpu), uint32(s.subCPU), cur, uint32(len(s.data))})
		cur += uint32(types.RoundUp(uint64(len(s.data)), align))
	}
	for _, a := range arches {
		binary.Write(&out, binary.BigEndian, a.cpu)
		binary.Write(&out, binary.BigEndian, a.sub)
		binary.Write(&out, binary.BigEndian, a.off)
		binary.Write(&out, binary.BigEndian, a.sz)
		binary.Write(&out, binary.BigEndian, uint32(12)) // align (2^12)
	}

	for i, s := range slices {
		for uint32(out.Len()) < arches[i].off {
			out.WriteByte(0)
		}
		out.Write(s.data)
	}
	return out.Bytes()
}
