package macho

// Support for the universal (fat) container format, which bundles one
// Mach-O slice per architecture behind a big-endian fat_header/fat_arch
// table. dylibify opens each slice independently and rewrites it in place.

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/blacktop/go-macho/types"
)

// ErrNotFat is returned from OpenFat or NewFatFile when the file or byte
// slice does not have the Mach-O fat magic number.
var ErrNotFat = &FormatError{0, "not a fat Mach-O file", nil}

// FatArch is a Mach-O File inside a FatFile, plus its corresponding
// fat_arch header describing its placement within the container.
type FatArch struct {
	types.FatArchHeader
	*File
}

// FatFile is a Mach-O universal binary that contains one or more
// architecture-specific Mach-O slices.
type FatFile struct {
	Magic  types.Magic
	Arches []FatArch
	closer io.Closer
}

// OpenFat opens the named file using os.Open and prepares it for use as a
// Mach-O universal binary.
func OpenFat(name string) (*FatFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	ff, err := NewFatFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ff.closer = f
	return ff, nil
}

// Close closes the FatFile.
// If the FatFile was created using NewFatFile directly instead of OpenFat,
// Close has no effect.
func (ff *FatFile) Close() error {
	var err error
	if ff.closer != nil {
		err = ff.closer.Close()
		ff.closer = nil
	}
	return err
}

// NewFatFile reads a Mach-O universal binary from r.
func NewFatFile(r io.ReaderAt) (*FatFile, error) {
	var ident [4]byte
	if _, err := r.ReadAt(ident[0:], 0); err != nil {
		return nil, err
	}
	// fat_header.magic is always big-endian, unlike thin Mach-O's magic.
	be := binary.BigEndian.Uint32(ident[0:])
	if types.Magic(be) != types.MagicFat {
		return nil, ErrNotFat
	}

	ff := &FatFile{Magic: types.Magic(be)}

	var narch uint32
	if err := binary.Read(io.NewSectionReader(r, 4, 4), binary.BigEndian, &narch); err != nil {
		return nil, fmt.Errorf("failed to read fat_header.nfat_arch: %v", err)
	}
	if narch == 0 {
		return nil, &FormatError{4, "file contains no images", nil}
	}

	offset := int64(8)
	for i := uint32(0); i < narch; i++ {
		var fah types.FatArchHeader
		sr := io.NewSectionReader(r, offset, types.FatArchHeaderSize)
		if err := binary.Read(sr, binary.BigEndian, &fah); err != nil {
			return nil, fmt.Errorf("failed to read fat_arch header %d: %v", i, err)
		}

		fr := io.NewSectionReader(r, int64(fah.Offset), int64(fah.Size))
		arch, err := NewFile(fr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse slice %d (%s): %v", i, fah.CPU, err)
		}

		ff.Arches = append(ff.Arches, FatArch{FatArchHeader: fah, File: arch})
		offset += types.FatArchHeaderSize
	}

	return ff, nil
}

// ArchNamed returns the slice matching cpu, or nil if the container has
// no such slice.
func (ff *FatFile) ArchNamed(cpu types.CPU) *FatArch {
	for i := range ff.Arches {
		if ff.Arches[i].CPU == cpu {
			return &ff.Arches[i]
		}
	}
	return nil
}
