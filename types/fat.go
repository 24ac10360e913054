package types

// A FatArchHeader represents a fat_arch entry in a universal Mach-O's
// fat_header table. Always big-endian on disk regardless of the slice's
// own byte order.
type FatArchHeader struct {
	CPU    CPU
	SubCPU CPUSubtype
	Offset uint32
	Size   uint32
	Align  uint32
}

const FatArchHeaderSize = 5 * 4
