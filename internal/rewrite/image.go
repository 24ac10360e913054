package rewrite

import (
	"bytes"
	"fmt"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
)

// Image drives the rewrite of every architecture slice inside an input
// file, thin or universal, and tracks the union of stub symbols every
// slice's mutation phase orphaned so the caller can build one stub dylib
// that covers all of them.
type Image struct {
	raw    []byte
	isFat  bool
	slices []*Slice

	StubSymbols []string
	Archs       []types.CPU
}

// Open parses raw as either a thin or universal Mach-O executable and
// prepares one Slice per architecture. raw is retained and mutated by
// Rewrite.
func Open(raw []byte, o Options) (*Image, error) {
	if len(raw) < 4 {
		return nil, &InputError{Reason: "input is too small to be a Mach-O image"}
	}

	ff, err := macho.NewFatFile(bytes.NewReader(raw))
	switch err {
	case nil:
		img := &Image{raw: raw, isFat: true}
		for _, arch := range ff.Arches {
			region := raw[arch.Offset : arch.Offset+arch.Size]
			s, err := NewSlice(region, o)
			if err != nil {
				return nil, err
			}
			img.slices = append(img.slices, s)
		}
		if err := validateRemovals(img.slices, o.ExplicitRemovals); err != nil {
			return nil, err
		}
		return img, nil
	case macho.ErrNotFat:
		s, err := NewSlice(raw, o)
		if err != nil {
			return nil, err
		}
		if err := validateRemovals([]*Slice{s}, o.ExplicitRemovals); err != nil {
			return nil, err
		}
		return &Image{raw: raw, slices: []*Slice{s}}, nil
	default:
		return nil, &InputError{Reason: fmt.Sprintf("reading universal header: %v", err)}
	}
}

// validateRemovals rejects an explicit removal target that names no
// dependency of any slice. A fat input's slices can carry different
// dependency sets, so a target only needs to match one of them; Slice's own
// removalSet treats a target absent from a given slice as a no-op.
func validateRemovals(slices []*Slice, explicit []string) error {
	known := make(map[string]bool)
	for _, s := range slices {
		for _, lib := range s.Dependencies() {
			known[lib] = true
		}
	}
	for _, name := range explicit {
		if !known[name] {
			return &InputError{Reason: fmt.Sprintf("removal target %q is not a dependency of any architecture slice", name)}
		}
	}
	return nil
}

// Rewrite drives every slice's rewrite in turn. It does not itself invoke
// the stub builder: the caller joins StubSymbols/Archs across every Image
// it processes before compiling, so one fat-pack step covers everything,
// per the concurrency note that the join must wait on every slice.
func (img *Image) Rewrite() ([]byte, error) {
	seen := make(map[string]bool)
	for _, s := range img.slices {
		res, err := s.Rewrite()
		if err != nil {
			return nil, err
		}
		for _, sym := range res.StubSymbols {
			if !seen[sym] {
				seen[sym] = true
				img.StubSymbols = append(img.StubSymbols, sym)
			}
		}
		if len(res.StubSymbols) > 0 {
			img.Archs = append(img.Archs, res.CPU)
		}
	}
	return img.raw, nil
}
