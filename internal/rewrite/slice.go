package rewrite

import (
	"bytes"
	"fmt"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/internal/hostprobe"
	"github.com/blacktop/go-macho/internal/ordinal"
	"github.com/blacktop/go-macho/types"
)

// Platform retargets a slice's minimum-OS-version/build-version command.
// A zero value means "leave the slice's existing platform metadata alone".
type Platform struct {
	Platform types.Platform
	MinOS    types.Version
	SDK      types.Version
}

// Options configures one slice rewrite. DylibPath becomes the new identity
// install name; StubInstallPath is the path of the stub dependency command
// the rewriter adds when it removes dependencies, and the install name the
// driver bakes into the generated stub dylib.
type Options struct {
	DylibPath        string
	StubInstallPath  string
	ExplicitRemovals []string
	AutoRemoveDylibs bool
	RemoveInfoPlist  bool
	RetargetPlatform *Platform
	CurrentVersion   uint32
	CompatVersion    uint32
}

// Result reports what a slice rewrite produced: the mutated slice bytes,
// ready to be written out verbatim, and the set of symbol names the stub
// builder must define for this slice's architecture.
type Result struct {
	CPU         types.CPU
	Data        []byte
	StubSymbols []string
	RemovedLibs []string
}

// Slice carries one thin Mach-O image through the rewrite pipeline:
// snapshot, header/identity, platform, removal-set, mutation, ordinal
// remap, and stub-trigger. Each phase either advances state or returns a
// typed error; there is no partial-success return.
type Slice struct {
	raw []byte
	f   *macho.File
	o   Options

	origLibs     []string         // 1-based ordinal i+1 -> dependency path, as loaded
	origSymLib   map[int][]string // original ordinal -> symbol names bound against it
	headerRegion int              // header size + original SizeCommands, frozen before any mutation
}

// NewSlice parses raw as a thin Mach-O executable and prepares it for
// rewriting. raw is retained and mutated in place by Rewrite.
func NewSlice(raw []byte, o Options) (*Slice, error) {
	f, err := macho.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, &InputError{Reason: fmt.Sprintf("not a Mach-O slice: %v", err)}
	}
	if f.Type != types.MH_EXECUTE {
		return nil, &InputError{Reason: fmt.Sprintf("slice is %s, not an executable", f.Type)}
	}

	hdrSize := types.FileHeaderSize32
	if f.Magic == types.Magic64 {
		hdrSize = types.FileHeaderSize64
	}
	return &Slice{raw: raw, f: f, o: o, headerRegion: hdrSize + int(f.SizeCommands)}, nil
}

// Dependencies returns this slice's dependency paths as loaded, before any
// rewrite phase runs. Image uses it to validate explicit removal targets
// across every slice of a fat input before committing to rewriting any of
// them.
func (s *Slice) Dependencies() []string {
	return s.f.ImportedLibraries()
}

// Rewrite drives every phase in order and returns the finished slice.
func (s *Slice) Rewrite() (*Result, error) {
	if err := s.snapshot(); err != nil {
		return nil, err
	}
	if err := s.rewriteIdentity(); err != nil {
		return nil, err
	}
	if err := s.rewritePlatform(); err != nil {
		return nil, err
	}
	if err := s.removeInfoPlistSection(); err != nil {
		return nil, err
	}
	removed, err := s.removalSet()
	if err != nil {
		return nil, err
	}
	stubOrdinal, err := s.mutateDependencies(removed)
	if err != nil {
		return nil, err
	}
	orphans, err := s.remapOrdinals(removed, stubOrdinal)
	if err != nil {
		return nil, err
	}
	data, err := s.serialize()
	if err != nil {
		return nil, err
	}

	var skipped []string
	for name := range removed {
		skipped = append(skipped, name)
	}
	return &Result{
		CPU:         s.f.CPU,
		Data:        data,
		StubSymbols: orphans,
		RemovedLibs: skipped,
	}, nil
}

// snapshot records the dependency order and bind-site ordinals before any
// mutation touches them, per the "Ordinal remap as a function" design
// note: every later phase consults this frozen view, never the live file.
func (s *Slice) snapshot() error {
	s.origLibs = s.f.ImportedLibraries()
	s.origSymLib = make(map[int][]string)

	onBind := func(symbol string, ord int) {
		if symbol == "" || ord <= 0 {
			return
		}
		s.origSymLib[ord] = append(s.origSymLib[ord], symbol)
	}

	info := s.f.DyldInfo()
	if info == nil {
		return nil
	}
	for _, region := range [][2]uint32{
		{info.BindOff, info.BindSize},
		{info.WeakBindOff, info.WeakBindSize},
		{info.LazyBindOff, info.LazyBindSize},
	} {
		off, size := region[0], region[1]
		if size == 0 {
			continue
		}
		if err := ScanBindOrdinals(s.raw[off:off+size], onBind); err != nil {
			return &InputError{Reason: fmt.Sprintf("scanning bind opcodes: %v", err)}
		}
	}
	return nil
}

// rewriteIdentity strips the load commands that only make sense on an
// executable and adds the LC_ID_DYLIB command a dylib must carry.
func (s *Slice) rewriteIdentity() error {
	s.removeLoads(func(l macho.Load) bool {
		switch v := l.(type) {
		case *macho.CodeSignature:
			return true
		case *macho.LoadDylinker:
			return true
		case *macho.EntryPoint:
			return true
		case *macho.SourceVersion:
			return true
		case *macho.Segment:
			return v.Name == "__PAGEZERO"
		}
		return false
	})

	s.f.Type = types.MH_DYLIB
	id := macho.NewIdentityDylibCommand(s.o.DylibPath, 0, s.o.CurrentVersion, s.o.CompatVersion, s.f.ByteOrder)
	s.f.AddLoad(id)
	return nil
}

// rewritePlatform replaces or strips a slice's platform metadata commands
// per the requested retarget, or leaves them untouched when none was
// requested.
func (s *Slice) rewritePlatform() error {
	if s.o.RetargetPlatform == nil {
		return nil
	}

	s.removeLoads(func(l macho.Load) bool {
		switch l.(type) {
		case *macho.VersionMinMacOSX, *macho.VersionMiniPhoneOS, *macho.VersionMinTvOS, *macho.VersionMinWatchOS, *macho.BuildVersion:
			return true
		}
		return false
	})

	p := s.o.RetargetPlatform
	s.f.AddLoad(macho.NewBuildVersionCommand(p.Platform, p.MinOS, p.SDK, s.f.ByteOrder))
	return nil
}

// removeInfoPlistSection drops the __TEXT,__info_plist section entry from
// its owning segment when requested. The section's bytes stay on disk,
// unreferenced; dylibify never relocates segment data, so shrinking the
// segment's advertised section count is sufficient to hide it.
func (s *Slice) removeInfoPlistSection() error {
	if !s.o.RemoveInfoPlist {
		return nil
	}

	idx := -1
	for i, sec := range s.f.Sections {
		if sec.Seg == "__TEXT" && sec.Name == "__info_plist" {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	for _, l := range s.f.Loads {
		seg, ok := l.(*macho.Segment)
		if !ok {
			continue
		}
		if uint32(idx) >= seg.Firstsect && uint32(idx) < seg.Firstsect+seg.Nsect {
			seg.Nsect--
			sectionSize := uint32(80) // sizeof(section_64)
			if seg.Command() == types.LC_SEGMENT {
				sectionSize = 68 // sizeof(section)
			}
			seg.Len -= sectionSize
			s.f.SizeCommands -= sectionSize
			continue
		}
		if seg.Firstsect > uint32(idx) {
			seg.Firstsect--
		}
	}

	s.f.Sections = append(s.f.Sections[:idx], s.f.Sections[idx+1:]...)
	return nil
}

// removalSet folds the caller's explicit removal list into the snapshot,
// plus any dependency the host probe cannot resolve when auto-removal was
// requested. An explicit target this slice doesn't depend on is a silent
// no-op here: a fat input's slices can carry different dependency sets,
// and Image validates that every explicit target names a dependency of at
// least one slice before any slice is rewritten.
func (s *Slice) removalSet() (map[string]bool, error) {
	known := make(map[string]bool, len(s.origLibs))
	for _, lib := range s.origLibs {
		known[lib] = true
	}

	removed := make(map[string]bool)
	for _, name := range s.o.ExplicitRemovals {
		if known[name] {
			removed[name] = true
		}
	}

	if s.o.AutoRemoveDylibs {
		for _, lib := range s.origLibs {
			if removed[lib] {
				continue
			}
			if !hostprobe.Exists(lib) {
				removed[lib] = true
			}
		}
	}
	return removed, nil
}

// mutateDependencies drops the chosen dependency commands and, if any were
// dropped, appends one stub dependency to absorb their ordinals. It
// returns the stub's 1-based ordinal, or 0 if no stub was needed.
func (s *Slice) mutateDependencies(removed map[string]bool) (int, error) {
	if len(removed) == 0 {
		return 0, nil
	}

	s.removeLoads(func(l macho.Load) bool {
		name := dependencyName(l)
		return name != "" && removed[name]
	})

	survivors := s.f.ImportedLibraries()
	stub := macho.NewDylibCommand(s.o.StubInstallPath, 0, 0x00010000, 0x00010000, s.f.ByteOrder)
	s.f.AddLoad(stub)
	return len(survivors) + 1, nil
}

// remapOrdinals computes old->new and rewrites every bind-family opcode
// stream and classic symbol-table entry to match, returning the names of
// symbols that now resolve through the stub.
func (s *Slice) remapOrdinals(removed map[string]bool, stubOrdinal int) ([]string, error) {
	if len(removed) == 0 {
		return nil, nil
	}

	after := dependencySet{names: s.f.ImportedLibraries()}
	before := dependencySet{names: s.origLibs}
	remap, err := buildRemap(before, after, removed, stubOrdinal)
	if err != nil {
		return nil, err
	}
	remapFn := func(old int) (int, error) {
		if ordinal.IsSentinel(uint8(old)) {
			return old, nil
		}
		n, ok := remap[old]
		if !ok {
			return 0, &InvariantError{Reason: fmt.Sprintf("no remap entry for ordinal %d", old)}
		}
		return n, nil
	}

	info := s.f.DyldInfo()
	if info != nil {
		for _, region := range []struct{ off, size *uint32 }{
			{&info.BindOff, &info.BindSize},
			{&info.WeakBindOff, &info.WeakBindSize},
			{&info.LazyBindOff, &info.LazyBindSize},
		} {
			off, size := *region.off, *region.size
			if size == 0 {
				continue
			}
			rewritten, err := RemapBind(s.raw[off:off+size], remapFn)
			if err != nil {
				return nil, &InvariantError{Reason: fmt.Sprintf("remapping bind opcodes: %v", err)}
			}
			copy(s.raw[off:off+size], rewritten)
		}
	}

	if s.f.Symtab != nil {
		symSize := int(s.f.SymbolSize())
		for i := range s.f.Symtab.Syms {
			sym := &s.f.Symtab.Syms[i]
			old := int(ordinal.Get(uint16(sym.Desc)))
			if old == 0 || ordinal.IsSentinel(uint8(old)) {
				continue
			}
			n, ok := remap[old]
			if !ok {
				continue
			}
			sym.Desc = types.NDescType(ordinal.Set(uint16(sym.Desc), uint8(n)))
			// n_desc sits at byte 6 of both nlist and nlist_64.
			descOff := int(s.f.Symtab.Symoff) + i*symSize + 6
			s.f.ByteOrder.PutUint16(s.raw[descOff:descOff+2], uint16(sym.Desc))
		}
	}

	var orphans []string
	seen := make(map[string]bool)
	for oldOrd, names := range s.origSymLib {
		if remap[oldOrd] != stubOrdinal || stubOrdinal == 0 {
			continue
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				orphans = append(orphans, n)
			}
		}
	}
	return orphans, nil
}

// serialize renders the slice's header and load commands back into raw at
// their original offset, writing each command with its own Write method
// (a verbatim copy of the raw bytes for commands this package does not
// decode field by field) followed by a segment's section headers. dylibify
// never relocates segment or LINKEDIT data; it only mutates load-command
// content and, in place, LINKEDIT bytes whose length never changes.
func (s *Slice) serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.f.FileHeader.Write(&buf, s.f.ByteOrder); err != nil {
		return nil, &InvariantError{Reason: fmt.Sprintf("writing file header: %v", err)}
	}

	for _, l := range s.f.Loads {
		if err := l.Write(&buf, s.f.ByteOrder); err != nil {
			return nil, &InvariantError{Reason: fmt.Sprintf("writing load command: %v", err)}
		}
		if seg, ok := l.(*macho.Segment); ok {
			for i := uint32(0); i < seg.Nsect; i++ {
				if err := s.f.Sections[i+seg.Firstsect].Write(&buf, s.f.ByteOrder); err != nil {
					return nil, &InvariantError{Reason: fmt.Sprintf("writing section header: %v", err)}
				}
			}
		}
	}

	if buf.Len() > s.headerRegion {
		return nil, &InvariantError{Reason: "rewritten load commands overflow the original header region"}
	}
	copy(s.raw, buf.Bytes())
	for i := buf.Len(); i < s.headerRegion; i++ {
		s.raw[i] = 0
	}
	return s.raw, nil
}

// removeLoads drops every load command matching pred and recomputes
// NCommands/SizeCommands to match.
func (s *Slice) removeLoads(pred func(macho.Load) bool) {
	kept := s.f.Loads[:0]
	var n, size uint32
	for _, l := range s.f.Loads {
		if pred(l) {
			continue
		}
		kept = append(kept, l)
		n++
		size += l.LoadSize(&s.f.FileTOC)
	}
	s.f.Loads = kept
	s.f.NCommands = n
	s.f.SizeCommands = size
}

func dependencyName(l macho.Load) string {
	switch v := l.(type) {
	case *macho.Dylib:
		return v.Name
	case *macho.WeakDylib:
		return v.Name
	case *macho.ReExportDylib:
		return v.Name
	case *macho.UpwardDylib:
		return v.Name
	}
	return ""
}
