package rewrite

import (
	"encoding/binary"
	"testing"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	"github.com/stretchr/testify/require"
)

func newFile(loads ...macho.Load) *macho.File {
	f := &macho.File{}
	f.ByteOrder = binary.LittleEndian
	f.Magic = types.Magic64
	f.Loads = loads
	for _, l := range loads {
		f.NCommands++
		f.SizeCommands += l.LoadSize(&f.FileTOC)
	}
	return f
}

func weakDylib(d *macho.Dylib) *macho.WeakDylib {
	wd := macho.WeakDylib(*d)
	return &wd
}

func reExportDylib(d *macho.Dylib) *macho.ReExportDylib {
	rd := macho.ReExportDylib(*d)
	return &rd
}

func upwardDylib(d *macho.Dylib) *macho.UpwardDylib {
	ud := macho.UpwardDylib(*d)
	return &ud
}

func TestDependencyName(t *testing.T) {
	d := macho.NewDylibCommand("/usr/lib/libFoo.dylib", 0, 1, 1, binary.LittleEndian)
	require.Equal(t, "/usr/lib/libFoo.dylib", dependencyName(d))
	require.Equal(t, "/usr/lib/libFoo.dylib", dependencyName(weakDylib(d)))
	require.Equal(t, "/usr/lib/libFoo.dylib", dependencyName(reExportDylib(d)))
	require.Equal(t, "/usr/lib/libFoo.dylib", dependencyName(upwardDylib(d)))
	require.Equal(t, "", dependencyName(macho.NewBuildVersionCommand(types.PlatformMacOS, 0, 0, binary.LittleEndian)))
}

func TestRemovalSetSkipsUnknownExplicitTarget(t *testing.T) {
	libA := macho.NewDylibCommand("/usr/lib/libA.dylib", 0, 1, 1, binary.LittleEndian)
	f := newFile(libA)
	s := &Slice{f: f, o: Options{ExplicitRemovals: []string{"/usr/lib/libZZZ.dylib"}}}
	s.origLibs = f.ImportedLibraries()

	removed, err := s.removalSet()
	require.NoError(t, err)
	require.Empty(t, removed)
}

func TestRemovalSetHonorsKnownExplicitTarget(t *testing.T) {
	libA := macho.NewDylibCommand("/usr/lib/libA.dylib", 0, 1, 1, binary.LittleEndian)
	libB := macho.NewDylibCommand("/usr/lib/libB.dylib", 0, 1, 1, binary.LittleEndian)
	f := newFile(libA, libB)
	s := &Slice{f: f, o: Options{ExplicitRemovals: []string{"/usr/lib/libA.dylib"}}}
	s.origLibs = f.ImportedLibraries()

	removed, err := s.removalSet()
	require.NoError(t, err)
	require.True(t, removed["/usr/lib/libA.dylib"])
	require.False(t, removed["/usr/lib/libB.dylib"])
}

func TestMutateDependenciesAppendsStub(t *testing.T) {
	libA := macho.NewDylibCommand("/usr/lib/libA.dylib", 0, 1, 1, binary.LittleEndian)
	libB := macho.NewDylibCommand("/usr/lib/libB.dylib", 0, 1, 1, binary.LittleEndian)
	f := newFile(libA, libB)
	s := &Slice{f: f, o: Options{StubInstallPath: "@rpath/libstub.dylib"}}

	ordinal, err := s.mutateDependencies(map[string]bool{"/usr/lib/libA.dylib": true})
	require.NoError(t, err)

	survivors := f.ImportedLibraries()
	require.Equal(t, []string{"/usr/lib/libB.dylib", "@rpath/libstub.dylib"}, survivors)
	require.Equal(t, 2, ordinal) // libB at 1, stub at 2
}

func TestMutateDependenciesNoopWithoutRemovals(t *testing.T) {
	libA := macho.NewDylibCommand("/usr/lib/libA.dylib", 0, 1, 1, binary.LittleEndian)
	f := newFile(libA)
	s := &Slice{f: f}

	ordinal, err := s.mutateDependencies(map[string]bool{})
	require.NoError(t, err)
	require.Zero(t, ordinal)
	require.Equal(t, []string{"/usr/lib/libA.dylib"}, f.ImportedLibraries())
}

func TestRewriteIdentityStripsExecutableOnlyLoads(t *testing.T) {
	pagezero := &macho.Segment{}
	pagezero.LoadCmd = types.LC_SEGMENT_64
	pagezero.Name = "__PAGEZERO"
	text := &macho.Segment{}
	text.LoadCmd = types.LC_SEGMENT_64
	text.Name = "__TEXT"

	f := newFile(
		pagezero,
		text,
		&macho.CodeSignature{},
		&macho.LoadDylinker{},
		&macho.EntryPoint{},
		&macho.SourceVersion{},
	)
	s := &Slice{f: f, o: Options{DylibPath: "@rpath/libTarget.dylib", CurrentVersion: 1, CompatVersion: 1}}

	require.NoError(t, s.rewriteIdentity())

	require.Equal(t, types.MH_DYLIB, f.Type)
	var names []string
	foundIdentity := false
	for _, l := range f.Loads {
		switch v := l.(type) {
		case *macho.Segment:
			names = append(names, v.Name)
		case *macho.DylibID:
			foundIdentity = true
			require.Equal(t, "@rpath/libTarget.dylib", v.Name)
		case *macho.CodeSignature, *macho.LoadDylinker, *macho.EntryPoint, *macho.SourceVersion:
			t.Fatalf("executable-only load command %T survived rewriteIdentity", v)
		}
	}
	require.Equal(t, []string{"__TEXT"}, names, "__PAGEZERO must be dropped, __TEXT kept")
	require.True(t, foundIdentity, "LC_ID_DYLIB must be added")
}

func TestRemoveInfoPlistSection(t *testing.T) {
	seg := &macho.Segment{}
	seg.LoadCmd = types.LC_SEGMENT_64
	seg.Name = "__TEXT"
	seg.Nsect = 2
	seg.Firstsect = 0
	seg.Len = 100

	f := newFile(seg)
	f.Sections = []*macho.Section{
		{SectionHeader: macho.SectionHeader{Seg: "__TEXT", Name: "__info_plist"}},
		{SectionHeader: macho.SectionHeader{Seg: "__TEXT", Name: "__text"}},
	}
	sizeBefore := f.SizeCommands

	s := &Slice{f: f, o: Options{RemoveInfoPlist: true}}
	require.NoError(t, s.removeInfoPlistSection())

	require.Len(t, f.Sections, 1)
	require.Equal(t, "__text", f.Sections[0].Name)
	require.Equal(t, uint32(1), seg.Nsect)
	require.Equal(t, uint32(100-80), seg.Len)
	require.Equal(t, sizeBefore-80, f.SizeCommands)
}

func TestRemoveInfoPlistSectionNoopWhenAbsent(t *testing.T) {
	seg := &macho.Segment{}
	seg.LoadCmd = types.LC_SEGMENT_64
	seg.Name = "__TEXT"
	seg.Nsect = 1
	f := newFile(seg)
	f.Sections = []*macho.Section{
		{SectionHeader: macho.SectionHeader{Seg: "__TEXT", Name: "__text"}},
	}

	s := &Slice{f: f, o: Options{RemoveInfoPlist: true}}
	require.NoError(t, s.removeInfoPlistSection())
	require.Len(t, f.Sections, 1)
}

func TestRemoveInfoPlistSectionNoopWhenNotRequested(t *testing.T) {
	seg := &macho.Segment{}
	seg.LoadCmd = types.LC_SEGMENT_64
	seg.Nsect = 1
	f := newFile(seg)
	f.Sections = []*macho.Section{
		{SectionHeader: macho.SectionHeader{Seg: "__TEXT", Name: "__info_plist"}},
	}

	s := &Slice{f: f, o: Options{RemoveInfoPlist: false}}
	require.NoError(t, s.removeInfoPlistSection())
	require.Len(t, f.Sections, 1)
}
