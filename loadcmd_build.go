package macho

import (
	"encoding/binary"
	"strings"

	"github.com/blacktop/go-macho/types"
)

// dylibCmdBase lays out the fixed portion of a dylib_command followed by its
// nul-terminated path, padded to an 8-byte boundary the way the static link
// editor pads every load command in a 64-bit image.
func dylibCmdBase(cmd types.LoadCmd, path string, timestamp, current, compat uint32, o binary.ByteOrder) []byte {
	const hdrSize = 24 // sizeof(types.DylibCmd)
	raw := append([]byte(path), 0)
	total := types.RoundUp(uint64(hdrSize+len(raw)), 8)
	buf := make([]byte, total)
	o.PutUint32(buf[0:4], uint32(cmd))
	o.PutUint32(buf[4:8], uint32(total))
	o.PutUint32(buf[8:12], hdrSize)
	o.PutUint32(buf[12:16], timestamp)
	o.PutUint32(buf[16:20], current)
	o.PutUint32(buf[20:24], compat)
	copy(buf[hdrSize:], raw)
	return buf
}

// NewDylibCommand builds an LC_LOAD_DYLIB command for path with the given
// version fields, in the shape File's parser expects to read back.
func NewDylibCommand(path string, timestamp, currentVersion, compatVersion uint32, o binary.ByteOrder) *Dylib {
	raw := dylibCmdBase(types.LC_LOAD_DYLIB, path, timestamp, currentVersion, compatVersion, o)
	d := &Dylib{
		LoadBytes: raw,
		Name:      path,
		Time:      timestamp,
	}
	d.LoadCmd = types.LC_LOAD_DYLIB
	d.Len = uint32(len(raw))
	d.CurrentVersion = types.Version(currentVersion).String()
	d.CompatVersion = types.Version(compatVersion).String()
	return d
}

// NewIdentityDylibCommand builds the LC_ID_DYLIB command a dylib uses to
// declare its own install name.
func NewIdentityDylibCommand(path string, timestamp, currentVersion, compatVersion uint32, o binary.ByteOrder) *DylibID {
	raw := dylibCmdBase(types.LC_ID_DYLIB, path, timestamp, currentVersion, compatVersion, o)
	d := &DylibID{
		LoadBytes: raw,
		Name:      path,
		Time:      timestamp,
	}
	d.LoadCmd = types.LC_ID_DYLIB
	d.Len = uint32(len(raw))
	d.CurrentVersion = types.Version(currentVersion).String()
	d.CompatVersion = types.Version(compatVersion).String()
	return d
}

// NewBuildVersionCommand builds an LC_BUILD_VERSION command retargeting a
// slice's platform with no build-tool entries, matching the shape File's
// parser expects to read back.
func NewBuildVersionCommand(platform types.Platform, minos, sdk types.Version, o binary.ByteOrder) *BuildVersion {
	const hdrSize = 24 // sizeof(types.BuildVersionCmd), NumTools == 0
	buf := make([]byte, hdrSize)
	o.PutUint32(buf[0:4], uint32(types.LC_BUILD_VERSION))
	o.PutUint32(buf[4:8], hdrSize)
	o.PutUint32(buf[8:12], uint32(platform))
	o.PutUint32(buf[12:16], uint32(minos))
	o.PutUint32(buf[16:20], uint32(sdk))
	o.PutUint32(buf[20:24], 0)

	b := &BuildVersion{
		LoadBytes: buf,
		Platform:  platform.String(),
		Minos:     minos.String(),
		Sdk:       sdk.String(),
	}
	b.LoadCmd = types.LC_BUILD_VERSION
	b.Len = hdrSize
	return b
}

// objcClassSymbolPrefix is the mangled-name prefix the static linker puts on
// an exported Objective-C class symbol.
const objcClassSymbolPrefix = "_OBJC_CLASS_$_"

// TrimObjCClassSymbol strips the Objective-C class-symbol prefix from name,
// exported for reuse by the stub source generator.
func TrimObjCClassSymbol(name string) string {
	if !strings.HasPrefix(name, objcClassSymbolPrefix) {
		return ""
	}
	return strings.TrimPrefix(name, objcClassSymbolPrefix)
}
