package types

// Exported aliases for the platform constants declared unexported in types.go.
// Callers outside this package (the rewriter in particular) need to name
// a target platform when retargeting a build-version command.
const (
	PlatformUnknown            = unknown
	PlatformMacOS              = macOS
	PlatformIOS                = iOS
	PlatformTvOS               = tvOS
	PlatformWatchOS            = watchOS
	PlatformBridgeOS           = bridgeOS
	PlatformMacCatalyst        = macCatalyst
	PlatformIOSSimulator       = iOSSimulator
	PlatformTvOSSimulator      = tvOSSimulator
	PlatformWatchOSSimulator   = watchOSSimulator
	PlatformDriverKit          = driverKit
	PlatformRealityOS          = realityOS
	PlatformRealityOSSimulator = realityOSSimulator
	PlatformFirmware           = firmware
	PlatformSepOS              = sepOS
	PlatformAny                = any
)

var platformStrings = []IntName{
	{uint32(unknown), "unknown"},
	{uint32(macOS), "macOS"},
	{uint32(iOS), "iOS"},
	{uint32(tvOS), "tvOS"},
	{uint32(watchOS), "watchOS"},
	{uint32(bridgeOS), "bridgeOS"},
	{uint32(macCatalyst), "macCatalyst"},
	{uint32(iOSSimulator), "iOSSimulator"},
	{uint32(tvOSSimulator), "tvOSSimulator"},
	{uint32(watchOSSimulator), "watchOSSimulator"},
	{uint32(driverKit), "driverKit"},
	{uint32(realityOS), "realityOS"},
	{uint32(realityOSSimulator), "realityOSSimulator"},
	{uint32(firmware), "firmware"},
	{uint32(sepOS), "sepOS"},
}

// String implements the Platform half of the stringer directive at the top
// of types.go; kept hand-written since this module carries its own platform
// set (realityOS/sepOS) rather than regenerating against the stringer tool.
func (p Platform) String() string {
	if p == any {
		return "any"
	}
	return StringName(uint32(p), platformStrings, false)
}

var toolStrings = []IntName{
	{uint32(none), "none"},
	{uint32(clang), "clang"},
	{uint32(swift), "swift"},
	{uint32(ld), "ld"},
	{uint32(lld), "lld"},
	{uint32(Metal), "metal"},
	{uint32(AirLld), "air_lld"},
	{uint32(AirNt), "air_nt"},
	{uint32(AirNtPlugin), "air_nt_plugin"},
	{uint32(AirPack), "air_pack"},
	{uint32(GpuArchiver), "gpu_archiver"},
	{uint32(MetalFramework), "metal_framework"},
}

func (t Tool) String() string {
	return StringName(uint32(t), toolStrings, false)
}

var diceKindStrings = []IntName{
	{uint32(KindData), "data"},
	{uint32(KindJumpTable8), "jump-table-8"},
	{uint32(KindJumpTable16), "jump-table-16"},
	{uint32(KindJumpTable32), "jump-table-32"},
	{uint32(KindAbsJumpTable32), "abs-jump-table-32"},
}

func (d DiceKind) String() string {
	return StringName(uint32(d), diceKindStrings, false)
}
