// Command dylibify rewrites a Mach-O executable into a Mach-O dylib whose
// dependency graph still resolves when some of its original dependencies
// are missing from the target host.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blacktop/go-macho/internal/driver"
	"github.com/blacktop/go-macho/internal/rewrite"
	"github.com/blacktop/go-macho/types"
)

var (
	inPath           string
	outPath          string
	dylibPath        string
	removeDylibs     []string
	autoRemove       bool
	removeInfoPlist  bool
	targetIOS        string
	targetMacOS      string
	verbose          bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dylibify",
		Short:         "Convert a Mach-O executable into a loadable dylib",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}

	flags := cmd.Flags()
	flags.StringVarP(&inPath, "in", "i", "", "input Mach-O executable (required)")
	flags.StringVarP(&outPath, "out", "o", "", "output dylib path (required)")
	flags.StringVarP(&dylibPath, "dylib-path", "d", "", "install name for the rewritten dylib (required)")
	flags.StringSliceVarP(&removeDylibs, "remove-dylib", "r", nil, "dependency to remove (repeatable)")
	flags.BoolVarP(&autoRemove, "auto-remove-dylibs", "R", false, "remove any dependency this host cannot resolve")
	flags.BoolVarP(&removeInfoPlist, "remove-info-plist", "P", false, "remove the __TEXT,__info_plist section")
	flags.StringVarP(&targetIOS, "ios", "I", "", "retarget platform metadata to iOS, as MINOS[:SDK]")
	flags.StringVarP(&targetMacOS, "macos", "M", "", "retarget platform metadata to macOS, as MINOS[:SDK]")
	flags.BoolVarP(&verbose, "verbose", "V", false, "enable debug logging")

	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagRequired("dylib-path")

	return cmd
}

func runE(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if targetIOS != "" && targetMacOS != "" {
		return &rewrite.InputError{Reason: "-I/--ios and -M/--macos are mutually exclusive"}
	}

	var platform *rewrite.Platform
	if targetIOS != "" {
		p, err := parsePlatform(types.PlatformIOS, targetIOS)
		if err != nil {
			return err
		}
		platform = p
	}
	if targetMacOS != "" {
		p, err := parsePlatform(types.PlatformMacOS, targetMacOS)
		if err != nil {
			return err
		}
		platform = p
	}

	req := driver.Request{
		InputPath:        inPath,
		OutputPath:       outPath,
		DylibPath:        dylibPath,
		ExplicitRemovals: removeDylibs,
		AutoRemoveDylibs: autoRemove,
		RemoveInfoPlist:  removeInfoPlist,
		RetargetPlatform: platform,
	}

	out, stubOut, err := driver.Run(req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	if stubOut != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", stubOut)
	}
	return nil
}

// parsePlatform parses "MINOS" or "MINOS:SDK" version strings, e.g.
// "13.0" or "13.0:14.0", into a retarget request for platform.
func parsePlatform(platform types.Platform, spec string) (*rewrite.Platform, error) {
	minos, sdk := spec, spec
	for i, c := range spec {
		if c == ':' {
			minos, sdk = spec[:i], spec[i+1:]
			break
		}
	}

	minVer, err := parseVersion(minos)
	if err != nil {
		return nil, &rewrite.InputError{Reason: fmt.Sprintf("invalid minimum OS version %q: %v", minos, err)}
	}
	sdkVer, err := parseVersion(sdk)
	if err != nil {
		return nil, &rewrite.InputError{Reason: fmt.Sprintf("invalid SDK version %q: %v", sdk, err)}
	}

	return &rewrite.Platform{Platform: platform, MinOS: minVer, SDK: sdkVer}, nil
}

// parseVersion parses a dotted "X.Y[.Z]" version string into the packed
// 32-bit form Mach-O version fields use: X.Y.Z -> (X<<16)|(Y<<8)|Z.
func parseVersion(s string) (types.Version, error) {
	var x, y, z uint32
	n, err := fmt.Sscanf(s, "%d.%d.%d", &x, &y, &z)
	if err != nil && n < 2 {
		n, err = fmt.Sscanf(s, "%d.%d", &x, &y)
	}
	if n < 2 {
		return 0, fmt.Errorf("expected X.Y or X.Y.Z")
	}
	return types.Version((x << 16) | (y << 8) | z), nil
}

// exitCodeFor maps an error to dylibify's exit code: -1 for a
// *rewrite.InputError (conflicting or malformed flag values, an unreadable
// or unusable input), 1 for every other error. Flag-parsing errors that
// cobra reports itself (unknown flag, missing required flag) are not
// InputErrors and so map to 1.
func exitCodeFor(err error) int {
	var inputErr *rewrite.InputError
	if errors.As(err, &inputErr) {
		return -1
	}
	return 1
}
