package stub

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/blacktop/go-macho/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "stub")

// clangArch is the -arch name clang expects for each CPU type the builder
// recognizes. Any other CPU type fails the slice's stub build.
var clangArch = map[types.CPU]string{
	types.CPU386:   "i386",
	types.CPUAmd64: "x86_64",
	types.CPUArm:   "armv7",
	types.CPUArm64: "arm64",
}

// BuildError distinguishes a compiler failure from a packager failure so
// the driver can report which external tool misbehaved.
type BuildError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("stub: %s: %s: %v", e.Tool, e.Reason, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Build drives clang once per requested architecture to compile the
// generated stub source into a thin dylib with installPath baked in as its
// install name, then drives lipo to fuse the per-arch outputs into a single
// universal stub named stubName, written into outDir. It returns the path
// to the fat stub.
func Build(outDir, stubName, installPath string, symbols []string, archs []types.CPU) (string, error) {
	if len(archs) == 0 {
		return "", &BuildError{Tool: "clang", Reason: "no architectures requested"}
	}

	src, err := GenerateSource(symbols)
	if err != nil {
		return "", err
	}

	srcPath := filepath.Join(outDir, "dylibify-stubs.m")
	if err := os.WriteFile(srcPath, []byte(src), 0644); err != nil {
		return "", &BuildError{Tool: "clang", Reason: "failed to write stub source", Err: err}
	}

	thin := make([]string, len(archs))
	var g errgroup.Group
	for i, arch := range archs {
		i, arch := i, arch
		g.Go(func() error {
			archName, ok := clangArch[arch]
			if !ok {
				return &BuildError{Tool: "clang", Reason: fmt.Sprintf("unrecognized architecture %s", arch)}
			}
			out := filepath.Join(outDir, fmt.Sprintf("dylibify-stubs-%s.dylib", archName))
			cmd := exec.Command("clang",
				"-arch", archName,
				"-o", out,
				srcPath,
				"-shared",
				"-fobjc-arc",
				"-framework", "Foundation",
				"-Wl,-install_name,"+installPath,
			)
			log.WithFields(logrus.Fields{"arch": archName, "out": out}).Debug("compiling stub slice")
			if output, err := cmd.CombinedOutput(); err != nil {
				return &BuildError{Tool: "clang", Reason: fmt.Sprintf("%s: %s", archName, string(output)), Err: err}
			}
			thin[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", errors.Wrap(err, "stub build fan-out failed")
	}

	fatPath := filepath.Join(outDir, stubName)
	args := append([]string{"-create", "-output", fatPath}, thin...)
	cmd := exec.Command("lipo", args...)
	log.WithField("out", fatPath).Debug("fusing universal stub")
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", &BuildError{Tool: "lipo", Reason: string(output), Err: err}
	}

	return fatPath, nil
}
