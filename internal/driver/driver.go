// Package driver wires the Mach-O rewriter, the stub builder, and the host
// probe together into the single end-to-end conversion dylibify's CLI
// exposes: read an executable, rewrite it into a dylib, synthesize and
// write its companion stub dylib, write the result.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blacktop/go-macho/internal/rewrite"
	"github.com/blacktop/go-macho/internal/stub"
)

var log = logrus.WithField("component", "driver")

// Request is the fully-resolved configuration for one conversion run,
// already validated by the CLI layer (flag parsing, mutual exclusion of
// platform flags). Paths are not checked beforehand; Run reports an
// unreadable input as an InputError.
type Request struct {
	InputPath  string
	OutputPath string

	DylibPath        string
	ExplicitRemovals []string
	AutoRemoveDylibs bool
	RemoveInfoPlist  bool
	RetargetPlatform *rewrite.Platform
}

// Run executes one conversion end to end and returns the paths it wrote:
// the rewritten dylib and, only if the rewrite orphaned at least one
// imported symbol, its stub. A run that removes dependencies without
// orphaning any symbol builds no stub.
func Run(req Request) (outputPath, stubPath string, err error) {
	raw, err := os.ReadFile(req.InputPath)
	if err != nil {
		return "", "", &rewrite.InputError{Reason: fmt.Sprintf("reading %s: %v", req.InputPath, err)}
	}

	stubInstallPath := filepath.Join(filepath.Dir(req.DylibPath), stubName(req.DylibPath))

	opts := rewrite.Options{
		DylibPath:        req.DylibPath,
		StubInstallPath:  stubInstallPath,
		ExplicitRemovals: req.ExplicitRemovals,
		AutoRemoveDylibs: req.AutoRemoveDylibs,
		RemoveInfoPlist:  req.RemoveInfoPlist,
		RetargetPlatform: req.RetargetPlatform,
		CurrentVersion:   0x00010000,
		CompatVersion:    0x00010000,
	}

	log.WithFields(logrus.Fields{"in": req.InputPath, "out": req.OutputPath}).Info("rewriting image")

	img, err := rewrite.Open(raw, opts)
	if err != nil {
		return "", "", err
	}
	out, err := img.Rewrite()
	if err != nil {
		return "", "", err
	}

	if err := os.WriteFile(req.OutputPath, out, 0755); err != nil {
		return "", "", &rewrite.InputError{Reason: fmt.Sprintf("writing %s: %v", req.OutputPath, err)}
	}

	if len(img.StubSymbols) == 0 {
		log.Debug("no symbols orphaned, no stub dylib built")
		return req.OutputPath, "", nil
	}

	log.WithFields(logrus.Fields{
		"symbols": len(img.StubSymbols),
		"archs":   len(img.Archs),
	}).Info("synthesizing stub dylib")

	outDir := filepath.Dir(req.OutputPath)
	builtStub, err := stub.Build(outDir, stubName(req.DylibPath), stubInstallPath, img.StubSymbols, img.Archs)
	if err != nil {
		return "", "", errors.Wrap(err, "building stub dylib")
	}

	return req.OutputPath, builtStub, nil
}

func stubName(dylibPath string) string {
	base := filepath.Base(dylibPath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-stub" + ext
}
