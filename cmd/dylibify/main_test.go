package main

import (
	"errors"
	"testing"

	"github.com/blacktop/go-macho/internal/rewrite"
	"github.com/blacktop/go-macho/types"
	"github.com/stretchr/testify/require"
)

func TestParseVersionTwoComponent(t *testing.T) {
	v, err := parseVersion("13.0")
	require.NoError(t, err)
	require.Equal(t, types.Version(13<<16|0<<8), v)
}

func TestParseVersionThreeComponent(t *testing.T) {
	v, err := parseVersion("13.2.1")
	require.NoError(t, err)
	require.Equal(t, types.Version(13<<16|2<<8|1), v)
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	_, err := parseVersion("not-a-version")
	require.Error(t, err)
}

func TestParsePlatformWithSDK(t *testing.T) {
	p, err := parsePlatform(types.PlatformIOS, "12.0:15.0")
	require.NoError(t, err)
	require.Equal(t, types.PlatformIOS, p.Platform)
	require.Equal(t, types.Version(12<<16), p.MinOS)
	require.Equal(t, types.Version(15<<16), p.SDK)
}

func TestParsePlatformWithoutSDKDefaultsToMinOS(t *testing.T) {
	p, err := parsePlatform(types.PlatformMacOS, "11.0")
	require.NoError(t, err)
	require.Equal(t, p.MinOS, p.SDK)
}

func TestParsePlatformRejectsBadMinOS(t *testing.T) {
	_, err := parsePlatform(types.PlatformIOS, "bogus:15.0")
	require.Error(t, err)
	require.IsType(t, &rewrite.InputError{}, err)
}

func TestExitCodeForInputError(t *testing.T) {
	require.Equal(t, -1, exitCodeFor(&rewrite.InputError{Reason: "bad"}))
}

func TestExitCodeForOtherError(t *testing.T) {
	require.Equal(t, 1, exitCodeFor(errors.New("boom")))
	require.Equal(t, 1, exitCodeFor(&rewrite.InvariantError{Reason: "broke"}))
}
