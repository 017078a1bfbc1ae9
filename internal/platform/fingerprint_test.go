package platform

import (
	"bytes"
	"errors"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyArch(t *testing.T) {
	tests := []struct {
		raw  string
		want ArchTag
	}{
		{raw: "x86_64", want: ArchX86_64},
		{raw: "amd64", want: ArchX86_64},
		{raw: "X86_64", want: ArchX86_64},
		{raw: "ia64", want: ArchX86_64},
		{raw: "i686", want: ArchX86},
		{raw: "386", want: ArchX86},
		{raw: "i86pc", want: ArchX86},
		{raw: "x86", want: ArchX86},
		{raw: "aarch64", want: ArchARM8_64},
		{raw: "arm64", want: ArchARM8_64},
		{raw: "armv8l", want: ArchARM8_32},
		{raw: "armv7l", want: ArchARM7},
		{raw: "armv6l", want: ArchARM7},
		{raw: "arm", want: ArchARM7},
		{raw: "ppc", want: ArchPPC32},
		{raw: "ppc64le", want: ArchPPC64},
		{raw: "powerpc", want: ArchPPC64},
		{raw: "sparc", want: ArchSPARC32},
		{raw: "sparc64", want: ArchSPARC64},
		{raw: "sun4u", want: ArchSPARC64},
		{raw: "s390x", want: ArchS390X},
		{raw: "mips", want: ArchMIPS32},
		{raw: "mips64", want: ArchMIPS64},
		{raw: "mips64le", want: ArchMIPS64},
		{raw: "riscv64", want: ArchRISCV64},
		{raw: "riscv32", want: ArchRISCV32},
		{raw: "loongarch64", want: ArchLoong64},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ClassifyArch(tt.raw)
			require.Len(t, got, 1, "matches for %q: %v", tt.raw, got)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestResolve(t *testing.T) {
	fp, err := Resolve("Linux", "x86_64", "amd64", nil)
	require.NoError(t, err)

	assert.Equal(t, OSTag("linux"), fp.OS)
	assert.Equal(t, ArchX86_64, fp.Arch)
	assert.Equal(t, "linux", fp.OSPattern)
	assert.True(t, fp.ArchRegexp().MatchString("tool-linux-amd64.tar.gz"))
	assert.True(t, fp.OSRegexp().MatchString("tool-Linux-x86_64.tar.gz"))
	assert.False(t, fp.OSRegexp().MatchString("tool-darwin-arm64.tar.gz"))
}

func TestResolveMachineFallback(t *testing.T) {
	tests := []struct {
		name    string
		machine string
		want    ArchTag
	}{
		{name: "goarch_arm64", machine: "arm64", want: ArchARM8_64},
		{name: "goarch_loong64_alias", machine: "loong64", want: ArchLoong64},
		{name: "goarch_mipsle_alias", machine: "mipsle", want: ArchMIPS32},
		{name: "goarch_386", machine: "386", want: ArchX86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := Resolve("linux", "", tt.machine, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fp.Arch)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name        string
		os          string
		processor   string
		wantErr     error
		wantMatches int
	}{
		{name: "unknown_os", os: "beos", processor: "x86_64", wantErr: ErrUnsupportedOS},
		{name: "unknown_arch", os: "linux", processor: "vax", wantErr: ErrUnrecognizedArch, wantMatches: 0},
		{name: "empty_arch", os: "linux", processor: "", wantErr: ErrUnrecognizedArch, wantMatches: 0},
		{name: "ambiguous_arch", os: "linux", processor: "armv8-a", wantErr: ErrUnrecognizedArch, wantMatches: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.os, tt.processor, "", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var archErr *ArchError
			if errors.As(err, &archErr) {
				assert.Len(t, archErr.Matches, tt.wantMatches)
				assert.Contains(t, err.Error(), tt.processor)
			}
		})
	}
}

func TestResolveWarnsOnDisagreement(t *testing.T) {
	tests := []struct {
		name      string
		processor string
		machine   string
		wantWarn  bool
	}{
		{name: "same_family", processor: "x86_64", machine: "amd64", wantWarn: false},
		{name: "identical", processor: "arm64", machine: "arm64", wantWarn: false},
		{name: "different_family", processor: "aarch64", machine: "amd64", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := charmlog.New(&buf)

			fp, err := Resolve("linux", tt.processor, tt.machine, logger)
			require.NoError(t, err)
			assert.Equal(t, ClassifyArch(tt.processor)[0], fp.Arch)

			if tt.wantWarn {
				assert.Contains(t, buf.String(), "disagree")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestPlatformRegexp(t *testing.T) {
	fp, err := Resolve("darwin", "arm64", "", nil)
	require.NoError(t, err)

	re := fp.PlatformRegexp()
	assert.True(t, re.MatchString("tool_macos"))
	assert.True(t, re.MatchString("tool-arm64"))
	assert.False(t, re.MatchString("tool"))
}
