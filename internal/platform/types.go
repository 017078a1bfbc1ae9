// Package platform resolves the running machine into a canonical
// fingerprint: an OS family and a CPU architecture family, each paired with
// the regular expression used to recognize that family in release asset
// names.
//
// Raw host strings come from gopsutil and the Go runtime. Resolution is
// strict: an unknown OS, or an architecture string that matches zero or
// several families, is a configuration error rather than a guess.
//
// The fingerprint is also exposed to Lua configuration files as a read-only
// global table named "platform".
package platform

import (
	"context"
	"regexp"
)

// OSTag is a canonical operating system family.
type OSTag string

// ArchTag is a canonical CPU architecture family.
type ArchTag string

// Architecture families, in table order.
const (
	ArchX86     ArchTag = "x86"
	ArchX86_64  ArchTag = "x86_64"
	ArchARM8_32 ArchTag = "arm8_32"
	ArchARM8_64 ArchTag = "arm8_64"
	ArchARM7    ArchTag = "arm7"
	ArchPPC32   ArchTag = "ppc_32"
	ArchPPC64   ArchTag = "ppc_64"
	ArchSPARC32 ArchTag = "sparc_32"
	ArchSPARC64 ArchTag = "sparc_64"
	ArchS390X   ArchTag = "s390x"
	ArchMIPS32  ArchTag = "mips_32"
	ArchMIPS64  ArchTag = "mips_64"
	ArchRISCV32 ArchTag = "riscv_32"
	ArchRISCV64 ArchTag = "riscv_64"
	ArchLoong32 ArchTag = "loong_32"
	ArchLoong64 ArchTag = "loong_64"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Fingerprint is the resolved (OS family, architecture family) pair for the
// executing machine. It is computed once per process and never mutated.
type Fingerprint struct {
	OS          OSTag
	Arch        ArchTag
	OSPattern   string
	ArchPattern string
}

// OSRegexp returns a case-insensitive matcher for the OS pattern.
func (f Fingerprint) OSRegexp() *regexp.Regexp {
	return regexp.MustCompile("(?i)" + f.OSPattern)
}

// ArchRegexp returns a case-insensitive matcher for the architecture pattern.
func (f Fingerprint) ArchRegexp() *regexp.Regexp {
	return regexp.MustCompile("(?i)" + f.ArchPattern)
}

// PlatformRegexp matches either the OS or the architecture pattern.
func (f Fingerprint) PlatformRegexp() *regexp.Regexp {
	return regexp.MustCompile("(?i)(?:" + f.OSPattern + ")|(?:" + f.ArchPattern + ")")
}

// Info contains everything detected about the host.
type Info struct {
	Fingerprint
	Processor string // kernel-reported machine string, e.g. "x86_64"
	Machine   string // Go runtime architecture, e.g. "amd64"
	Distro    string // distro ID (Linux only, e.g. "ubuntu")
	Family    string // canonical distro family (e.g. "debian")
	Version   string // distro version (Linux only, e.g. "22.04")
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
