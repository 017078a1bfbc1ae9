package platform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
)

var (
	// ErrUnsupportedOS is returned for an OS name missing from the OS table.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnrecognizedArch is returned when an architecture string does not
	// classify into exactly one family.
	ErrUnrecognizedArch = errors.New("processor architecture could not be recognized")
)

// ArchError reports the attempted architecture string and every family it
// matched.
type ArchError struct {
	Input   string
	Matches []ArchTag
}

func (e *ArchError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("%s: %q matches no family", ErrUnrecognizedArch, e.Input)
	}
	return fmt.Sprintf("%s: %q matches %d families %v", ErrUnrecognizedArch, e.Input, len(e.Matches), e.Matches)
}

func (e *ArchError) Unwrap() error {
	return ErrUnrecognizedArch
}

type archEntry struct {
	tag     ArchTag
	pattern string
	re      *regexp.Regexp
}

func newArchEntry(tag ArchTag, pattern string) archEntry {
	return archEntry{tag: tag, pattern: pattern, re: regexp.MustCompile("^(?:" + pattern + ")")}
}

// archTable is ordered. Each pattern is tested from the start of the
// lowercase input string.
var archTable = []archEntry{
	newArchEntry(ArchX86, `x86$|x86_32|[i]?[3-6]86|i86pc|ia[-_]?32|bepc`),
	newArchEntry(ArchX86_64, `amd64|x64|x86[-_]?64|i686[-_]?64|ia[-_]?64`),
	newArchEntry(ArchARM8_32, `armv8[-_]?[b-z]?`),
	newArchEntry(ArchARM8_64, `aarch64|arm64|armv8[-_]?a`),
	newArchEntry(ArchARM7, `arm$|armv[6-7]`),
	newArchEntry(ArchPPC32, `ppc$|ppc32|prep|pmac|powermac`),
	newArchEntry(ArchPPC64, `powerpc|ppc64`),
	newArchEntry(ArchSPARC32, `sparc$|sparc32`),
	newArchEntry(ArchSPARC64, `sparc64|sun4[u-v]`),
	newArchEntry(ArchS390X, `s390[x]?`),
	newArchEntry(ArchMIPS32, `mips$`),
	newArchEntry(ArchMIPS64, `mips64`),
	newArchEntry(ArchRISCV32, `riscv$|riscv32`),
	newArchEntry(ArchRISCV64, `riscv64`),
	newArchEntry(ArchLoong32, `loongarch32`),
	newArchEntry(ArchLoong64, `loongarch64`),
}

// osTable maps an exact lowercase OS name to its asset-name pattern.
var osTable = map[string]string{
	"android": `android`,
	"darwin":  `darwin|mac[.]?os|osx`,
	"freebsd": `freebsd`,
	"illumos": `illumos`,
	"linux":   `linux`,
	"netbsd":  `netbsd`,
	"openbsd": `openbsd`,
	"plan9":   `plan9`,
	"solaris": `solaris`,
	"windows": `win|windows`,
	"win32":   `win|windows`,
}

// goarchAliases renames Go runtime architectures that the table spells
// differently.
var goarchAliases = map[string]string{
	"loong64": "loongarch64",
	"mipsle":  "mips",
}

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// ClassifyArch returns every architecture family whose pattern matches raw.
// A well-formed table yields exactly one family for any recognized string.
func ClassifyArch(raw string) []ArchTag {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var matches []ArchTag
	for _, entry := range archTable {
		if entry.re.MatchString(raw) {
			matches = append(matches, entry.tag)
		}
	}
	return matches
}

// Resolve classifies raw host strings into a Fingerprint.
//
// The processor string is preferred; machine is used when processor is
// empty. When both are present and classify differently, a warning is
// logged and the processor wins.
func Resolve(osName, processor, machine string, logger logging.Logger) (Fingerprint, error) {
	logger = logging.OrNop(logger)

	osKey := strings.ToLower(strings.TrimSpace(osName))
	osPattern, ok := osTable[osKey]
	if !ok {
		return Fingerprint{}, fmt.Errorf("%w: %q", ErrUnsupportedOS, osName)
	}

	processor = strings.ToLower(strings.TrimSpace(processor))
	machine = normalizeMachine(machine)

	raw := processor
	if raw == "" {
		raw = machine
	}

	matches := ClassifyArch(raw)
	if len(matches) != 1 {
		return Fingerprint{}, &ArchError{Input: raw, Matches: matches}
	}
	arch := matches[0]

	if processor != "" && machine != "" && processor != machine {
		other := ClassifyArch(machine)
		if len(other) != 1 || other[0] != arch {
			logger.Warn("processor and machine architecture disagree",
				"processor", processor, "machine", machine, "using", arch)
		}
	}

	return Fingerprint{
		OS:          OSTag(osKey),
		Arch:        arch,
		OSPattern:   osPattern,
		ArchPattern: archPattern(arch),
	}, nil
}

func archPattern(tag ArchTag) string {
	for _, entry := range archTable {
		if entry.tag == tag {
			return entry.pattern
		}
	}
	return ""
}

func normalizeMachine(machine string) string {
	machine = strings.ToLower(strings.TrimSpace(machine))
	if alias, ok := goarchAliases[machine]; ok {
		return alias
	}
	return machine
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
